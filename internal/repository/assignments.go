package repository

import (
	"context"
	"database/sql"
	"fmt"

	"gitlab.ozon.dev/qwestard/cylinders/internal/apperrors"
	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
)

const assignmentColumns = `id, order_id, courier_id, status, scheduled_for, priority, created_at, updated_at`

func (s *PgStore) CreateAssignment(ctx context.Context, a *models.DeliveryAssignment) error {
	query := `INSERT INTO assignments (` + assignmentColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := s.q.ExecContext(ctx, query,
		a.ID, a.OrderID, a.CourierID, a.Status, a.ScheduledFor, a.Priority,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("order %s already has a delivery assignment", a.OrderID)
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

func (s *PgStore) GetAssignment(ctx context.Context, id string) (*models.DeliveryAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id=$1`
	a, err := scanAssignment(s.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment by id: %w", err)
	}
	return a, nil
}

func (s *PgStore) AssignmentByOrder(ctx context.Context, orderID string) (*models.DeliveryAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE order_id=$1`
	a, err := scanAssignment(s.q.QueryRowContext(ctx, query, orderID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("assignment by order: %w", err)
	}
	return a, nil
}

func (s *PgStore) UpdateAssignment(ctx context.Context, a *models.DeliveryAssignment) error {
	query := `UPDATE assignments SET status=$1, scheduled_for=$2, priority=$3, updated_at=$4
		WHERE id=$5`
	res, err := s.q.ExecContext(ctx, query,
		a.Status, a.ScheduledFor, a.Priority, a.UpdatedAt, a.ID)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("assignment %s not found", a.ID)
	}
	return nil
}

func scanAssignment(row rowScanner) (*models.DeliveryAssignment, error) {
	a := &models.DeliveryAssignment{}
	err := row.Scan(
		&a.ID, &a.OrderID, &a.CourierID, &a.Status, &a.ScheduledFor, &a.Priority,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}
