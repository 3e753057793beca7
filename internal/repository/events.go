package repository

import (
	"context"
	"fmt"

	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
)

func (s *PgStore) AppendEvent(ctx context.Context, e *models.OrderEvent) error {
	query := `INSERT INTO order_events (id, order_id, status, title, description, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := s.q.ExecContext(ctx, query,
		e.ID, e.OrderID, e.Status, e.Title, e.Description, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *PgStore) ListEvents(ctx context.Context, orderID string) ([]*models.OrderEvent, error) {
	query := `SELECT id, order_id, status, title, description, created_at
		FROM order_events WHERE order_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := s.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var res []*models.OrderEvent
	for rows.Next() {
		e := &models.OrderEvent{}
		err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Title, &e.Description, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return res, nil
}
