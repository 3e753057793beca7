package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"gitlab.ozon.dev/qwestard/cylinders/internal/apperrors"
	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
)

const paymentColumns = `id, order_id, amount, method, status, reference, note, created_at, updated_at`

func (s *PgStore) CreatePayment(ctx context.Context, p *models.PaymentRecord) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := s.q.ExecContext(ctx, query,
		p.ID, p.OrderID, p.Amount, p.Method, p.Status, p.Reference, p.Note,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("payment reference %q already in use", p.Reference)
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (s *PgStore) GetPayment(ctx context.Context, id string) (*models.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	p, err := scanPayment(s.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment by id: %w", err)
	}
	return p, nil
}

// LatestPayment returns the authoritative head of the order's payment attempt
// chain, or nil when the order has none.
func (s *PgStore) LatestPayment(ctx context.Context, orderID string) (*models.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE order_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`
	p, err := scanPayment(s.q.QueryRowContext(ctx, query, orderID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest payment: %w", err)
	}
	return p, nil
}

func (s *PgStore) ListPayments(ctx context.Context, orderID string) ([]*models.PaymentRecord, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE order_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := s.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var res []*models.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return res, nil
}

func (s *PgStore) UpdatePayment(ctx context.Context, p *models.PaymentRecord) error {
	query := `UPDATE payments SET amount=$1, status=$2, reference=$3, note=$4, updated_at=$5
		WHERE id=$6`
	res, err := s.q.ExecContext(ctx, query,
		p.Amount, p.Status, p.Reference, p.Note, p.UpdatedAt, p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("payment reference %q already in use", p.Reference)
		}
		return fmt.Errorf("update payment: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("payment %s not found", p.ID)
	}
	return nil
}

// CancelOpenPayments marks every payment of the order that is not already
// SUCCESS or CANCELLED as CANCELLED. SUCCESS rows are terminal and untouched.
func (s *PgStore) CancelOpenPayments(ctx context.Context, orderID string) error {
	query := `UPDATE payments SET status=$1, updated_at=NOW()
		WHERE order_id=$2 AND status NOT IN ($3, $4)`
	_, err := s.q.ExecContext(ctx, query,
		models.PaymentStatusCancelled, orderID,
		models.PaymentStatusSuccess, models.PaymentStatusCancelled)
	if err != nil {
		return fmt.Errorf("cancel open payments: %w", err)
	}
	return nil
}

// ReferenceInUse reports whether a transfer reference is already held by a
// PENDING or SUCCESS payment anywhere in the system.
func (s *PgStore) ReferenceInUse(ctx context.Context, reference string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM payments WHERE reference=$1 AND status IN ($2, $3))`
	var exists bool
	err := s.q.QueryRowContext(ctx, query, reference,
		models.PaymentStatusPending, models.PaymentStatusSuccess).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("reference in use: %w", err)
	}
	return exists, nil
}

func scanPayment(row rowScanner) (*models.PaymentRecord, error) {
	p := &models.PaymentRecord{}
	err := row.Scan(
		&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Status, &p.Reference, &p.Note,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
