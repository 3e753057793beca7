package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
)

const orderColumns = `id, owner_id, quantity, payment_method, status,
		requested_at, expected_at, delivered_at, notes,
		contact_name, contact_phone, contact_address`

func (s *PgStore) CreateOrder(ctx context.Context, o *models.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := s.q.ExecContext(ctx, query,
		o.ID, o.OwnerID, o.Quantity, o.PaymentMethod, o.Status,
		o.RequestedAt, nullTime(o.ExpectedAt), nullTime(o.DeliveredAt), o.Notes,
		o.ContactName, o.ContactPhone, o.ContactAddress)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (s *PgStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	o, err := scanOrder(s.q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// UpdateOrder writes the mutable columns only; owner and identifiers never
// change after creation.
func (s *PgStore) UpdateOrder(ctx context.Context, o *models.Order) error {
	query := `UPDATE orders SET
			quantity=$1, status=$2, expected_at=$3, delivered_at=$4, notes=$5
		WHERE id=$6`
	res, err := s.q.ExecContext(ctx, query,
		o.Quantity, o.Status, nullTime(o.ExpectedAt), nullTime(o.DeliveredAt), o.Notes, o.ID)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("order %s not found", o.ID)
	}
	return nil
}

func (s *PgStore) ListOrders(ctx context.Context, f OrderFilter) ([]*models.Order, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	var filters []string
	var args []interface{}
	idx := 1

	query := `SELECT ` + orderColumns + ` FROM orders`
	if f.Cursor != "" {
		filters = append(filters, fmt.Sprintf("id>$%d", idx))
		args = append(args, f.Cursor)
		idx++
	}
	if f.OwnerID != "" {
		filters = append(filters, fmt.Sprintf("owner_id=$%d", idx))
		args = append(args, f.OwnerID)
		idx++
	}
	if f.Status != "" {
		filters = append(filters, fmt.Sprintf("status=$%d", idx))
		args = append(args, f.Status)
		idx++
	}
	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}
	query += " ORDER BY id ASC"
	query += fmt.Sprintf(" LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var res []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return res, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	o := &models.Order{}
	var expected, delivered sql.NullTime
	err := row.Scan(
		&o.ID, &o.OwnerID, &o.Quantity, &o.PaymentMethod, &o.Status,
		&o.RequestedAt, &expected, &delivered, &o.Notes,
		&o.ContactName, &o.ContactPhone, &o.ContactAddress)
	if err != nil {
		return nil, err
	}
	o.ExpectedAt = expected.Time
	o.DeliveredAt = delivered.Time
	return o, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
