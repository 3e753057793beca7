package repository

import (
	"context"
	"database/sql"
	"fmt"

	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
)

func (s *PgStore) CreateBatch(ctx context.Context, b *models.StockBatch) error {
	query := `INSERT INTO stock_batches (id, supplier, invoice_ref, quantity, received_at)
		VALUES ($1,$2,$3,$4,$5)`
	_, err := s.q.ExecContext(ctx, query,
		b.ID, b.Supplier, b.InvoiceRef, b.Quantity, b.ReceivedAt)
	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

func (s *PgStore) GetBatch(ctx context.Context, id string) (*models.StockBatch, error) {
	query := `SELECT id, supplier, invoice_ref, quantity, received_at
		FROM stock_batches WHERE id=$1`
	b := &models.StockBatch{}
	err := s.q.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.Supplier, &b.InvoiceRef, &b.Quantity, &b.ReceivedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get batch by id: %w", err)
	}
	return b, nil
}

func (s *PgStore) DeleteBatch(ctx context.Context, id string) error {
	query := `DELETE FROM stock_batches WHERE id=$1`
	res, err := s.q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("batch %s not found", id)
	}
	return nil
}

// InsertAdjustment appends the immutable ledger row and moves the cached
// running total in the same statement pair. Callers wrap this in WithTx.
func (s *PgStore) InsertAdjustment(ctx context.Context, a *models.StockAdjustment) error {
	query := `INSERT INTO stock_adjustments (id, delta, type, reason, batch_id, order_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := s.q.ExecContext(ctx, query,
		a.ID, a.Delta, a.Type, a.Reason, nullString(a.BatchID), nullString(a.OrderID), a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert adjustment: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `UPDATE stock_totals SET total = total + $1 WHERE id = 1`, a.Delta)
	if err != nil {
		return fmt.Errorf("move stock total: %w", err)
	}
	return nil
}

func (s *PgStore) StockTotal(ctx context.Context) (int, error) {
	var total int
	err := s.q.QueryRowContext(ctx, `SELECT total FROM stock_totals WHERE id = 1`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("stock total: %w", err)
	}
	return total, nil
}

func (s *PgStore) ListAdjustments(ctx context.Context, limit int64) ([]*models.StockAdjustment, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, delta, type, reason, batch_id, order_id, created_at
		FROM stock_adjustments ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := s.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var res []*models.StockAdjustment
	for rows.Next() {
		a := &models.StockAdjustment{}
		var batchID, orderID sql.NullString
		err := rows.Scan(&a.ID, &a.Delta, &a.Type, &a.Reason, &batchID, &orderID, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		a.BatchID = batchID.String
		a.OrderID = orderID.String
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	return res, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
