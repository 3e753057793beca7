package repository

import (
	"context"
	"database/sql"
	"fmt"

	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
)

const courierColumns = `id, name, phone, capacity_per_day, service_area, active, created_at`

func (s *PgStore) CreateCourier(ctx context.Context, c *models.Courier) error {
	query := `INSERT INTO couriers (` + courierColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := s.q.ExecContext(ctx, query,
		c.ID, c.Name, c.Phone, c.CapacityPerDay, c.ServiceArea, c.Active, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create courier: %w", err)
	}
	return nil
}

func (s *PgStore) GetCourier(ctx context.Context, id string) (*models.Courier, error) {
	query := `SELECT ` + courierColumns + ` FROM couriers WHERE id=$1`
	c := &models.Courier{}
	err := s.q.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Phone, &c.CapacityPerDay, &c.ServiceArea, &c.Active, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get courier by id: %w", err)
	}
	return c, nil
}

func (s *PgStore) ListCouriers(ctx context.Context) ([]*models.Courier, error) {
	query := `SELECT ` + courierColumns + ` FROM couriers ORDER BY created_at ASC`
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list couriers: %w", err)
	}
	defer rows.Close()

	var res []*models.Courier
	for rows.Next() {
		c := &models.Courier{}
		err := rows.Scan(
			&c.ID, &c.Name, &c.Phone, &c.CapacityPerDay, &c.ServiceArea, &c.Active, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan courier: %w", err)
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list couriers: %w", err)
	}
	return res, nil
}

func (s *PgStore) SetCourierActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE couriers SET active=$1 WHERE id=$2`
	res, err := s.q.ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("set courier active: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("courier %s not found", id)
	}
	return nil
}
