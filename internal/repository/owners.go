package repository

import (
	"context"
	"database/sql"
	"fmt"

	"gitlab.ozon.dev/qwestard/cylinders/internal/apperrors"
	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
)

func (s *PgStore) CreateOwner(ctx context.Context, o *models.Owner) error {
	query := `INSERT INTO owners (id, name, phone, address, remaining_quota, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := s.q.ExecContext(ctx, query,
		o.ID, o.Name, o.Phone, o.Address, o.RemainingQuota, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("create owner: %w", err)
	}
	return nil
}

func (s *PgStore) GetOwner(ctx context.Context, id string) (*models.Owner, error) {
	query := `SELECT id, name, phone, address, remaining_quota, created_at
		FROM owners WHERE id=$1`
	o := &models.Owner{}
	err := s.q.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.Name, &o.Phone, &o.Address, &o.RemainingQuota, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get owner by id: %w", err)
	}
	return o, nil
}

// ReserveAllowance decrements the owner's quota only when enough remains. The
// condition lives in the UPDATE itself, so two concurrent reservations for the
// same owner cannot both pass on a stale read.
func (s *PgStore) ReserveAllowance(ctx context.Context, ownerID string, amount int) error {
	query := `UPDATE owners SET remaining_quota = remaining_quota - $1
		WHERE id = $2 AND remaining_quota >= $1`
	res, err := s.q.ExecContext(ctx, query, amount, ownerID)
	if err != nil {
		return fmt.Errorf("reserve allowance: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		owner, err := s.GetOwner(ctx, ownerID)
		if err != nil {
			return err
		}
		if owner == nil {
			return apperrors.NotFound("owner %s not found", ownerID)
		}
		return apperrors.Conflict("insufficient allowance: %d requested, %d remaining", amount, owner.RemainingQuota)
	}
	return nil
}

func (s *PgStore) ReleaseAllowance(ctx context.Context, ownerID string, amount int) error {
	query := `UPDATE owners SET remaining_quota = remaining_quota + $1 WHERE id = $2`
	res, err := s.q.ExecContext(ctx, query, amount, ownerID)
	if err != nil {
		return fmt.Errorf("release allowance: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperrors.NotFound("owner %s not found", ownerID)
	}
	return nil
}
