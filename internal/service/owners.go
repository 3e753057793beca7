package service

import (
	"context"

	"gitlab.ozon.dev/qwestard/cylinders/internal/apperrors"
	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
)

type CreateOwnerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Quota   int    `json:"quota"`
}

func (s *Service) CreateOwner(ctx context.Context, req CreateOwnerRequest) (*models.Owner, error) {
	if req.Name == "" {
		return nil, apperrors.Validation("owner name is required")
	}
	if req.Quota < 0 {
		return nil, apperrors.Validation("quota must not be negative")
	}
	o := &models.Owner{
		ID:             newID(),
		Name:           req.Name,
		Phone:          req.Phone,
		Address:        req.Address,
		RemainingQuota: req.Quota,
		CreatedAt:      now(),
	}
	if err := s.store.CreateOwner(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) GetOwner(ctx context.Context, id string) (*models.Owner, error) {
	o, err := s.store.GetOwner(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperrors.NotFound("owner %s not found", id)
	}
	return o, nil
}
