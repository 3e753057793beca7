package service

import (
	"context"
	"strings"

	"gitlab.ozon.dev/qwestard/cylinders/internal/apperrors"
	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
	"gitlab.ozon.dev/qwestard/cylinders/internal/repository"
)

type BulkAction string

const (
	BulkActionApprove        BulkAction = "approve"
	BulkActionAssignDelivery BulkAction = "assign-delivery"
	BulkActionCancel         BulkAction = "cancel"
)

type BulkRequest struct {
	Action   BulkAction            `json:"action"`
	OrderIDs []string              `json:"order_ids"`
	Reason   string                `json:"reason,omitempty"`
	Delivery AssignDeliveryRequest `json:"delivery,omitempty"`
}

type BulkResult struct {
	Affected    int               `json:"affected"`
	AffectedIDs []string          `json:"affected_ids"`
	Skipped     []string          `json:"skipped,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// Bulk applies one action across many orders. A DELIVERED order anywhere in
// the selection rejects the whole call before anything is touched; after that,
// ineligible orders are quietly skipped and the rest are mutated in one
// transaction, so a retried call simply re-excludes the already-advanced ones.
func (s *Service) Bulk(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	if len(req.OrderIDs) == 0 {
		return nil, apperrors.Validation("no orders selected")
	}
	switch req.Action {
	case BulkActionApprove, BulkActionAssignDelivery, BulkActionCancel:
	default:
		return nil, apperrors.Validation("unknown bulk action %q", req.Action)
	}
	if req.Action == BulkActionCancel && len(req.Reason) < MinReasonLen {
		return nil, apperrors.Validation("cancellation reason must be at least %d characters", MinReasonLen)
	}

	result := &BulkResult{Errors: map[string]string{}}
	err := s.store.WithTx(ctx, func(st repository.Store) error {
		orders := make([]*models.Order, 0, len(req.OrderIDs))
		var delivered []string
		for _, id := range req.OrderIDs {
			o, err := st.GetOrder(ctx, id)
			if err != nil {
				return err
			}
			if o == nil {
				result.Errors[id] = "order not found"
				continue
			}
			if o.Status == models.OrderStatusDelivered {
				delivered = append(delivered, id)
				continue
			}
			orders = append(orders, o)
		}
		if len(delivered) > 0 {
			return apperrors.Conflict("service fulfilled, no bulk mutation allowed: %s", strings.Join(delivered, ", "))
		}

		var courier *models.Courier
		if req.Action == BulkActionAssignDelivery {
			var err error
			courier, err = st.GetCourier(ctx, req.Delivery.CourierID)
			if err != nil {
				return err
			}
			if courier == nil {
				return apperrors.NotFound("courier %s not found", req.Delivery.CourierID)
			}
			if !courier.Active {
				return apperrors.Conflict("courier %s is not active", courier.ID)
			}
		}

		for _, o := range orders {
			eligible, err := s.bulkApply(ctx, st, req, o, courier)
			if err != nil {
				return err
			}
			if eligible {
				result.Affected++
				result.AffectedIDs = append(result.AffectedIDs, o.ID)
			} else {
				result.Skipped = append(result.Skipped, o.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result, nil
}

// bulkApply runs the single-order mutation when the order passes the action's
// guard; a guard conflict means "skip", any other failure aborts the call.
func (s *Service) bulkApply(ctx context.Context, st repository.Store, req BulkRequest, o *models.Order, courier *models.Courier) (bool, error) {
	switch req.Action {
	case BulkActionApprove:
		if err := approveGuard(ctx, st, o); err != nil {
			if apperrors.IsConflict(err) {
				return false, nil
			}
			return false, err
		}
		o.Status = models.OrderStatusApproved
		if err := st.UpdateOrder(ctx, o); err != nil {
			return false, err
		}
		return true, st.AppendEvent(ctx, statusEvent(o.ID, o.Status,
			"Order approved", "Status changed PENDING -> APPROVED (bulk)"))

	case BulkActionAssignDelivery:
		if err := assignGuard(ctx, st, o, courier); err != nil {
			if apperrors.IsConflict(err) {
				return false, nil
			}
			return false, err
		}
		t := now()
		assignment := &models.DeliveryAssignment{
			ID:           newID(),
			OrderID:      o.ID,
			CourierID:    courier.ID,
			Status:       models.AssignmentStatusAssigned,
			ScheduledFor: req.Delivery.ScheduledFor,
			Priority:     req.Delivery.Priority,
			CreatedAt:    t,
			UpdatedAt:    t,
		}
		if err := st.CreateAssignment(ctx, assignment); err != nil {
			return false, err
		}
		return true, st.AppendEvent(ctx, statusEvent(o.ID, o.Status,
			"Courier assigned", "Courier "+courier.Name+" assigned (bulk)"))

	case BulkActionCancel:
		if o.Status.Terminal() {
			return false, nil
		}
		if err := cancelOrder(ctx, st, o, req.Reason); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, apperrors.Validation("unknown bulk action %q", req.Action)
}
