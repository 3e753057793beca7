package service

import (
	"context"
	"fmt"
	"time"

	"gitlab.ozon.dev/qwestard/cylinders/internal/apperrors"
	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
	"gitlab.ozon.dev/qwestard/cylinders/internal/repository"
)

type CreateOrderRequest struct {
	OwnerID       string               `json:"owner_id"`
	Quantity      int                  `json:"quantity"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	ExpectedAt    time.Time            `json:"expected_at"`
	Notes         string               `json:"notes"`
}

// CreateOrder reserves the owner's allowance, creates the order in PENDING,
// opens the first payment record and seeds the audit trail, all in one
// transaction.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*models.Order, error) {
	if req.Quantity < 1 {
		return nil, apperrors.Validation("quantity must be at least 1")
	}
	if !req.PaymentMethod.Valid() {
		return nil, apperrors.Validation("unknown payment method %q", req.PaymentMethod)
	}

	var order *models.Order
	err := s.store.WithTx(ctx, func(st repository.Store) error {
		owner, err := st.GetOwner(ctx, req.OwnerID)
		if err != nil {
			return err
		}
		if owner == nil {
			return apperrors.NotFound("owner %s not found", req.OwnerID)
		}
		if err := st.ReserveAllowance(ctx, req.OwnerID, req.Quantity); err != nil {
			return err
		}

		t := now()
		order = &models.Order{
			ID:             newID(),
			OwnerID:        owner.ID,
			Quantity:       req.Quantity,
			PaymentMethod:  req.PaymentMethod,
			Status:         models.OrderStatusPending,
			RequestedAt:    t,
			ExpectedAt:     req.ExpectedAt,
			Notes:          req.Notes,
			ContactName:    owner.Name,
			ContactPhone:   owner.Phone,
			ContactAddress: owner.Address,
		}
		if err := st.CreateOrder(ctx, order); err != nil {
			return err
		}

		payment := &models.PaymentRecord{
			ID:        newID(),
			OrderID:   order.ID,
			Amount:    float64(req.Quantity) * s.cfg.UnitPrice,
			Method:    req.PaymentMethod,
			Status:    models.PaymentStatusPending,
			CreatedAt: t,
			UpdatedAt: t,
		}
		if err := st.CreatePayment(ctx, payment); err != nil {
			return err
		}

		if err := st.AppendEvent(ctx, statusEvent(order.ID, order.Status,
			"Order received", fmt.Sprintf("Order for %d cylinder(s) registered", req.Quantity))); err != nil {
			return err
		}
		return st.AppendEvent(ctx, statusEvent(order.ID, order.Status,
			"Payment opened", fmt.Sprintf("Awaiting %s payment of %.2f", payment.Method, payment.Amount)))
	})
	if err != nil {
		return nil, err
	}

	s.notifyOrder(ctx, order, "order_created")
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperrors.NotFound("order %s not found", id)
	}
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, f repository.OrderFilter) ([]*models.Order, error) {
	return s.store.ListOrders(ctx, f)
}

func (s *Service) ListEvents(ctx context.Context, orderID string) ([]*models.OrderEvent, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.ListEvents(ctx, orderID)
}

// Approve moves PENDING to APPROVED. Prepaid orders must have their latest
// payment confirmed first.
func (s *Service) Approve(ctx context.Context, orderID string) (*models.Order, error) {
	var order *models.Order
	err := s.store.WithTx(ctx, func(st repository.Store) error {
		var err error
		order, err = s.getOrder(ctx, st, orderID)
		if err != nil {
			return err
		}
		if err := approveGuard(ctx, st, order); err != nil {
			return err
		}
		order.Status = models.OrderStatusApproved
		if err := st.UpdateOrder(ctx, order); err != nil {
			return err
		}
		return st.AppendEvent(ctx, statusEvent(order.ID, order.Status,
			"Order approved", "Status changed PENDING -> APPROVED"))
	})
	if err != nil {
		return nil, err
	}

	s.notifyOrder(ctx, order, "order_approved")
	return order, nil
}

// approveGuard holds the PENDING -> APPROVED legality check; the bulk
// coordinator reuses it for eligibility filtering.
func approveGuard(ctx context.Context, st repository.Store, o *models.Order) error {
	if !o.Status.CanTransition(models.OrderStatusApproved) {
		return apperrors.Conflict("order %s cannot be approved from %s", o.ID, o.Status)
	}
	if o.PaymentMethod == models.PaymentMethodPrepaidTransfer {
		latest, err := st.LatestPayment(ctx, o.ID)
		if err != nil {
			return err
		}
		if latest == nil || latest.Status != models.PaymentStatusSuccess {
			return apperrors.Conflict("order %s has no confirmed transfer payment", o.ID)
		}
	}
	return nil
}

// CancelByOwner is requester-initiated cancellation: only the order's owner,
// and only while the order is PENDING or APPROVED.
func (s *Service) CancelByOwner(ctx context.Context, orderID, ownerID string) (*models.Order, error) {
	var order *models.Order
	err := s.store.WithTx(ctx, func(st repository.Store) error {
		var err error
		order, err = s.getOrder(ctx, st, orderID)
		if err != nil {
			return err
		}
		if order.OwnerID != ownerID {
			return apperrors.NotFound("order %s not found", orderID)
		}
		if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusApproved {
			return apperrors.Conflict("order %s cannot be cancelled from %s by its owner", orderID, order.Status)
		}
		return cancelOrder(ctx, st, order, "cancelled by customer")
	})
	if err != nil {
		return nil, err
	}

	s.notifyOrder(ctx, order, "order_cancelled")
	return order, nil
}

// CancelByOperator cancels from any non-terminal state and requires a reason.
func (s *Service) CancelByOperator(ctx context.Context, orderID, reason string) (*models.Order, error) {
	if len(reason) < MinReasonLen {
		return nil, apperrors.Validation("cancellation reason must be at least %d characters", MinReasonLen)
	}
	var order *models.Order
	err := s.store.WithTx(ctx, func(st repository.Store) error {
		var err error
		order, err = s.getOrder(ctx, st, orderID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return apperrors.Conflict("order %s is already %s", orderID, order.Status)
		}
		return cancelOrder(ctx, st, order, reason)
	})
	if err != nil {
		return nil, err
	}

	s.notifyOrder(ctx, order, "order_cancelled")
	return order, nil
}

// cancelOrder applies the cancellation side effects: the full original
// quantity goes back to the allowance, every open payment is cancelled (a
// SUCCESS payment stays SUCCESS), the reason lands in the notes and the trail.
func cancelOrder(ctx context.Context, st repository.Store, o *models.Order, reason string) error {
	if err := st.ReleaseAllowance(ctx, o.OwnerID, o.Quantity); err != nil {
		return err
	}
	if err := st.CancelOpenPayments(ctx, o.ID); err != nil {
		return err
	}
	old := o.Status
	o.Status = models.OrderStatusCancelled
	o.Notes = appendNote(o.Notes, "cancelled: "+reason)
	if err := st.UpdateOrder(ctx, o); err != nil {
		return err
	}
	return st.AppendEvent(ctx, statusEvent(o.ID, o.Status,
		"Order cancelled", fmt.Sprintf("Status changed %s -> CANCELLED: %s", old, reason)))
}

type ResizeOrderRequest struct {
	OrderID  string `json:"-"`
	Quantity int    `json:"quantity"`
}

// Resize changes the quantity of a non-terminal order, settling the delta
// against the allowance and repricing the latest payment record.
func (s *Service) Resize(ctx context.Context, req ResizeOrderRequest) (*models.Order, error) {
	if req.Quantity < 1 {
		return nil, apperrors.Validation("quantity must be at least 1")
	}
	var order *models.Order
	err := s.store.WithTx(ctx, func(st repository.Store) error {
		var err error
		order, err = s.getOrder(ctx, st, req.OrderID)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return apperrors.Conflict("order %s is %s and cannot be resized", order.ID, order.Status)
		}
		delta := req.Quantity - order.Quantity
		if delta == 0 {
			return nil
		}
		if delta > 0 {
			if err := st.ReserveAllowance(ctx, order.OwnerID, delta); err != nil {
				return err
			}
		} else {
			if err := st.ReleaseAllowance(ctx, order.OwnerID, -delta); err != nil {
				return err
			}
		}

		oldQty := order.Quantity
		order.Quantity = req.Quantity
		if err := st.UpdateOrder(ctx, order); err != nil {
			return err
		}

		latest, err := st.LatestPayment(ctx, order.ID)
		if err != nil {
			return err
		}
		if latest != nil {
			latest.Amount = float64(req.Quantity) * s.cfg.UnitPrice
			latest.UpdatedAt = now()
			if err := st.UpdatePayment(ctx, latest); err != nil {
				return err
			}
		}

		return st.AppendEvent(ctx, statusEvent(order.ID, order.Status,
			"Order resized", fmt.Sprintf("Quantity changed %d -> %d", oldQty, req.Quantity)))
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) getOrder(ctx context.Context, st repository.Store, id string) (*models.Order, error) {
	o, err := st.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperrors.NotFound("order %s not found", id)
	}
	return o, nil
}
