package service

import (
	"context"
	"fmt"
	"time"

	"gitlab.ozon.dev/qwestard/cylinders/internal/apperrors"
	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
	"gitlab.ozon.dev/qwestard/cylinders/internal/repository"
)

type AssignDeliveryRequest struct {
	OrderID      string    `json:"-"`
	CourierID    string    `json:"courier_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
	Priority     int       `json:"priority"`
}

// AssignDelivery binds an APPROVED order to an active courier. The order stays
// APPROVED until the courier confirms pickup; choosing a partner is not the
// same as the cylinders moving.
func (s *Service) AssignDelivery(ctx context.Context, req AssignDeliveryRequest) (*models.DeliveryAssignment, error) {
	var assignment *models.DeliveryAssignment
	err := s.store.WithTx(ctx, func(st repository.Store) error {
		order, err := s.getOrder(ctx, st, req.OrderID)
		if err != nil {
			return err
		}
		courier, err := st.GetCourier(ctx, req.CourierID)
		if err != nil {
			return err
		}
		if courier == nil {
			return apperrors.NotFound("courier %s not found", req.CourierID)
		}
		if err := assignGuard(ctx, st, order, courier); err != nil {
			return err
		}

		t := now()
		assignment = &models.DeliveryAssignment{
			ID:           newID(),
			OrderID:      order.ID,
			CourierID:    courier.ID,
			Status:       models.AssignmentStatusAssigned,
			ScheduledFor: req.ScheduledFor,
			Priority:     req.Priority,
			CreatedAt:    t,
			UpdatedAt:    t,
		}
		if err := st.CreateAssignment(ctx, assignment); err != nil {
			return err
		}
		return st.AppendEvent(ctx, statusEvent(order.ID, order.Status,
			"Courier assigned", fmt.Sprintf("Courier %s scheduled for %s", courier.Name, req.ScheduledFor.Format("2006-01-02"))))
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// assignGuard holds the assignment legality check; the bulk coordinator
// reuses it for eligibility filtering.
func assignGuard(ctx context.Context, st repository.Store, o *models.Order, courier *models.Courier) error {
	if o.Status != models.OrderStatusApproved {
		return apperrors.Conflict("order %s is %s; only APPROVED orders can be assigned", o.ID, o.Status)
	}
	if !courier.Active {
		return apperrors.Conflict("courier %s is not active", courier.ID)
	}
	existing, err := st.AssignmentByOrder(ctx, o.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperrors.Conflict("order %s already has a delivery assignment", o.ID)
	}
	return nil
}

// AdvanceDelivery moves the assignment sub-status forward and propagates the
// matching order status: pickup keeps the order APPROVED, out-for-delivery
// and delivered track it, failure cancels the order with full side effects.
func (s *Service) AdvanceDelivery(ctx context.Context, assignmentID string, newStatus models.AssignmentStatus) (*models.DeliveryAssignment, error) {
	if !newStatus.Valid() {
		return nil, apperrors.Validation("unknown assignment status %q", newStatus)
	}

	var assignment *models.DeliveryAssignment
	var order *models.Order
	err := s.store.WithTx(ctx, func(st repository.Store) error {
		var err error
		assignment, err = st.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if assignment == nil {
			return apperrors.NotFound("assignment %s not found", assignmentID)
		}
		if !assignment.Status.CanTransition(newStatus) {
			return apperrors.Conflict("assignment %s cannot move %s -> %s", assignmentID, assignment.Status, newStatus)
		}

		order, err = s.getOrder(ctx, st, assignment.OrderID)
		if err != nil {
			return err
		}

		oldAssignment := assignment.Status
		assignment.Status = newStatus
		assignment.UpdatedAt = now()
		if err := st.UpdateAssignment(ctx, assignment); err != nil {
			return err
		}

		if newStatus == models.AssignmentStatusFailed {
			if order.Status.Terminal() {
				return apperrors.Conflict("order %s is already %s", order.ID, order.Status)
			}
			return cancelOrder(ctx, st, order, "delivery failed")
		}

		next := newStatus.OrderStatusAfter()
		if next == "" || next == order.Status {
			return st.AppendEvent(ctx, statusEvent(order.ID, order.Status,
				"Delivery update", fmt.Sprintf("Assignment moved %s -> %s", oldAssignment, newStatus)))
		}
		if !order.Status.CanTransition(next) {
			return apperrors.Conflict("order %s cannot move %s -> %s", order.ID, order.Status, next)
		}
		old := order.Status
		order.Status = next
		if next == models.OrderStatusDelivered {
			order.DeliveredAt = now()
		}
		if err := st.UpdateOrder(ctx, order); err != nil {
			return err
		}
		return st.AppendEvent(ctx, statusEvent(order.ID, order.Status,
			"Delivery update", fmt.Sprintf("Assignment moved %s -> %s; order %s -> %s", oldAssignment, newStatus, old, next)))
	})
	if err != nil {
		return nil, err
	}

	s.notifyOrder(ctx, order, "delivery_"+string(newStatus))
	return assignment, nil
}

type CreateCourierRequest struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	CapacityPerDay int    `json:"capacity_per_day"`
	ServiceArea    string `json:"service_area"`
}

func (s *Service) CreateCourier(ctx context.Context, req CreateCourierRequest) (*models.Courier, error) {
	if req.Name == "" {
		return nil, apperrors.Validation("courier name is required")
	}
	if req.CapacityPerDay < 0 {
		return nil, apperrors.Validation("capacity must not be negative")
	}
	c := &models.Courier{
		ID:             newID(),
		Name:           req.Name,
		Phone:          req.Phone,
		CapacityPerDay: req.CapacityPerDay,
		ServiceArea:    req.ServiceArea,
		Active:         true,
		CreatedAt:      now(),
	}
	if err := s.store.CreateCourier(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListCouriers(ctx context.Context) ([]*models.Courier, error) {
	return s.store.ListCouriers(ctx)
}

func (s *Service) SetCourierActive(ctx context.Context, id string, active bool) error {
	courier, err := s.store.GetCourier(ctx, id)
	if err != nil {
		return err
	}
	if courier == nil {
		return apperrors.NotFound("courier %s not found", id)
	}
	return s.store.SetCourierActive(ctx, id, active)
}
