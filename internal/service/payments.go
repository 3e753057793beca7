package service

import (
	"context"
	"fmt"
	"strings"

	"gitlab.ozon.dev/qwestard/cylinders/internal/apperrors"
	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
	"gitlab.ozon.dev/qwestard/cylinders/internal/repository"
)

// normalizeReference strips whitespace and upper-cases the bank reference so
// the uniqueness check cannot be dodged with formatting.
func normalizeReference(ref string) string {
	return strings.ToUpper(strings.Join(strings.Fields(ref), ""))
}

func validateReference(ref string) (string, error) {
	norm := normalizeReference(ref)
	if len(norm) < MinReferenceLen {
		return "", apperrors.Validation("transfer reference must be at least %d characters", MinReferenceLen)
	}
	return norm, nil
}

// SubmitTransfer attaches the requester's bank reference to the open payment
// of a PENDING prepaid order.
func (s *Service) SubmitTransfer(ctx context.Context, orderID, ownerID, reference string) (*models.PaymentRecord, error) {
	ref, err := validateReference(reference)
	if err != nil {
		return nil, err
	}

	var payment *models.PaymentRecord
	err = s.store.WithTx(ctx, func(st repository.Store) error {
		order, err := s.getOrder(ctx, st, orderID)
		if err != nil {
			return err
		}
		if order.OwnerID != ownerID {
			return apperrors.NotFound("order %s not found", orderID)
		}
		if order.PaymentMethod != models.PaymentMethodPrepaidTransfer {
			return apperrors.Conflict("order %s is not paid by transfer", orderID)
		}
		if order.Status != models.OrderStatusPending {
			return apperrors.Conflict("order %s is %s; transfers are submitted while PENDING", orderID, order.Status)
		}

		payment, err = st.LatestPayment(ctx, orderID)
		if err != nil {
			return err
		}
		if payment == nil || payment.Status != models.PaymentStatusPending {
			return apperrors.Conflict("order %s has no open payment to submit against", orderID)
		}
		if used, err := st.ReferenceInUse(ctx, ref); err != nil {
			return err
		} else if used {
			return apperrors.Conflict("payment reference %q already in use", ref)
		}

		payment.Reference = ref
		payment.UpdatedAt = now()
		if err := st.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		return st.AppendEvent(ctx, statusEvent(orderID, order.Status,
			"Transfer submitted", fmt.Sprintf("Reference %s awaiting review", ref)))
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ConfirmTransfer is the operator review step that accepts a submitted
// transfer. Only a PENDING payment with a usable reference can be confirmed;
// SUCCESS is terminal from here on.
func (s *Service) ConfirmTransfer(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	var payment *models.PaymentRecord
	err := s.store.WithTx(ctx, func(st repository.Store) error {
		var err error
		payment, err = s.getPayment(ctx, st, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != models.PaymentStatusPending {
			return apperrors.Conflict("payment %s is %s; only PENDING payments can be confirmed", paymentID, payment.Status)
		}
		ref, err := validateReference(payment.Reference)
		if err != nil {
			return err
		}
		payment.Reference = ref
		payment.Status = models.PaymentStatusSuccess
		payment.UpdatedAt = now()
		if err := st.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		return s.appendPaymentEvent(ctx, st, payment,
			"Payment confirmed", fmt.Sprintf("Transfer %s confirmed", ref))
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// RejectTransfer fails a PENDING payment with a mandatory reason. The record
// stays in history; the requester may retry with a fresh reference.
func (s *Service) RejectTransfer(ctx context.Context, paymentID, reason string) (*models.PaymentRecord, error) {
	if len(reason) < MinReasonLen {
		return nil, apperrors.Validation("rejection reason must be at least %d characters", MinReasonLen)
	}
	var payment *models.PaymentRecord
	err := s.store.WithTx(ctx, func(st repository.Store) error {
		var err error
		payment, err = s.getPayment(ctx, st, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != models.PaymentStatusPending {
			return apperrors.Conflict("payment %s is %s; only PENDING payments can be rejected", paymentID, payment.Status)
		}
		payment.Status = models.PaymentStatusFailed
		payment.Note = appendNote(payment.Note, "rejected: "+reason)
		payment.UpdatedAt = now()
		if err := st.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		return s.appendPaymentEvent(ctx, st, payment,
			"Payment rejected", reason)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// RetryTransfer opens a new PENDING payment after a rejection. The failed
// record is annotated, never deleted, so the attempt chain stays auditable.
func (s *Service) RetryTransfer(ctx context.Context, orderID, ownerID, reference string) (*models.PaymentRecord, error) {
	ref, err := validateReference(reference)
	if err != nil {
		return nil, err
	}

	var payment *models.PaymentRecord
	err = s.store.WithTx(ctx, func(st repository.Store) error {
		order, err := s.getOrder(ctx, st, orderID)
		if err != nil {
			return err
		}
		if order.OwnerID != ownerID {
			return apperrors.NotFound("order %s not found", orderID)
		}
		if order.Status != models.OrderStatusPending {
			return apperrors.Conflict("order %s is %s; transfers are retried while PENDING", orderID, order.Status)
		}

		latest, err := st.LatestPayment(ctx, orderID)
		if err != nil {
			return err
		}
		if latest == nil || latest.Status != models.PaymentStatusFailed {
			return apperrors.Conflict("order %s has no rejected payment to retry", orderID)
		}
		if used, err := st.ReferenceInUse(ctx, ref); err != nil {
			return err
		} else if used {
			return apperrors.Conflict("payment reference %q already in use", ref)
		}

		latest.Note = appendNote(latest.Note, "superseded by retry "+ref)
		latest.UpdatedAt = now()
		if err := st.UpdatePayment(ctx, latest); err != nil {
			return err
		}

		t := now()
		payment = &models.PaymentRecord{
			ID:        newID(),
			OrderID:   orderID,
			Amount:    float64(order.Quantity) * s.cfg.UnitPrice,
			Method:    order.PaymentMethod,
			Status:    models.PaymentStatusPending,
			Reference: ref,
			CreatedAt: t,
			UpdatedAt: t,
		}
		if err := st.CreatePayment(ctx, payment); err != nil {
			return err
		}
		return st.AppendEvent(ctx, statusEvent(orderID, order.Status,
			"Transfer retried", fmt.Sprintf("New reference %s awaiting review", ref)))
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// EditOnDeliveryPayment is the operator's direct edit for cash-on-delivery
// records, where no external gateway exists. Nil fields are left alone.
type EditOnDeliveryPayment struct {
	PaymentID string                `json:"-"`
	Amount    *float64              `json:"amount,omitempty"`
	Status    *models.PaymentStatus `json:"status,omitempty"`
}

func (s *Service) EditOnDelivery(ctx context.Context, cmd EditOnDeliveryPayment) (*models.PaymentRecord, error) {
	if cmd.Amount == nil && cmd.Status == nil {
		return nil, apperrors.Validation("nothing to update")
	}
	if cmd.Amount != nil && *cmd.Amount <= 0 {
		return nil, apperrors.Validation("amount must be positive")
	}
	if cmd.Status != nil && !cmd.Status.Valid() {
		return nil, apperrors.Validation("unknown payment status %q", *cmd.Status)
	}

	var payment *models.PaymentRecord
	err := s.store.WithTx(ctx, func(st repository.Store) error {
		var err error
		payment, err = s.getPayment(ctx, st, cmd.PaymentID)
		if err != nil {
			return err
		}
		if payment.Method != models.PaymentMethodOnDelivery {
			return apperrors.Conflict("payment %s is not on-delivery; use the reconciliation flow", cmd.PaymentID)
		}
		if cmd.Status != nil && payment.Status == models.PaymentStatusSuccess && *cmd.Status != models.PaymentStatusSuccess {
			return apperrors.Conflict("payment %s is SUCCESS and cannot be downgraded", cmd.PaymentID)
		}

		changed := ""
		if cmd.Amount != nil {
			changed = fmt.Sprintf("amount %.2f -> %.2f", payment.Amount, *cmd.Amount)
			payment.Amount = *cmd.Amount
		}
		if cmd.Status != nil {
			if changed != "" {
				changed += ", "
			}
			changed += fmt.Sprintf("status %s -> %s", payment.Status, *cmd.Status)
			payment.Status = *cmd.Status
		}
		payment.UpdatedAt = now()
		if err := st.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		return s.appendPaymentEvent(ctx, st, payment, "Payment edited", changed)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *Service) ListPayments(ctx context.Context, orderID string) ([]*models.PaymentRecord, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.ListPayments(ctx, orderID)
}

func (s *Service) getPayment(ctx context.Context, st repository.Store, id string) (*models.PaymentRecord, error) {
	p, err := st.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperrors.NotFound("payment %s not found", id)
	}
	return p, nil
}

// appendPaymentEvent records a payment-only change on the order trail without
// replaying status guards; the order status is unchanged.
func (s *Service) appendPaymentEvent(ctx context.Context, st repository.Store, p *models.PaymentRecord, title, description string) error {
	order, err := st.GetOrder(ctx, p.OrderID)
	if err != nil {
		return err
	}
	status := models.OrderStatus("")
	if order != nil {
		status = order.Status
	}
	return st.AppendEvent(ctx, statusEvent(p.OrderID, status, title, description))
}
