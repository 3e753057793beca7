package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.ozon.dev/qwestard/cylinders/internal/apperrors"
	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
)

func seedCourier(t *testing.T, svc *Service) *models.Courier {
	t.Helper()
	c, err := svc.CreateCourier(context.Background(), CreateCourierRequest{
		Name:           "Brightline Gas Logistics",
		Phone:          "+100555777",
		CapacityPerDay: 40,
		ServiceArea:    "north district",
	})
	require.NoError(t, err)
	return c
}

func approvedOrder(t *testing.T, svc *Service, ownerID string) *models.Order {
	t.Helper()
	order := mustCreateOrder(t, svc, ownerID, 2, models.PaymentMethodOnDelivery)
	approved, err := svc.Approve(context.Background(), order.ID)
	require.NoError(t, err)
	return approved
}

func TestAssignDeliveryKeepsOrderApproved(t *testing.T) {
	svc, _ := newTestService()
	owner := seedOwner(t, svc, 8)
	courier := seedCourier(t, svc)
	order := approvedOrder(t, svc, owner.ID)

	assignment, err := svc.AssignDelivery(context.Background(), AssignDeliveryRequest{
		OrderID:      order.ID,
		CourierID:    courier.ID,
		ScheduledFor: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusAssigned, assignment.Status)

	got, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusApproved, got.Status, "assignment alone must not move the order")
}

func TestAssignDeliveryGuards(t *testing.T) {
	svc, _ := newTestService()
	owner := seedOwner(t, svc, 8)
	courier := seedCourier(t, svc)

	pending := mustCreateOrder(t, svc, owner.ID, 1, models.PaymentMethodOnDelivery)
	_, err := svc.AssignDelivery(context.Background(), AssignDeliveryRequest{OrderID: pending.ID, CourierID: courier.ID})
	assert.True(t, apperrors.IsConflict(err), "PENDING order is not assignable")

	order := approvedOrder(t, svc, owner.ID)
	require.NoError(t, svc.SetCourierActive(context.Background(), courier.ID, false))
	_, err = svc.AssignDelivery(context.Background(), AssignDeliveryRequest{OrderID: order.ID, CourierID: courier.ID})
	assert.True(t, apperrors.IsConflict(err), "inactive courier is not assignable")

	require.NoError(t, svc.SetCourierActive(context.Background(), courier.ID, true))
	_, err = svc.AssignDelivery(context.Background(), AssignDeliveryRequest{OrderID: order.ID, CourierID: courier.ID})
	require.NoError(t, err)

	_, err = svc.AssignDelivery(context.Background(), AssignDeliveryRequest{OrderID: order.ID, CourierID: courier.ID})
	assert.True(t, apperrors.IsConflict(err), "one live assignment per order")
}

func TestAdvanceDeliveryHappyPath(t *testing.T) {
	svc, _ := newTestService()
	owner := seedOwner(t, svc, 8)
	courier := seedCourier(t, svc)
	order := approvedOrder(t, svc, owner.ID)

	assignment, err := svc.AssignDelivery(context.Background(), AssignDeliveryRequest{OrderID: order.ID, CourierID: courier.ID})
	require.NoError(t, err)

	_, err = svc.AdvanceDelivery(context.Background(), assignment.ID, models.AssignmentStatusPickedUp)
	require.NoError(t, err)
	got, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusApproved, got.Status, "pickup keeps the order APPROVED")

	_, err = svc.AdvanceDelivery(context.Background(), assignment.ID, models.AssignmentStatusOutForDelivery)
	require.NoError(t, err)
	got, err = svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusOutForDelivery, got.Status)

	_, err = svc.AdvanceDelivery(context.Background(), assignment.ID, models.AssignmentStatusDelivered)
	require.NoError(t, err)
	got, err = svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, got.Status)
	assert.False(t, got.DeliveredAt.IsZero())
}

func TestAdvanceDeliverySkippingStages(t *testing.T) {
	svc, _ := newTestService()
	owner := seedOwner(t, svc, 8)
	courier := seedCourier(t, svc)
	order := approvedOrder(t, svc, owner.ID)

	assignment, err := svc.AssignDelivery(context.Background(), AssignDeliveryRequest{OrderID: order.ID, CourierID: courier.ID})
	require.NoError(t, err)

	_, err = svc.AdvanceDelivery(context.Background(), assignment.ID, models.AssignmentStatusDelivered)
	assert.True(t, apperrors.IsConflict(err), "ASSIGNED cannot jump to DELIVERED")

	_, err = svc.AdvanceDelivery(context.Background(), assignment.ID, "LOST")
	assert.True(t, apperrors.IsValidation(err))
}

func TestFailedDeliveryCancelsOrder(t *testing.T) {
	svc, st := newTestService()
	owner := seedOwner(t, svc, 8)
	courier := seedCourier(t, svc)
	order := approvedOrder(t, svc, owner.ID)
	require.Equal(t, 6, st.quota(owner.ID))

	assignment, err := svc.AssignDelivery(context.Background(), AssignDeliveryRequest{OrderID: order.ID, CourierID: courier.ID})
	require.NoError(t, err)
	_, err = svc.AdvanceDelivery(context.Background(), assignment.ID, models.AssignmentStatusPickedUp)
	require.NoError(t, err)

	failed, err := svc.AdvanceDelivery(context.Background(), assignment.ID, models.AssignmentStatusFailed)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusFailed, failed.Status)

	got, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	assert.Contains(t, got.Notes, "delivery failed")
	assert.Equal(t, 8, st.quota(owner.ID), "failed delivery returns the allowance")
}

func TestSetCourierActiveUnknown(t *testing.T) {
	svc, _ := newTestService()
	err := svc.SetCourierActive(context.Background(), "missing", false)
	assert.True(t, apperrors.IsNotFound(err))
}
