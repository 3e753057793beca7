package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.ozon.dev/qwestard/cylinders/internal/apperrors"
	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
)

const testUnitPrice = 100

func newTestService() (*Service, *memStore) {
	st := newMemStore()
	return NewService(st, nil, Config{UnitPrice: testUnitPrice}), st
}

func seedOwner(t *testing.T, svc *Service, quota int) *models.Owner {
	t.Helper()
	owner, err := svc.CreateOwner(context.Background(), CreateOwnerRequest{
		Name:    "Ada",
		Phone:   "+100200300",
		Address: "12 Main st",
		Quota:   quota,
	})
	require.NoError(t, err)
	return owner
}

func mustCreateOrder(t *testing.T, svc *Service, ownerID string, qty int, method models.PaymentMethod) *models.Order {
	t.Helper()
	order, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		OwnerID:       ownerID,
		Quantity:      qty,
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrderReservesAllowance(t *testing.T) {
	svc, st := newTestService()
	owner := seedOwner(t, svc, 8)

	order := mustCreateOrder(t, svc, owner.ID, 3, models.PaymentMethodOnDelivery)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 5, st.quota(owner.ID))

	payments, err := svc.ListPayments(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentStatusPending, payments[0].Status)
	assert.Equal(t, float64(3*testUnitPrice), payments[0].Amount)

	events, err := svc.ListEvents(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestCreateOrderInsufficientAllowance(t *testing.T) {
	svc, st := newTestService()
	owner := seedOwner(t, svc, 2)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		OwnerID:       owner.ID,
		Quantity:      3,
		PaymentMethod: models.PaymentMethodOnDelivery,
	})
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, 2, st.quota(owner.ID))
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _ := newTestService()
	owner := seedOwner(t, svc, 8)

	_, err := svc.CreateOrder(context.Background(), CreateOrderRequest{
		OwnerID: owner.ID, Quantity: 0, PaymentMethod: models.PaymentMethodOnDelivery,
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.CreateOrder(context.Background(), CreateOrderRequest{
		OwnerID: owner.ID, Quantity: 1, PaymentMethod: "BARTER",
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.CreateOrder(context.Background(), CreateOrderRequest{
		OwnerID: "missing", Quantity: 1, PaymentMethod: models.PaymentMethodOnDelivery,
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCancelReturnsAllowance(t *testing.T) {
	svc, st := newTestService()
	owner := seedOwner(t, svc, 8)
	order := mustCreateOrder(t, svc, owner.ID, 3, models.PaymentMethodOnDelivery)
	require.Equal(t, 5, st.quota(owner.ID))

	cancelled, err := svc.CancelByOwner(context.Background(), order.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 8, st.quota(owner.ID))

	payments, err := svc.ListPayments(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentStatusCancelled, payments[0].Status)
}

func TestCancelTwiceDoesNotDoubleRelease(t *testing.T) {
	svc, st := newTestService()
	owner := seedOwner(t, svc, 8)
	order := mustCreateOrder(t, svc, owner.ID, 3, models.PaymentMethodOnDelivery)

	_, err := svc.CancelByOwner(context.Background(), order.ID, owner.ID)
	require.NoError(t, err)

	_, err = svc.CancelByOwner(context.Background(), order.ID, owner.ID)
	assert.True(t, apperrors.IsConflict(err))
	_, err = svc.CancelByOperator(context.Background(), order.ID, "duplicate request")
	assert.True(t, apperrors.IsConflict(err))

	assert.Equal(t, 8, st.quota(owner.ID))
}

func TestCancelByOwnerHidesForeignOrders(t *testing.T) {
	svc, _ := newTestService()
	owner := seedOwner(t, svc, 8)
	order := mustCreateOrder(t, svc, owner.ID, 1, models.PaymentMethodOnDelivery)

	_, err := svc.CancelByOwner(context.Background(), order.ID, "someone-else")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCancelByOwnerBlockedAfterDispatch(t *testing.T) {
	svc, st := newTestService()
	owner := seedOwner(t, svc, 8)
	order := mustCreateOrder(t, svc, owner.ID, 1, models.PaymentMethodOnDelivery)
	forceStatus(t, st, order.ID, models.OrderStatusOutForDelivery)

	_, err := svc.CancelByOwner(context.Background(), order.ID, owner.ID)
	assert.True(t, apperrors.IsConflict(err))
}

func TestCancelByOperatorRequiresReason(t *testing.T) {
	svc, _ := newTestService()
	owner := seedOwner(t, svc, 8)
	order := mustCreateOrder(t, svc, owner.ID, 1, models.PaymentMethodOnDelivery)

	_, err := svc.CancelByOperator(context.Background(), order.ID, "why")
	assert.True(t, apperrors.IsValidation(err))
}

func TestConcurrentCreatesRespectAllowance(t *testing.T) {
	svc, st := newTestService()
	owner := seedOwner(t, svc, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateOrder(context.Background(), CreateOrderRequest{
				OwnerID:       owner.ID,
				Quantity:      1,
				PaymentMethod: models.PaymentMethodOnDelivery,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperrors.IsConflict(err))
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, st.quota(owner.ID))
}

func TestApproveOnDeliveryOrder(t *testing.T) {
	svc, _ := newTestService()
	owner := seedOwner(t, svc, 8)
	order := mustCreateOrder(t, svc, owner.ID, 2, models.PaymentMethodOnDelivery)

	approved, err := svc.Approve(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusApproved, approved.Status)

	_, err = svc.Approve(context.Background(), order.ID)
	assert.True(t, apperrors.IsConflict(err))
}

func TestApprovePrepaidNeedsConfirmedTransfer(t *testing.T) {
	svc, _ := newTestService()
	owner := seedOwner(t, svc, 8)
	order := mustCreateOrder(t, svc, owner.ID, 2, models.PaymentMethodPrepaidTransfer)

	_, err := svc.Approve(context.Background(), order.ID)
	assert.True(t, apperrors.IsConflict(err))

	payment, err := svc.SubmitTransfer(context.Background(), order.ID, owner.ID, "TX-774411")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), order.ID)
	assert.True(t, apperrors.IsConflict(err), "submitted but unconfirmed transfer must not unlock approval")

	_, err = svc.ConfirmTransfer(context.Background(), payment.ID)
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusApproved, approved.Status)
}

func TestResizeSettlesAllowanceDelta(t *testing.T) {
	svc, st := newTestService()
	owner := seedOwner(t, svc, 10)
	order := mustCreateOrder(t, svc, owner.ID, 4, models.PaymentMethodOnDelivery)
	require.Equal(t, 6, st.quota(owner.ID))

	resized, err := svc.Resize(context.Background(), ResizeOrderRequest{OrderID: order.ID, Quantity: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, resized.Quantity)
	assert.Equal(t, 3, st.quota(owner.ID))

	resized, err = svc.Resize(context.Background(), ResizeOrderRequest{OrderID: order.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, resized.Quantity)
	assert.Equal(t, 8, st.quota(owner.ID))

	payments, err := svc.ListPayments(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, float64(2*testUnitPrice), payments[0].Amount)
}

func TestResizeBeyondAllowance(t *testing.T) {
	svc, st := newTestService()
	owner := seedOwner(t, svc, 5)
	order := mustCreateOrder(t, svc, owner.ID, 4, models.PaymentMethodOnDelivery)

	_, err := svc.Resize(context.Background(), ResizeOrderRequest{OrderID: order.ID, Quantity: 7})
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, 1, st.quota(owner.ID))

	got, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Quantity)
}

func TestResizeTerminalOrder(t *testing.T) {
	svc, _ := newTestService()
	owner := seedOwner(t, svc, 8)
	order := mustCreateOrder(t, svc, owner.ID, 2, models.PaymentMethodOnDelivery)
	_, err := svc.CancelByOwner(context.Background(), order.ID, owner.ID)
	require.NoError(t, err)

	_, err = svc.Resize(context.Background(), ResizeOrderRequest{OrderID: order.ID, Quantity: 1})
	assert.True(t, apperrors.IsConflict(err))
}

// forceStatus pushes an order into a state the public API would need a longer
// setup to reach.
func forceStatus(t *testing.T, st *memStore, orderID string, status models.OrderStatus) {
	t.Helper()
	o, err := st.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	require.NotNil(t, o)
	o.Status = status
	require.NoError(t, st.UpdateOrder(context.Background(), o))
}
