package repository

import (
	"context"

	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
)

// Store is the data-access surface the service layer works against. WithTx
// hands the callback a Store bound to one transaction; every multi-entity
// mutation in the engine goes through it so partial application is impossible.
type Store interface {
	WithTx(ctx context.Context, fn func(Store) error) error

	CreateOwner(ctx context.Context, o *models.Owner) error
	GetOwner(ctx context.Context, id string) (*models.Owner, error)
	ReserveAllowance(ctx context.Context, ownerID string, amount int) error
	ReleaseAllowance(ctx context.Context, ownerID string, amount int) error

	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]*models.Order, error)
	UpdateOrder(ctx context.Context, o *models.Order) error

	CreatePayment(ctx context.Context, p *models.PaymentRecord) error
	GetPayment(ctx context.Context, id string) (*models.PaymentRecord, error)
	LatestPayment(ctx context.Context, orderID string) (*models.PaymentRecord, error)
	ListPayments(ctx context.Context, orderID string) ([]*models.PaymentRecord, error)
	UpdatePayment(ctx context.Context, p *models.PaymentRecord) error
	CancelOpenPayments(ctx context.Context, orderID string) error
	ReferenceInUse(ctx context.Context, reference string) (bool, error)

	CreateCourier(ctx context.Context, c *models.Courier) error
	GetCourier(ctx context.Context, id string) (*models.Courier, error)
	ListCouriers(ctx context.Context) ([]*models.Courier, error)
	SetCourierActive(ctx context.Context, id string, active bool) error

	CreateAssignment(ctx context.Context, a *models.DeliveryAssignment) error
	GetAssignment(ctx context.Context, id string) (*models.DeliveryAssignment, error)
	AssignmentByOrder(ctx context.Context, orderID string) (*models.DeliveryAssignment, error)
	UpdateAssignment(ctx context.Context, a *models.DeliveryAssignment) error

	AppendEvent(ctx context.Context, e *models.OrderEvent) error
	ListEvents(ctx context.Context, orderID string) ([]*models.OrderEvent, error)

	CreateBatch(ctx context.Context, b *models.StockBatch) error
	GetBatch(ctx context.Context, id string) (*models.StockBatch, error)
	DeleteBatch(ctx context.Context, id string) error
	InsertAdjustment(ctx context.Context, a *models.StockAdjustment) error
	StockTotal(ctx context.Context) (int, error)
	ListAdjustments(ctx context.Context, limit int64) ([]*models.StockAdjustment, error)
}

// OrderFilter narrows ListOrders. Cursor is an exclusive lower bound on the
// order id for keyset pagination.
type OrderFilter struct {
	Cursor  string
	Limit   int64
	OwnerID string
	Status  models.OrderStatus
}
