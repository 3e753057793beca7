package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
	"gitlab.ozon.dev/qwestard/cylinders/internal/notify"
	"gitlab.ozon.dev/qwestard/cylinders/internal/repository"
)

const (
	// Minimum lengths for operator-facing free text. A transfer reference
	// shorter than this cannot be matched against a bank statement.
	MinReferenceLen = 6
	MinReasonLen    = 5
)

type Config struct {
	UnitPrice float64
}

// Service is the order lifecycle and inventory-consistency engine. All state
// moves through the injected Store; notifications go out after commit and are
// best-effort.
type Service struct {
	store    repository.Store
	notifier notify.Notifier
	cfg      Config
}

func NewService(store repository.Store, notifier notify.Notifier, cfg Config) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Service{store: store, notifier: notifier, cfg: cfg}
}

func now() time.Time {
	return time.Now().UTC()
}

func newID() string {
	return uuid.NewString()
}

func statusEvent(orderID string, status models.OrderStatus, title, description string) *models.OrderEvent {
	return &models.OrderEvent{
		ID:          newID(),
		OrderID:     orderID,
		Status:      status,
		Title:       title,
		Description: description,
		CreatedAt:   now(),
	}
}

func (s *Service) notifyOrder(ctx context.Context, o *models.Order, template string) {
	s.notifier.Send(ctx, o.ContactPhone, template, map[string]string{
		"order_id": o.ID,
		"status":   string(o.Status),
	})
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
