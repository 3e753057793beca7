package receipt

import (
	"bytes"
	"fmt"
	"time"

	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
)

// Renderer produces a receipt document for an order snapshot. Rendering has no
// effect on state; callers treat failures as best-effort.
type Renderer interface {
	Render(order *models.Order, payments []*models.PaymentRecord) ([]byte, error)
}

// TextRenderer writes a plain-text receipt.
type TextRenderer struct{}

func (TextRenderer) Render(order *models.Order, payments []*models.PaymentRecord) ([]byte, error) {
	if order == nil {
		return nil, fmt.Errorf("render receipt: nil order")
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "RECEIPT %s\n", order.ID)
	fmt.Fprintf(&b, "Customer: %s (%s)\n", order.ContactName, order.ContactPhone)
	fmt.Fprintf(&b, "Address:  %s\n", order.ContactAddress)
	fmt.Fprintf(&b, "Cylinders: %d\n", order.Quantity)
	fmt.Fprintf(&b, "Status:    %s\n", order.Status)
	fmt.Fprintf(&b, "Requested: %s\n", order.RequestedAt.Format(time.RFC3339))
	if !order.DeliveredAt.IsZero() {
		fmt.Fprintf(&b, "Delivered: %s\n", order.DeliveredAt.Format(time.RFC3339))
	}
	for _, p := range payments {
		fmt.Fprintf(&b, "Payment %s: %.2f %s %s", p.ID, p.Amount, p.Method, p.Status)
		if p.Reference != "" {
			fmt.Fprintf(&b, " ref=%s", p.Reference)
		}
		b.WriteByte('\n')
	}
	return b.Bytes(), nil
}
