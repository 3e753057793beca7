package models

import "time"

// OrderEvent is one append-only audit trail entry. Rows are never mutated or
// deleted; tracking views read them in insertion order.
type OrderEvent struct {
	ID          string      `json:"id"`
	OrderID     string      `json:"order_id"`
	Status      OrderStatus `json:"status"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	CreatedAt   time.Time   `json:"created_at"`
}
