package models

import "time"

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusApproved       OrderStatus = "APPROVED"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentMethodOnDelivery      PaymentMethod = "ON_DELIVERY"
	PaymentMethodPrepaidTransfer PaymentMethod = "PREPAID_TRANSFER"
)

type Order struct {
	ID            string        `json:"id"`
	OwnerID       string        `json:"owner_id"`
	Quantity      int           `json:"quantity"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        OrderStatus   `json:"status"`
	RequestedAt   time.Time     `json:"requested_at"`
	ExpectedAt    time.Time     `json:"expected_at,omitempty"`
	DeliveredAt   time.Time     `json:"delivered_at,omitempty"`
	Notes         string        `json:"notes,omitempty"`

	// Denormalized owner contact for display and notifications.
	ContactName    string `json:"contact_name"`
	ContactPhone   string `json:"contact_phone"`
	ContactAddress string `json:"contact_address"`
}

// transitions is the only place the order status DAG is spelled out. Every
// caller that wants to move an order goes through CanTransition; nothing else
// re-derives legality.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusApproved, OrderStatusCancelled},
	OrderStatusApproved:       {OrderStatusOutForDelivery, OrderStatusCancelled},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:      {},
	OrderStatusCancelled:      {},
}

func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodOnDelivery || m == PaymentMethodPrepaidTransfer
}
