package models

import "time"

type AssignmentStatus string

const (
	AssignmentStatusAssigned       AssignmentStatus = "ASSIGNED"
	AssignmentStatusPickedUp       AssignmentStatus = "PICKED_UP"
	AssignmentStatusOutForDelivery AssignmentStatus = "OUT_FOR_DELIVERY"
	AssignmentStatusDelivered      AssignmentStatus = "DELIVERED"
	AssignmentStatusFailed         AssignmentStatus = "FAILED"
)

type Courier struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	CapacityPerDay int       `json:"capacity_per_day"`
	ServiceArea    string    `json:"service_area"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

type DeliveryAssignment struct {
	ID           string           `json:"id"`
	OrderID      string           `json:"order_id"`
	CourierID    string           `json:"courier_id"`
	Status       AssignmentStatus `json:"status"`
	ScheduledFor time.Time        `json:"scheduled_for"`
	Priority     int              `json:"priority"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentStatusAssigned:       {AssignmentStatusPickedUp, AssignmentStatusFailed},
	AssignmentStatusPickedUp:       {AssignmentStatusOutForDelivery, AssignmentStatusFailed},
	AssignmentStatusOutForDelivery: {AssignmentStatusDelivered, AssignmentStatusFailed},
	AssignmentStatusDelivered:      {},
	AssignmentStatusFailed:         {},
}

func (s AssignmentStatus) Valid() bool {
	_, ok := assignmentTransitions[s]
	return ok
}

func (s AssignmentStatus) CanTransition(to AssignmentStatus) bool {
	for _, next := range assignmentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderStatusAfter reports the order status an assignment transition drags the
// order into, or "" when the order is left alone (pickup keeps it APPROVED).
func (s AssignmentStatus) OrderStatusAfter() OrderStatus {
	switch s {
	case AssignmentStatusOutForDelivery:
		return OrderStatusOutForDelivery
	case AssignmentStatusDelivered:
		return OrderStatusDelivered
	case AssignmentStatusFailed:
		return OrderStatusCancelled
	}
	return ""
}
