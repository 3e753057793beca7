package models

import "time"

type AdjustmentType string

const (
	AdjustmentTypeReceive    AdjustmentType = "RECEIVE"
	AdjustmentTypeIssue      AdjustmentType = "ISSUE"
	AdjustmentTypeDamage     AdjustmentType = "DAMAGE"
	AdjustmentTypeAudit      AdjustmentType = "AUDIT"
	AdjustmentTypeCorrection AdjustmentType = "CORRECTION"
)

// StockBatch records one inbound receipt from a supplier.
type StockBatch struct {
	ID         string    `json:"id"`
	Supplier   string    `json:"supplier"`
	InvoiceRef string    `json:"invoice_ref"`
	Quantity   int       `json:"quantity"`
	ReceivedAt time.Time `json:"received_at"`
}

// StockAdjustment is one immutable signed delta against the running total.
// The total is never updated except through one of these rows.
type StockAdjustment struct {
	ID        string         `json:"id"`
	Delta     int            `json:"delta"`
	Type      AdjustmentType `json:"type"`
	Reason    string         `json:"reason,omitempty"`
	BatchID   string         `json:"batch_id,omitempty"`
	OrderID   string         `json:"order_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (t AdjustmentType) Valid() bool {
	switch t {
	case AdjustmentTypeReceive, AdjustmentTypeIssue, AdjustmentTypeDamage,
		AdjustmentTypeAudit, AdjustmentTypeCorrection:
		return true
	}
	return false
}
