package service

import (
	"context"
	"fmt"

	"gitlab.ozon.dev/qwestard/cylinders/internal/apperrors"
	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
	"gitlab.ozon.dev/qwestard/cylinders/internal/repository"
)

type ReceiveStockRequest struct {
	Quantity   int    `json:"quantity"`
	Supplier   string `json:"supplier"`
	InvoiceRef string `json:"invoice_ref"`
}

// ReceiveStock books an inbound batch: the batch row and its RECEIVE
// adjustment land in one transaction, so the running total never drifts from
// the adjustment sum.
func (s *Service) ReceiveStock(ctx context.Context, req ReceiveStockRequest) (*models.StockBatch, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.Validation("received quantity must be positive")
	}
	if req.Supplier == "" {
		return nil, apperrors.Validation("supplier is required")
	}

	batch := &models.StockBatch{
		ID:         newID(),
		Supplier:   req.Supplier,
		InvoiceRef: req.InvoiceRef,
		Quantity:   req.Quantity,
		ReceivedAt: now(),
	}
	err := s.store.WithTx(ctx, func(st repository.Store) error {
		if err := st.CreateBatch(ctx, batch); err != nil {
			return err
		}
		return st.InsertAdjustment(ctx, &models.StockAdjustment{
			ID:        newID(),
			Delta:     req.Quantity,
			Type:      models.AdjustmentTypeReceive,
			Reason:    fmt.Sprintf("batch from %s, invoice %s", req.Supplier, req.InvoiceRef),
			BatchID:   batch.ID,
			CreatedAt: now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

type AdjustStockRequest struct {
	Delta   int                   `json:"delta"`
	Type    models.AdjustmentType `json:"type"`
	Reason  string                `json:"reason"`
	OrderID string                `json:"order_id,omitempty"`
}

// AdjustStock appends one signed delta. Receipts go through ReceiveStock so
// every RECEIVE row has its batch.
func (s *Service) AdjustStock(ctx context.Context, req AdjustStockRequest) (*models.StockAdjustment, error) {
	if !req.Type.Valid() {
		return nil, apperrors.Validation("unknown adjustment type %q", req.Type)
	}
	if req.Type == models.AdjustmentTypeReceive {
		return nil, apperrors.Validation("receipts must reference a batch; use the receive operation")
	}
	if req.Delta == 0 {
		return nil, apperrors.Validation("delta must not be zero")
	}
	if (req.Type == models.AdjustmentTypeIssue || req.Type == models.AdjustmentTypeDamage) && req.Delta > 0 {
		return nil, apperrors.Validation("%s adjustments must be negative", req.Type)
	}

	adj := &models.StockAdjustment{
		ID:        newID(),
		Delta:     req.Delta,
		Type:      req.Type,
		Reason:    req.Reason,
		OrderID:   req.OrderID,
		CreatedAt: now(),
	}
	err := s.store.WithTx(ctx, func(st repository.Store) error {
		if req.OrderID != "" {
			order, err := st.GetOrder(ctx, req.OrderID)
			if err != nil {
				return err
			}
			if order == nil {
				return apperrors.NotFound("order %s not found", req.OrderID)
			}
		}
		return st.InsertAdjustment(ctx, adj)
	})
	if err != nil {
		return nil, err
	}
	return adj, nil
}

// DeleteBatch removes a receipt batch and books the compensating decrement in
// the same transaction, preserving total == sum(deltas).
func (s *Service) DeleteBatch(ctx context.Context, batchID string) error {
	return s.store.WithTx(ctx, func(st repository.Store) error {
		batch, err := st.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if batch == nil {
			return apperrors.NotFound("batch %s not found", batchID)
		}
		if err := st.InsertAdjustment(ctx, &models.StockAdjustment{
			ID:        newID(),
			Delta:     -batch.Quantity,
			Type:      models.AdjustmentTypeCorrection,
			Reason:    fmt.Sprintf("batch %s removed", batchID),
			CreatedAt: now(),
		}); err != nil {
			return err
		}
		return st.DeleteBatch(ctx, batchID)
	})
}

type StockSummary struct {
	Total       int                       `json:"total"`
	Adjustments []*models.StockAdjustment `json:"adjustments"`
}

func (s *Service) StockSummary(ctx context.Context, limit int64) (*StockSummary, error) {
	total, err := s.store.StockTotal(ctx)
	if err != nil {
		return nil, err
	}
	adjustments, err := s.store.ListAdjustments(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &StockSummary{Total: total, Adjustments: adjustments}, nil
}
