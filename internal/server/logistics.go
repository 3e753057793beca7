package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
	"gitlab.ozon.dev/qwestard/cylinders/internal/service"
)

func (s *Server) handlePaymentSub(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/payments/"), "/")
	id := parts[0]
	if id == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "missing ID"})
		return
	}
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}
	if !s.requireOperator(w, r) {
		return
	}

	switch {
	case r.Method == http.MethodPost && action == "confirm":
		payment, err := s.svc.ConfirmTransfer(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, "transfer confirmed", payment)
	case r.Method == http.MethodPost && action == "reject":
		var body struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "bad JSON"})
			return
		}
		payment, err := s.svc.RejectTransfer(r.Context(), id, body.Reason)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, "transfer rejected", payment)
	case r.Method == http.MethodPut && action == "":
		var cmd service.EditOnDeliveryPayment
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "bad JSON"})
			return
		}
		cmd.PaymentID = id
		payment, err := s.svc.EditOnDelivery(r.Context(), cmd)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, "payment updated", payment)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAssignmentSub(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/assignments/"), "/")
	id := parts[0]
	if id == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "missing ID"})
		return
	}
	if r.Method != http.MethodPost || len(parts) < 2 || parts[1] != "advance" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireOperator(w, r) {
		return
	}
	var body struct {
		Status models.AssignmentStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "bad JSON"})
		return
	}
	assignment, err := s.svc.AdvanceDelivery(r.Context(), id, body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "assignment advanced", assignment)
}

func (s *Server) handleCouriers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if cached := s.couriers.Get(); cached != nil {
			writeSuccess(w, http.StatusOK, "couriers", cached)
			return
		}
		couriers, err := s.svc.ListCouriers(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, "couriers", couriers)
	case http.MethodPost:
		if !s.requireOperator(w, r) {
			return
		}
		var req service.CreateCourierRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "bad JSON"})
			return
		}
		courier, err := s.svc.CreateCourier(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		s.couriers.Invalidate()
		writeSuccess(w, http.StatusCreated, "courier created", courier)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCourierSub(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/couriers/"), "/")
	id := parts[0]
	if id == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "missing ID"})
		return
	}
	if r.Method != http.MethodPut || len(parts) < 2 || parts[1] != "active" {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireOperator(w, r) {
		return
	}
	var body struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "bad JSON"})
		return
	}
	if err := s.svc.SetCourierActive(r.Context(), id, body.Active); err != nil {
		writeError(w, err)
		return
	}
	s.couriers.Invalidate()
	writeSuccess(w, http.StatusOK, "courier updated", nil)
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil {
		limit = 20
	}
	summary, err := s.svc.StockSummary(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "stock", summary)
}

func (s *Server) handleStockReceive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireOperator(w, r) {
		return
	}
	var req service.ReceiveStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "bad JSON"})
		return
	}
	batch, err := s.svc.ReceiveStock(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "stock received", batch)
}

func (s *Server) handleStockAdjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireOperator(w, r) {
		return
	}
	var req service.AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "bad JSON"})
		return
	}
	adj, err := s.svc.AdjustStock(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "stock adjusted", adj)
}

func (s *Server) handleStockBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireOperator(w, r) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/stock/batches/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "missing ID"})
		return
	}
	if err := s.svc.DeleteBatch(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "batch deleted", nil)
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.requireOperator(w, r) {
		return
	}
	var req service.BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "bad JSON"})
		return
	}
	result, err := s.svc.Bulk(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "bulk action applied", result)
}
