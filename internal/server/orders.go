package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"gitlab.ozon.dev/qwestard/cylinders/internal/models"
	"gitlab.ozon.dev/qwestard/cylinders/internal/repository"
	"gitlab.ozon.dev/qwestard/cylinders/internal/service"
)

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateOrder(w, r)
	case http.MethodGet:
		s.handleListOrders(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "bad JSON"})
		return
	}
	p := s.identity.CurrentPrincipal(r)
	switch p.Role {
	case RoleRequester:
		req.OwnerID = p.ID
	case RoleOperator:
	default:
		writeJSON(w, http.StatusUnauthorized, Response{Success: false, Message: "unauthenticated"})
		return
	}
	order, err := s.svc.CreateOrder(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "order created", order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := strconv.ParseInt(q.Get("limit"), 10, 64)
	if err != nil {
		limit = 10
	}
	f := repository.OrderFilter{
		Cursor:  q.Get("cursor"),
		Limit:   limit,
		OwnerID: q.Get("owner_id"),
		Status:  models.OrderStatus(q.Get("status")),
	}
	orders, err := s.svc.ListOrders(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "orders", orders)
}

func (s *Server) handleOrderSub(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/orders/"), "/")
	id := parts[0]
	if id == "" {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "missing ID"})
		return
	}
	action := ""
	if len(parts) > 1 {
		action = strings.Join(parts[1:], "/")
	}

	if r.Method == http.MethodGet {
		switch action {
		case "":
			s.handleGetOrder(w, r, id)
		case "events":
			s.handleOrderEvents(w, r, id)
		case "payments":
			s.handleOrderPayments(w, r, id)
		case "receipt":
			s.handleOrderReceipt(w, r, id)
		default:
			writeJSON(w, http.StatusNotFound, Response{Success: false, Message: "unknown resource"})
		}
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	switch action {
	case "approve":
		s.handleApprove(w, r, id)
	case "cancel":
		s.handleCancel(w, r, id)
	case "resize":
		s.handleResize(w, r, id)
	case "assign":
		s.handleAssign(w, r, id)
	case "payment":
		s.handleSubmitTransfer(w, r, id)
	case "payment/retry":
		s.handleRetryTransfer(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, Response{Success: false, Message: "unknown action"})
	}
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request, id string) {
	order, err := s.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "order", order)
}

func (s *Server) handleOrderEvents(w http.ResponseWriter, r *http.Request, id string) {
	events, err := s.svc.ListEvents(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "events", events)
}

func (s *Server) handleOrderPayments(w http.ResponseWriter, r *http.Request, id string) {
	payments, err := s.svc.ListPayments(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "payments", payments)
}

func (s *Server) handleOrderReceipt(w http.ResponseWriter, r *http.Request, id string) {
	order, err := s.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	payments, err := s.svc.ListPayments(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := s.renderer.Render(order, payments)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Success: false, Message: "receipt rendering failed"})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request, id string) {
	if !s.requireOperator(w, r) {
		return
	}
	order, err := s.svc.Approve(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "order approved", order)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request, id string) {
	p := s.identity.CurrentPrincipal(r)
	switch p.Role {
	case RoleOperator:
		var body struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "bad JSON"})
			return
		}
		order, err := s.svc.CancelByOperator(r.Context(), id, body.Reason)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, "order cancelled", order)
	case RoleRequester:
		order, err := s.svc.CancelByOwner(r.Context(), id, p.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, "order cancelled", order)
	default:
		writeJSON(w, http.StatusUnauthorized, Response{Success: false, Message: "unauthenticated"})
	}
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request, id string) {
	if !s.requireOperator(w, r) {
		return
	}
	var req service.ResizeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "bad JSON"})
		return
	}
	req.OrderID = id
	order, err := s.svc.Resize(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "order resized", order)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request, id string) {
	if !s.requireOperator(w, r) {
		return
	}
	var req service.AssignDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "bad JSON"})
		return
	}
	req.OrderID = id
	assignment, err := s.svc.AssignDelivery(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "courier assigned", assignment)
}

func (s *Server) handleSubmitTransfer(w http.ResponseWriter, r *http.Request, id string) {
	ownerID, ok := s.requesterID(w, r)
	if !ok {
		return
	}
	var body struct {
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "bad JSON"})
		return
	}
	payment, err := s.svc.SubmitTransfer(r.Context(), id, ownerID, body.Reference)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "transfer submitted", payment)
}

func (s *Server) handleRetryTransfer(w http.ResponseWriter, r *http.Request, id string) {
	ownerID, ok := s.requesterID(w, r)
	if !ok {
		return
	}
	var body struct {
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "bad JSON"})
		return
	}
	payment, err := s.svc.RetryTransfer(r.Context(), id, ownerID, body.Reference)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "transfer retried", payment)
}

func (s *Server) handleOwners(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req service.CreateOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: "bad JSON"})
		return
	}
	owner, err := s.svc.CreateOwner(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "owner created", owner)
}

func (s *Server) handleOwnerOne(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/owners/")
	owner, err := s.svc.GetOwner(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "owner", owner)
}
