package server

import (
	"log"
	"net/http"

	"gitlab.ozon.dev/qwestard/cylinders/internal/audit"
	"gitlab.ozon.dev/qwestard/cylinders/internal/cache"
	"gitlab.ozon.dev/qwestard/cylinders/internal/config"
	"gitlab.ozon.dev/qwestard/cylinders/internal/middleware"
	"gitlab.ozon.dev/qwestard/cylinders/internal/receipt"
	"gitlab.ozon.dev/qwestard/cylinders/internal/service"
)

type Server struct {
	svc       *service.Service
	renderer  receipt.Renderer
	identity  IdentityProvider
	couriers  *cache.CourierCache
	auditPool *audit.WorkerPool
	user      string
	password  string
	addr      string
}

func NewServer(svc *service.Service, cfg *config.Config, auditPool *audit.WorkerPool, couriers *cache.CourierCache) *Server {
	return &Server{
		svc:       svc,
		renderer:  receipt.TextRenderer{},
		identity:  basicIdentity{user: cfg.Username, pass: cfg.Password},
		couriers:  couriers,
		auditPool: auditPool,
		user:      cfg.Username,
		password:  cfg.Password,
		addr:      cfg.Addr(),
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mutating := []string{"POST", "PUT", "DELETE"}

	// Requester-facing routes authorize through the identity provider inside
	// the handlers; operator-only routes sit behind basic auth.
	s.handleWith(mux, "/orders", s.handleOrders, mutating, nil)
	s.handleWith(mux, "/orders/", s.handleOrderSub, mutating, nil)

	s.handleWith(mux, "/owners", s.handleOwners, mutating, mutating)
	s.handleWith(mux, "/owners/", s.handleOwnerOne, mutating, nil)

	s.handleWith(mux, "/payments/", s.handlePaymentSub, mutating, mutating)
	s.handleWith(mux, "/assignments/", s.handleAssignmentSub, mutating, mutating)

	s.handleWith(mux, "/couriers", s.handleCouriers, mutating, mutating)
	s.handleWith(mux, "/couriers/", s.handleCourierSub, mutating, mutating)

	s.handleWith(mux, "/stock", s.handleStock, mutating, mutating)
	s.handleWith(mux, "/stock/receive", s.handleStockReceive, mutating, mutating)
	s.handleWith(mux, "/stock/adjust", s.handleStockAdjust, mutating, mutating)
	s.handleWith(mux, "/stock/batches/", s.handleStockBatch, mutating, mutating)

	s.handleWith(mux, "/orders-bulk", s.handleBulk, mutating, mutating)
}

func (s *Server) Run() error {
	mux := http.NewServeMux()

	s.RegisterRoutes(mux)

	log.Printf("Server listen on %s...", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

func (s *Server) handleWith(mux *http.ServeMux, path string,
	handlerFunc http.HandlerFunc,
	logMethods []string, authMethods []string,
) {
	finalHandler := middleware.LogMiddleware(s.auditPool, logMethods...)(
		middleware.BasicAuthMiddleware(s.user, s.password, authMethods...)(
			handlerFunc,
		),
	)
	mux.Handle(path, finalHandler)
}

func (s *Server) requireOperator(w http.ResponseWriter, r *http.Request) bool {
	p := s.identity.CurrentPrincipal(r)
	if p.Role != RoleOperator {
		writeJSON(w, http.StatusForbidden, Response{Success: false, Message: "operator credentials required"})
		return false
	}
	return true
}

func (s *Server) requesterID(w http.ResponseWriter, r *http.Request) (string, bool) {
	p := s.identity.CurrentPrincipal(r)
	if p.Role == "" {
		writeJSON(w, http.StatusUnauthorized, Response{Success: false, Message: "unauthenticated"})
		return "", false
	}
	return p.ID, true
}
