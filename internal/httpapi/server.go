// ABOUTME: REST API server wiring routes under /api to the picco services
// ABOUTME: Admin routes sit behind bearer-token middleware; agent routes are open

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/picco-crm/picco/internal/admins"
	"github.com/picco-crm/picco/internal/auth"
	"github.com/picco-crm/picco/internal/orders"
	"github.com/picco-crm/picco/internal/registration"
	"github.com/picco-crm/picco/internal/store"
)

// Config holds the dependencies of a Server.
type Config struct {
	Store     store.Store
	Orders    *orders.Service
	Admins    *admins.Service
	Registrar *registration.Registrar
	Verifier  auth.TokenVerifier

	AllowedOrigins []string
	// Location buckets monthly stats and export timestamps. Nil means time.Local.
	Location *time.Location
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Server serves the picco REST API.
type Server struct {
	store     store.Store
	orders    *orders.Service
	admins    *admins.Service
	registrar *registration.Registrar
	verifier  auth.TokenVerifier

	allowedOrigins []string
	loc            *time.Location
	now            func() time.Time
	logger         *slog.Logger

	validate *validator.Validate
	mux      *http.ServeMux
}

// New creates a Server and registers its routes.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		store:          cfg.Store,
		orders:         cfg.Orders,
		admins:         cfg.Admins,
		registrar:      cfg.Registrar,
		verifier:       cfg.Verifier,
		allowedOrigins: cfg.AllowedOrigins,
		loc:            loc,
		now:            now,
		logger:         logger.With("component", "httpapi"),
		validate:       newValidator(),
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	requireAdmin := auth.RequireAdmin(s.store, s.verifier, s.logger)
	requireSuper := auth.RequireSuperAdmin()
	admin := func(h http.HandlerFunc) http.Handler { return requireAdmin(h) }
	super := func(h http.HandlerFunc) http.Handler { return requireAdmin(requireSuper(h)) }

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/health", s.handleReady)

	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("GET /api/auth/agent/{telegramId}", s.handleAgentLookup)

	s.mux.HandleFunc("POST /api/agent/orders", s.handleCreateOrder)
	s.mux.HandleFunc("GET /api/agent/orders/{userId}", s.handleAgentOrders)
	s.mux.HandleFunc("GET /api/agent/stores/{agentId}", s.handleAgentStores)
	s.mux.HandleFunc("POST /api/agent/stores", s.handleAgentCreateStore)
	s.mux.HandleFunc("GET /api/agent/products", s.handleListProducts)
	s.mux.HandleFunc("GET /api/agent/stats/{userId}", s.handleAgentStats)

	s.mux.Handle("GET /api/admin/products", admin(s.handleListProducts))
	s.mux.Handle("POST /api/admin/products", admin(s.handleCreateProduct))
	s.mux.Handle("PUT /api/admin/products/{id}", admin(s.handleUpdateProduct))
	s.mux.Handle("DELETE /api/admin/products/{id}", admin(s.handleDeleteProduct))

	s.mux.Handle("GET /api/admin/stores", admin(s.handleListStores))
	s.mux.Handle("POST /api/admin/stores", admin(s.handleCreateStore))
	s.mux.Handle("PUT /api/admin/stores/{id}", admin(s.handleUpdateStore))
	s.mux.Handle("DELETE /api/admin/stores/{id}", admin(s.handleDeleteStore))

	s.mux.Handle("GET /api/admin/agents", admin(s.handleListAgents))
	s.mux.Handle("POST /api/admin/admins/add", super(s.handleAddAdmin))
	s.mux.Handle("PUT /api/admin/admins/change-password", admin(s.handleChangePassword))
	s.mux.Handle("DELETE /api/admin/reset", super(s.handleReset))

	s.mux.Handle("GET /api/stats/admin", admin(s.handleAdminStats))
	s.mux.Handle("GET /api/stats/export", admin(s.handleExport))
	s.mux.HandleFunc("GET /api/stats/agent/{userId}", s.handleAgentStats)
}

// Mount registers an extra handler, such as the Telegram webhook, on the
// same mux.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the mux wrapped in recovery and CORS middleware.
func (s *Server) Handler() http.Handler {
	return Recover(s.logger)(CORS(s.allowedOrigins)(s.mux))
}

// handleHealth handles GET /health, a liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady handles GET /api/health. It reports ready only when the
// database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "up"})
}
