// Package api assembles the HTTP surface: the public ordering endpoints,
// the session-protected dashboard API, payment webhooks, and the probe
// server.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/menuforge/menuforge/pkg/authz"
	"github.com/menuforge/menuforge/pkg/billing"
	"github.com/menuforge/menuforge/pkg/config"
	"github.com/menuforge/menuforge/pkg/httputil"
	"github.com/menuforge/menuforge/pkg/observability"
	"github.com/menuforge/menuforge/pkg/sso"
	"github.com/menuforge/menuforge/pkg/tenants"
	"github.com/menuforge/menuforge/pkg/users"
)

// Deps carries everything the server needs to assemble its routers
type Deps struct {
	Users   *users.Service
	Tenants *tenants.Service

	Public     *PublicHandlers
	Service    *ServiceHandlers
	Menu       *MenuHandlers
	Admin      *AdminHandlers
	Restaurant *RestaurantHandlers
	Webhooks   *billing.WebhookHandler

	// SSO is nil when no OIDC provider is configured
	SSO *sso.Handler

	Authz  *authz.Middleware
	Health *observability.HealthChecker
}

// Server is the application HTTP server plus the probe server
type Server struct {
	cfg     *config.Config
	logger  *observability.Logger
	metrics *observability.Metrics

	httpServer   *http.Server
	healthServer *http.Server
}

// NewServer builds the routers and the two HTTP servers
func NewServer(cfg *config.Config, deps Deps, logger *observability.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}

	var handler http.Handler = s.buildRouter(deps)
	handler = metrics.HTTPMiddleware("api", handler)
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "menuforge")
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	s.healthServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      s.buildHealthRouter(deps.Health),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) buildRouter(deps Deps) *mux.Router {
	router := mux.NewRouter()

	// Public surface: customer menu, ordering, tracking, and the
	// waiter-code-gated service endpoints.
	deps.Public.RegisterRoutes(router)
	deps.Service.RegisterRoutes(router)

	// Payment webhooks authenticate with provider signatures, not sessions
	deps.Webhooks.RegisterRoutes(router)

	if deps.SSO != nil {
		deps.SSO.RegisterRoutes(router)
	}

	router.HandleFunc("/access-denied", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteForbidden(w, "you do not have access to this page")
	}).Methods("GET")

	// Everything under /dashboard requires a session and passes the route
	// table before reaching a handler.
	dashboard := router.PathPrefix("/dashboard").Subrouter()
	dashboard.Use(deps.Authz.Handler)
	dashboard.Use(TenantScope(deps.Users, deps.Tenants, s.logger))

	deps.Menu.RegisterRoutes(dashboard)
	deps.Restaurant.RegisterRoutes(dashboard)
	deps.Admin.RegisterRoutes(dashboard)

	dashboard.HandleFunc("", s.handleDashboardHome).Methods("GET")
	dashboard.HandleFunc("/", s.handleDashboardHome).Methods("GET")

	return router
}

func (s *Server) handleDashboardHome(w http.ResponseWriter, r *http.Request) {
	session, ok := authz.SessionFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	restaurant, _ := restaurantFromContext(r)

	nav := []authz.NavItem{}
	if guard, ok := authz.GuardFromContext(r.Context()); ok {
		nav = guard.FilterNav(authz.DefaultNav())
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"user_id":    session.UserID,
		"email":      session.Email,
		"role":       session.Role.String(),
		"restaurant": restaurant,
		"nav":        nav,
	})
}

func (s *Server) buildHealthRouter(health *observability.HealthChecker) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", health.Liveness).Methods("GET")
	router.HandleFunc("/readyz", health.Readiness).Methods("GET")
	if s.cfg.Observability.MetricsEnabled {
		router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
	return router
}

// Start runs the application server. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// StartHealth runs the probe server. It blocks until the server stops.
func (s *Server) StartHealth() error {
	s.logger.WithField("addr", s.healthServer.Addr).Info("starting health server")
	if err := s.healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops both servers
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return s.healthServer.Shutdown(ctx)
}
