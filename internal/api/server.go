// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/messagely/internal/messaging/message"
	"github.com/taibuivan/messagely/internal/platform/config"
	"github.com/taibuivan/messagely/internal/platform/constants"
	"github.com/taibuivan/messagely/internal/platform/middleware"
	"github.com/taibuivan/messagely/internal/users/account"
	"github.com/taibuivan/messagely/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler. Always 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. 200 when all dependencies are healthy.
	Readiness http.HandlerFunc

	// Metrics exposes the Prometheus registry on /metrics.
	Metrics http.Handler

	// Auth handles registration and login.
	Auth *auth.Handler

	// Account serves the user directory and per-user mailboxes.
	Account *account.Handler

	// Message handles sending, reading and marking messages.
	Message *message.Handler

	// Stream is the websocket event relay.
	Stream http.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
//
// resolver authenticates protected routes; [*authz.Guard] in production.
// metrics may be nil to disable request instrumentation.
func NewServer(cfg *config.Config, log *slog.Logger, resolver middleware.IdentityResolver, metrics *middleware.Metrics, h Handlers) *Server {
	r := chi.NewRouter()
	requireIdentity := middleware.RequireIdentity(resolver)

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	if metrics != nil {
		r.Use(metrics.Handler)
	}
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg, cfg.AllowedOrigins))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health and metrics endpoints.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	// # Application API
	// Request/response routes run under the global request deadline.
	r.Group(func(timed chi.Router) {
		timed.Use(chimw.Timeout(constants.GlobalRequestTimeout))

		timed.Route("/api/v1", func(api chi.Router) {
			api.Mount("/auth", h.Auth.Routes())
			api.Mount("/users", h.Account.Routes(requireIdentity))
			api.With(requireIdentity).Mount("/messages", h.Message.Routes())
		})
	})

	// # Long-lived Connections
	// The websocket stream outlives any request deadline.
	if h.Stream != nil {
		r.With(requireIdentity).Method(http.MethodGet, "/api/v1/stream", h.Stream)
	}

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
