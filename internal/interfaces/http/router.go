// Package http serves one dashboard session over HTTP: the view document,
// the command endpoint, the check history and the probes.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
	"github.com/focosview/focosview/internal/interfaces/http/handlers"
	"github.com/focosview/focosview/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware of the route tree.
type RouterConfig struct {
	// Handlers
	DashboardHandler *handlers.DashboardHandler
	HealthHandler    *handlers.HealthHandler

	// Middleware
	CORS     *middleware.CORSConfig
	Logging  *middleware.LoggingConfig
	Recorder middleware.RequestRecorder

	// Infrastructure
	Logger         logging.Logger
	MetricsHandler http.Handler
}

// NewRouter builds the route tree. Nil handlers leave their routes
// unregistered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// --- Global middleware (applied to every request) ---
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if cfg.Recorder != nil {
		r.Use(middleware.Metrics(cfg.Recorder))
	}
	if cfg.Logger != nil {
		lc := middleware.DefaultLoggingConfig()
		if cfg.Logging != nil {
			lc = *cfg.Logging
		}
		r.Use(middleware.RequestLogging(cfg.Logger, lc))
	}
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}

	// --- Probes ---
	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	registerDashboardRoutes(r, cfg.DashboardHandler)

	return r
}

// registerDashboardRoutes mounts the session endpoints under /api.
func registerDashboardRoutes(r chi.Router, h *handlers.DashboardHandler) {
	if h == nil {
		return
	}
	r.Route("/api", func(api chi.Router) {
		api.Get("/view", h.View)
		api.Get("/state", h.State)
		api.Get("/status", h.Status)
		api.Post("/commands", h.Command)
		api.Get("/history", h.History)
	})
}
