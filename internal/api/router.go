// Package api provides the HTTP API and dashboard page of ECOWatch.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ecowatch/ecowatch/internal/api/handler"
	"github.com/ecowatch/ecowatch/internal/api/middleware"
	"github.com/ecowatch/ecowatch/internal/api/models"
	"github.com/ecowatch/ecowatch/internal/api/response"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Dashboard runs render passes for both the page and the JSON API.
	Dashboard handler.Renderer

	// Page renders the HTML dashboard. If nil, GET / is not routed.
	Page handler.PageRenderer

	// Ops configures the health and status endpoints.
	Ops handler.OpsConfig

	// PrometheusHandler serves GET /metrics. Optional.
	PrometheusHandler http.Handler

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool
}

// NewRouter creates a new chi router with all routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "ecowatch-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "No route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, models.NewProblem(
			models.ProblemTypeMethod, "Method not allowed", http.StatusMethodNotAllowed,
			middleware.GetRequestID(r.Context()),
		).WithDetail(r.Method+" is not supported on "+r.URL.Path))
	})

	opsHandler := handler.NewOpsHandler(cfg.Ops)
	dashboardHandler := handler.NewDashboardHandler(cfg.Dashboard, cfg.Page)

	// Shared so the page and the JSON API draw from the same budgets.
	dashboardRateLimit := middleware.RateLimitByIP(middleware.DashboardRateLimit) // 60 req/min
	alertRateLimit := middleware.RateLimitAlerts(middleware.AlertRateLimit)       // 10 req/min with email
	opsRateLimit := middleware.RateLimitByIP(middleware.OpsRateLimit)             // 120 req/min

	if cfg.Page != nil {
		r.Group(func(r chi.Router) {
			r.Use(middleware.SecurityHeaders(middleware.PagePolicy))
			r.Use(dashboardRateLimit, alertRateLimit)
			r.Get("/", dashboardHandler.Page)
		})
	}

	if cfg.PrometheusHandler != nil {
		r.With(opsRateLimit).Method(http.MethodGet, "/metrics", cfg.PrometheusHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders(middleware.APIPolicy))
		r.Use(middleware.ContentTypeJSON)

		r.With(dashboardRateLimit, alertRateLimit).Get("/dashboard", dashboardHandler.GetDashboard)

		r.Route("/ops", func(r chi.Router) {
			r.Use(opsRateLimit)
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})
	})

	return r
}
