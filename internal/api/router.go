package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stockagent/stockagent/internal/events"
	"github.com/stockagent/stockagent/internal/health"
	"github.com/stockagent/stockagent/internal/metrics"
	mw "github.com/stockagent/stockagent/internal/middleware"
)

const ServiceName = "Stock Recommendation Agent API"

// DeployStatus reports the most recent deployment, if any.
type DeployStatus interface {
	Latest(ctx context.Context) (*events.DeployEvent, error)
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RateLimiter        func(http.Handler) http.Handler
	Version            string
	DailyLimit         int
	CheckTimeout       time.Duration
}

type serviceInfo struct {
	Message    string              `json:"message"`
	Version    string              `json:"version"`
	DailyLimit int                 `json:"daily_query_limit"`
	Endpoints  map[string]string   `json:"endpoints"`
	LastDeploy *events.DeployEvent `json:"last_deploy,omitempty"`
}

// NewRouter builds the HTTP surface of the service. deploys may be nil.
func NewRouter(checker *health.Checker, deploys DeployStatus, cfg RouterConfig) http.Handler {
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = 2 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(mw.MemoryUsage())
	r.Use(cors.Handler(mw.CORSOptions(cfg.CORSAllowedOrigins)))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		HandleError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		HandleError(w, ErrMethodNotAllowed)
	})

	// Liveness probe: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe used by the deployers
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		report := checker.Run(r.Context(), cfg.CheckTimeout)
		metrics.HealthChecksTotal.WithLabelValues(report.Status).Inc()

		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
		}
		JSON(w, status, report)
	}
	r.Get("/health", readinessHandler)
	r.Get("/health/ready", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter)
		}
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			info := serviceInfo{
				Message:    ServiceName,
				Version:    cfg.Version,
				DailyLimit: cfg.DailyLimit,
				Endpoints: map[string]string{
					"health":  "/health",
					"live":    "/health/live",
					"metrics": "/metrics",
				},
			}
			if deploys != nil {
				latest, err := deploys.Latest(r.Context())
				if err != nil {
					slog.Warn("reading latest deploy", "error", err)
				}
				info.LastDeploy = latest
			}
			JSON(w, http.StatusOK, info)
		})
	})

	return r
}
