// Package api provides the REST API server for the ETL service.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zlovtnik/stripe-lunar/internal/api/etlops"
	"github.com/zlovtnik/stripe-lunar/internal/api/jobs"
	"github.com/zlovtnik/stripe-lunar/internal/api/stripeapi"
	"github.com/zlovtnik/stripe-lunar/internal/api/system"
	"github.com/zlovtnik/stripe-lunar/internal/api/webhooks"
	"github.com/zlovtnik/stripe-lunar/internal/ledger"
	"github.com/zlovtnik/stripe-lunar/internal/metrics"
	"github.com/zlovtnik/stripe-lunar/internal/orchestrator"
	"github.com/zlovtnik/stripe-lunar/internal/store"
	"github.com/zlovtnik/stripe-lunar/internal/webhook"
)

// Dependencies are the components the routes are served from
type Dependencies struct {
	Runner   orchestrator.Runner
	Store    store.Store
	Ledger   ledger.Ledger
	Metrics  metrics.Snapshotter
	Verifier *webhook.Verifier
}

// ServerOption configures the API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares    []func(http.Handler) http.Handler
	metricsHandler http.Handler
	startTime      time.Time
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMetricsHandler serves h at /metrics, typically the Prometheus exporter
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// WithStartTime sets the instant reported as the application start
func WithStartTime(t time.Time) ServerOption {
	return func(cfg *serverConfig) {
		cfg.startTime = t
	}
}

// NewServer creates and configures the HTTP router with the given dependencies and options
func NewServer(deps Dependencies, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		middlewares: []func(http.Handler) http.Handler{},
		startTime:   time.Now(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	// Health and version live at the root
	r.Mount("/", system.Router(deps.Store, deps.Metrics, cfg.startTime))
	if cfg.metricsHandler != nil {
		r.Handle("/metrics", cfg.metricsHandler)
	}

	r.Mount("/api/etl", etlops.Router(deps.Runner, deps.Store, deps.Metrics))
	r.Mount("/api/jobs", jobs.Router(deps.Ledger))
	r.Mount("/stripe", stripeapi.Router(deps.Runner, deps.Store, deps.Metrics))
	r.Mount("/webhook", webhooks.Router(deps.Runner, deps.Verifier))

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
