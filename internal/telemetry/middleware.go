package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetricsMeterName is the meter that owns the API request instruments
const HTTPMetricsMeterName = "github.com/zlovtnik/stripe-lunar/http"

// requestDurationBuckets spans fast reads from the local store (milliseconds)
// up to synchronous sync runs that page through the Stripe API (seconds).
var requestDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// HTTPMetrics records request counts, latency and in-flight requests for the
// ETL, Stripe data, job history and webhook endpoints.
// A nil *HTTPMetrics is valid and records nothing.
type HTTPMetrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
}

// NewHTTPMetrics registers the request instruments on provider.
// A nil provider returns a nil *HTTPMetrics.
func NewHTTPMetrics(provider metric.MeterProvider) (*HTTPMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(HTTPMetricsMeterName)

	m := &HTTPMetrics{}
	var err error
	if m.requestDuration, err = meter.Float64Histogram(
		"stripe_lunar_http_request_duration_seconds",
		metric.WithDescription("Duration of API requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(requestDurationBuckets...),
	); err != nil {
		return nil, err
	}
	if m.requestsTotal, err = meter.Int64Counter(
		"stripe_lunar_http_requests_total",
		metric.WithDescription("Total number of API requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if m.activeRequests, err = meter.Int64UpDownCounter(
		"stripe_lunar_http_active_requests",
		metric.WithDescription("Number of API requests currently being served"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// Middleware records one data point per request, labelled with the chi route
// pattern so that /api/stripe/customers/cus_1 and cus_2 share a series.
// Health check and scrape requests are passed through unrecorded.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unobservedPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		m.activeRequests.Add(ctx, 1)
		defer m.activeRequests.Add(ctx, -1)

		next.ServeHTTP(ww, r)

		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", getRoutePattern(r)),
			attribute.String("status_code", strconv.Itoa(ww.Status())),
		)
		m.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		m.requestsTotal.Add(ctx, 1, attrs)
	})
}

// getRoutePattern returns the matched chi route, or "unknown_route" for
// requests chi did not match
func getRoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return "unknown_route"
}

// MetricsMiddleware builds the request metrics middleware for the API server
func MetricsMiddleware(provider metric.MeterProvider) (func(http.Handler) http.Handler, error) {
	metrics, err := NewHTTPMetrics(provider)
	if err != nil {
		return nil, err
	}
	return metrics.Middleware, nil
}
