package telemetry

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name used for the HTTP tracer
	TracerName = "github.com/zlovtnik/stripe-lunar/http"

	// MaxUserAgentLength bounds the user agent recorded on spans
	MaxUserAgentLength = 256
)

// unobservedPaths are polled by health checks and the Prometheus scraper.
// Neither tracing nor HTTP metrics record them.
var unobservedPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// TracingMiddleware creates HTTP middleware for distributed tracing.
// If provider is nil, it returns a pass-through middleware that does nothing.
func TracingMiddleware(provider trace.TracerProvider) func(http.Handler) http.Handler {
	if provider == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	tracer := provider.Tracer(TracerName)
	propagator := otel.GetTextMapPropagator()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if unobservedPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			// Renamed to the chi route pattern once routing has happened
			spanName := fmt.Sprintf("%s %s", r.Method, r.URL.Path)

			ctx, span := tracer.Start(ctx, spanName,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
					semconv.UserAgentOriginal(truncateUserAgent(r.UserAgent())),
				),
			)
			defer span.End()

			next.ServeHTTP(ww, r.WithContext(ctx))

			routePattern := getRoutePattern(r)
			statusCode := ww.Status()
			span.SetName(fmt.Sprintf("%s %s", r.Method, routePattern))
			span.SetAttributes(
				semconv.HTTPRouteKey.String(routePattern),
				semconv.HTTPResponseStatusCode(statusCode),
			)

			// Server spans leave 4xx unset; only 5xx is an error on our side
			switch {
			case statusCode >= http.StatusInternalServerError:
				span.SetStatus(codes.Error, http.StatusText(statusCode))
			case statusCode < http.StatusBadRequest:
				span.SetStatus(codes.Ok, "")
			}
		})
	}
}

// truncateUserAgent caps the user agent at MaxUserAgentLength bytes
func truncateUserAgent(ua string) string {
	if len(ua) > MaxUserAgentLength {
		return ua[:MaxUserAgentLength]
	}
	return ua
}
