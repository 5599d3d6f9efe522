package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NewTracerProvider builds the tracer provider for sync runs and API requests.
// A nil config, or one with tracing off, yields a no-op provider. Otherwise
// spans are batched to the OTLP endpoint and the provider is installed
// globally. The caller owns Shutdown on the returned SDK provider.
func NewTracerProvider(ctx context.Context, cfg *Config) (trace.TracerProvider, error) {
	if cfg == nil || cfg.Tracing == nil || !cfg.Tracing.Enabled {
		slog.Info("Tracing disabled, using no-op tracer provider")
		return noop.NewTracerProvider(), nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx, traceExporterOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		// Export off the request path; a slow collector must not stall syncs
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(newSampler(cfg.Tracing.GetSampling())),
	)

	otel.SetTracerProvider(tp)
	// TracingMiddleware reads traceparent headers through the global propagator
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.GetInsecure() {
		slog.Warn("Tracing uses plain HTTP to the collector; span data is not encrypted")
	}
	slog.Info("Tracing initialized",
		"endpoint", cfg.GetEndpoint(),
		"sampling_ratio", cfg.Tracing.GetSampling(),
		"insecure", cfg.GetInsecure(),
	)

	return tp, nil
}

// newSampler samples root spans at ratio. A span with a parent follows the
// parent's decision, so a trace started by a scheduler tick or an upstream
// caller is either kept whole or dropped whole.
func newSampler(ratio float64) sdktrace.Sampler {
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// newResource identifies this process in exported telemetry
func newResource(ctx context.Context, cfg *Config) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.GetServiceName()),
			semconv.ServiceVersion(cfg.GetServiceVersion()),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func traceExporterOptions(cfg *Config) []otlptracehttp.Option {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.GetEndpoint())}
	if cfg.GetInsecure() {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}
