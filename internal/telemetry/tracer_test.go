package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNewTracerProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tracing *TracingConfig
		nilCfg  bool
		wantSDK bool
	}{
		{name: "nil config", nilCfg: true},
		{name: "no tracing section"},
		{name: "tracing disabled", tracing: &TracingConfig{Enabled: false, Sampling: 1}},
		{name: "tracing enabled", tracing: &TracingConfig{Enabled: true, Sampling: 0.5}, wantSDK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			var cfg *Config
			if !tt.nilCfg {
				cfg = &Config{
					Enabled:  true,
					Endpoint: newCollector(t),
					Insecure: true,
					Tracing:  tt.tracing,
				}
			}

			tp, err := NewTracerProvider(ctx, cfg)
			require.NoError(t, err)

			if !tt.wantSDK {
				assert.IsType(t, noop.TracerProvider{}, tp)
				return
			}
			sdkTP, ok := tp.(*sdktrace.TracerProvider)
			require.True(t, ok)
			require.NoError(t, sdkTP.Shutdown(ctx))
		})
	}
}

func TestNewSampler_FollowsParentDecision(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(newSampler(0)),
	)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	tracer := tp.Tracer("scheduler")

	_, root := tracer.Start(context.Background(), "syncCustomers")
	root.End()
	assert.Empty(t, exporter.GetSpans())

	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("b7ad6b7169203331")
	require.NoError(t, err)
	parent := trace.ContextWithRemoteSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}))

	_, child := tracer.Start(parent, "syncPayments")
	child.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "syncPayments", spans[0].Name)
	assert.Equal(t, traceID, spans[0].SpanContext.TraceID())
}

func TestNewResource(t *testing.T) {
	t.Parallel()

	res, err := newResource(context.Background(), &Config{ServiceName: "lunar-etl", ServiceVersion: "1.4.0"})
	require.NoError(t, err)

	attrs := make(map[string]string)
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "lunar-etl", attrs["service.name"])
	assert.Equal(t, "1.4.0", attrs["service.version"])
}
