package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// newCollector accepts OTLP exports and discards them
func newCollector(t *testing.T) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return strings.TrimPrefix(server.URL, "http://")
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		config      *Config
		otlp        bool
		sdkTracer   bool
		sdkMeter    bool
		errContains string
	}{
		{name: "no config"},
		{name: "disabled", config: &Config{Enabled: false}},
		{
			name: "enabled with both signals off",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: false},
				Metrics: &MetricsConfig{Enabled: false},
			},
		},
		{
			name: "invalid sampling",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: 1.5},
			},
			errContains: "invalid telemetry configuration",
		},
		{
			name: "unknown exporter",
			config: &Config{
				Enabled: true,
				Metrics: &MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			errContains: "invalid telemetry configuration",
		},
		{
			name: "prometheus metrics only",
			config: &Config{
				Enabled: true,
				Metrics: &MetricsConfig{Enabled: true, Exporter: ExporterPrometheus},
			},
			sdkMeter: true,
		},
		{
			name: "otlp traces and metrics",
			config: &Config{
				Enabled:  true,
				Insecure: true,
				Tracing:  &TracingConfig{Enabled: true, Sampling: 1.0},
				Metrics:  &MetricsConfig{Enabled: true},
			},
			otlp:      true,
			sdkTracer: true,
			sdkMeter:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			var opts []Option
			if tt.config != nil {
				if tt.otlp {
					tt.config.Endpoint = newCollector(t)
				}
				opts = append(opts, WithTelemetryConfig(tt.config))
			}

			tel, err := New(ctx, opts...)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)

			if tt.sdkTracer {
				assert.IsType(t, &sdktrace.TracerProvider{}, tel.TracerProvider())
			} else {
				assert.IsType(t, tracenoop.TracerProvider{}, tel.TracerProvider())
			}
			if tt.sdkMeter {
				assert.IsType(t, &sdkmetric.MeterProvider{}, tel.MeterProvider())
			} else {
				assert.IsType(t, noop.MeterProvider{}, tel.MeterProvider())
			}

			assert.NotNil(t, tel.Tracer("orchestrator"))
			assert.NotNil(t, tel.Meter("orchestrator"))
			require.NoError(t, tel.Shutdown(ctx))
		})
	}
}

func TestTelemetry_ShutdownTwice(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tel, err := New(ctx)
	require.NoError(t, err)

	require.NoError(t, tel.Shutdown(ctx))
	require.NoError(t, tel.Shutdown(ctx))
}

func TestTelemetry_MetricsHandler(t *testing.T) {
	t.Parallel()

	t.Run("nil without prometheus exporter", func(t *testing.T) {
		t.Parallel()
		tel, err := New(context.Background())
		require.NoError(t, err)
		assert.Nil(t, tel.MetricsHandler())
	})

	t.Run("serves recorded metrics", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		tel, err := New(ctx, WithTelemetryConfig(&Config{
			Enabled: true,
			Metrics: &MetricsConfig{Enabled: true, Exporter: ExporterPrometheus},
		}))
		require.NoError(t, err)
		t.Cleanup(func() { _ = tel.Shutdown(ctx) })

		m, err := NewETLMetrics(tel.MeterProvider())
		require.NoError(t, err)
		m.RecordExecution(ctx, "syncCustomers")

		handler := tel.MetricsHandler()
		require.NotNil(t, handler)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "stripe_lunar_etl_executions_total")
		assert.Contains(t, rr.Body.String(), `operation="syncCustomers"`)
	})
}
