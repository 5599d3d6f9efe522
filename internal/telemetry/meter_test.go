package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestNewMeterProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		metrics *MetricsConfig
		wantSDK bool
	}{
		{name: "no metrics config"},
		{name: "metrics disabled", metrics: &MetricsConfig{Enabled: false}},
		{name: "otlp exporter", metrics: &MetricsConfig{Enabled: true}, wantSDK: true},
		{name: "prometheus exporter", metrics: &MetricsConfig{Enabled: true, Exporter: ExporterPrometheus}, wantSDK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			mp, err := NewMeterProvider(ctx,
				WithMetricsConfig(tt.metrics),
				WithMeterEndpoint(newCollector(t)),
				WithMeterInsecure(true),
				WithPrometheusRegisterer(prometheus.NewRegistry()),
			)
			require.NoError(t, err)

			if !tt.wantSDK {
				assert.IsType(t, noop.MeterProvider{}, mp)
				return
			}
			sdkMP, ok := mp.(*sdkmetric.MeterProvider)
			require.True(t, ok)
			_ = sdkMP.Shutdown(ctx)
		})
	}
}

func TestNewMeterProvider_PrometheusRegistersCollector(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	mp, err := NewMeterProvider(ctx,
		WithMetricsConfig(&MetricsConfig{Enabled: true, Exporter: ExporterPrometheus}),
		WithPrometheusRegisterer(reg),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.(*sdkmetric.MeterProvider).Shutdown(ctx) })

	m, err := NewETLMetrics(mp)
	require.NoError(t, err)
	m.RecordRetry(ctx, "syncPayments")

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "stripe_lunar_etl_retries_total")
}

func TestMeterProviderOptions(t *testing.T) {
	t.Parallel()

	metrics := &MetricsConfig{Enabled: true}
	reg := prometheus.NewRegistry()
	cfg := &meterProviderConfig{}
	for _, opt := range []MeterProviderOption{
		WithMeterServiceName("stripe-lunar-worker"),
		WithMeterServiceVersion("2.0.0"),
		WithMetricsConfig(metrics),
		WithMeterEndpoint("collector.example.com:4318"),
		WithMeterInsecure(true),
		WithPrometheusRegisterer(reg),
	} {
		opt(cfg)
	}

	assert.Equal(t, "stripe-lunar-worker", cfg.serviceName)
	assert.Equal(t, "2.0.0", cfg.serviceVersion)
	assert.Same(t, metrics, cfg.metricsConfig)
	assert.Equal(t, "collector.example.com:4318", cfg.endpoint)
	assert.True(t, cfg.insecure)
	assert.Same(t, reg, cfg.registerer)
}
