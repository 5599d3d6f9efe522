package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Getters(t *testing.T) {
	t.Parallel()

	empty := &Config{}
	assert.Equal(t, DefaultServiceName, empty.GetServiceName())
	assert.Equal(t, "unknown", empty.GetServiceVersion())
	assert.Equal(t, DefaultEndpoint, empty.GetEndpoint())
	assert.False(t, empty.GetInsecure())

	set := &Config{
		ServiceName:    "lunar-etl",
		ServiceVersion: "1.4.0",
		Endpoint:       "collector:4318",
		Insecure:       true,
	}
	assert.Equal(t, "lunar-etl", set.GetServiceName())
	assert.Equal(t, "1.4.0", set.GetServiceVersion())
	assert.Equal(t, "collector:4318", set.GetEndpoint())
	assert.True(t, set.GetInsecure())
}

func TestTracingConfig_GetSampling(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultSampling, (&TracingConfig{Enabled: true}).GetSampling())
	assert.Equal(t, 0.5, (&TracingConfig{Enabled: true, Sampling: 0.5}).GetSampling())
}

func TestMetricsConfig_GetExporter(t *testing.T) {
	t.Parallel()

	var nilConfig *MetricsConfig
	assert.Equal(t, ExporterOTLP, nilConfig.GetExporter())
	assert.Equal(t, ExporterOTLP, (&MetricsConfig{}).GetExporter())
	assert.Equal(t, ExporterPrometheus, (&MetricsConfig{Exporter: ExporterPrometheus}).GetExporter())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config *Config
		errMsg string
	}{
		{name: "nil config"},
		{name: "disabled config ignores bad sections", config: &Config{
			Tracing: &TracingConfig{Enabled: true, Sampling: 7},
		}},
		{name: "enabled without sections", config: &Config{Enabled: true}},
		{name: "tracing and prometheus metrics", config: &Config{
			Enabled: true,
			Tracing: &TracingConfig{Enabled: true, Sampling: 0.25},
			Metrics: &MetricsConfig{Enabled: true, Exporter: ExporterPrometheus},
		}},
		{name: "disabled tracing is not validated", config: &Config{
			Enabled: true,
			Tracing: &TracingConfig{Sampling: -1},
		}},
		{
			name: "sampling above one",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: 1.1},
			},
			errMsg: "tracing: sampling must be between 0.0 and 1.0",
		},
		{
			name: "negative sampling",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: -0.1},
			},
			errMsg: "tracing: sampling must be between 0.0 and 1.0",
		},
		{
			name: "unknown exporter",
			config: &Config{
				Enabled: true,
				Metrics: &MetricsConfig{Enabled: true, Exporter: "statsd"},
			},
			errMsg: `metrics: exporter must be "otlp" or "prometheus", got "statsd"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
