package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// ETLMetricsMeterName is the name used for the ETL metrics meter
	ETLMetricsMeterName = "github.com/zlovtnik/stripe-lunar/etl"
)

// ETLMetrics holds the OpenTelemetry instruments for ETL operations
type ETLMetrics struct {
	executions    metric.Int64Counter
	duration      metric.Float64Histogram
	records       metric.Int64Counter
	retries       metric.Int64Counter
	notifications metric.Int64Counter
}

// NewETLMetrics creates a new ETLMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewETLMetrics(provider metric.MeterProvider) (*ETLMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(ETLMetricsMeterName)

	executions, err := meter.Int64Counter(
		"stripe_lunar_etl_executions_total",
		metric.WithDescription("Number of ETL operation executions"),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"stripe_lunar_etl_duration_seconds",
		metric.WithDescription("Duration of ETL operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	records, err := meter.Int64Counter(
		"stripe_lunar_etl_records_total",
		metric.WithDescription("Number of records synchronised"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter(
		"stripe_lunar_etl_retries_total",
		metric.WithDescription("Number of redelivered ETL attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	notifications, err := meter.Int64Counter(
		"stripe_lunar_notification_failures_total",
		metric.WithDescription("Number of notifications that could not be delivered"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	return &ETLMetrics{
		executions:    executions,
		duration:      duration,
		records:       records,
		retries:       retries,
		notifications: notifications,
	}, nil
}

// RecordExecution counts one execution of an operation
func (m *ETLMetrics) RecordExecution(ctx context.Context, operation string) {
	if m == nil || m.executions == nil {
		return
	}
	m.executions.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordDuration records the outcome and duration of an operation, and the
// number of records it synchronised when it succeeded
func (m *ETLMetrics) RecordDuration(
	ctx context.Context, operation string, duration time.Duration, success bool, records int64,
) {
	if m == nil || m.duration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	}
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if success && records > 0 {
		m.records.Add(ctx, records, metric.WithAttributes(attribute.String("operation", operation)))
	}
}

// RecordRetry counts one redelivery of an operation
func (m *ETLMetrics) RecordRetry(ctx context.Context, operation string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordNotificationFailure counts one undelivered notification
func (m *ETLMetrics) RecordNotificationFailure(ctx context.Context, kind string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
