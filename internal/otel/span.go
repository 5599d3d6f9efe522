// Package otel provides OpenTelemetry instrumentation helpers shared by the
// ledger, store and orchestration layers.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for business context used across the application.
// Using shared keys ensures consistent attribute naming in traces.
const (
	AttrOperation   = attribute.Key("etl.operation")
	AttrJobID       = attribute.Key("etl.job_id")
	AttrRunID       = attribute.Key("etl.run_id")
	AttrAttempt     = attribute.Key("etl.attempt")
	AttrResultCount = attribute.Key("result.count")
	AttrEntityID    = attribute.Key("entity.id")
)

// DBSystemPostgres is the database system attribute for PostgreSQL
var DBSystemPostgres = semconv.DBSystemPostgreSQL

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
// This provides graceful degradation when tracing is disabled.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// StartDBSpan starts a span tagged with the PostgreSQL db.system attribute.
func StartDBSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	opts = append([]trace.SpanStartOption{trace.WithAttributes(DBSystemPostgres)}, opts...)
	return StartSpan(ctx, tracer, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// It safely handles nil spans and nil errors.
// The status description stays generic so connection strings or SQL never
// end up in the trace status; the full error is kept in the span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
