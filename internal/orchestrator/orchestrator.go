// Package orchestrator turns trigger requests into tracked ETL executions.
//
// Every accepted request is recorded in the ledger as RUNNING, counted by the
// metrics aggregator, executed, and then moved to COMPLETED or FAILED exactly
// once. Notifications about the outcome are sent in the background.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/zlovtnik/stripe-lunar/internal/etl"
	"github.com/zlovtnik/stripe-lunar/internal/executor"
	"github.com/zlovtnik/stripe-lunar/internal/ledger"
	"github.com/zlovtnik/stripe-lunar/internal/metrics"
	"github.com/zlovtnik/stripe-lunar/internal/notify"
	"github.com/zlovtnik/stripe-lunar/internal/otel"
	"github.com/zlovtnik/stripe-lunar/internal/telemetry"
)

const (
	// TracerName is the name used for the orchestrator tracer
	TracerName = "github.com/zlovtnik/stripe-lunar/orchestrator"

	// DefaultNotifyTimeout bounds a single notification delivery
	DefaultNotifyTimeout = 30 * time.Second
)

// Runner starts ETL executions.
//
//go:generate mockgen -destination=mocks/mock_orchestrator.go -package=mocks -source=orchestrator.go Runner
type Runner interface {
	// Run executes op once. Used by manual triggers.
	Run(ctx context.Context, op string) (*Execution, error)
	// RunWithRetry executes op, redelivering upstream failures. Used by scheduled triggers.
	RunWithRetry(ctx context.Context, op string) (*Execution, error)
	// RunAsync runs RunWithRetry in the background, detached from ctx cancellation.
	RunAsync(ctx context.Context, op string)
}

// Execution is the outcome of one run. Job is the terminal ledger record;
// Result is nil when the run failed.
type Execution struct {
	Job    *ledger.Record
	Result *executor.Result
}

// Orchestrator implements Runner
type Orchestrator struct {
	ledger        ledger.Ledger
	executor      executor.Executor
	recorder      metrics.Recorder
	dispatcher    notify.Dispatcher
	metrics       *telemetry.ETLMetrics
	tracer        trace.Tracer
	retry         RetryPolicy
	notifyTimeout time.Duration

	wg sync.WaitGroup
}

var _ Runner = (*Orchestrator)(nil)

// Option configures the Orchestrator
type Option func(*Orchestrator)

// WithRecorder sets the in-process execution counter
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithDispatcher sets the notification dispatcher
func WithDispatcher(d notify.Dispatcher) Option {
	return func(o *Orchestrator) {
		o.dispatcher = d
	}
}

// WithMetrics sets the OpenTelemetry ETL instruments. Nil disables them.
func WithMetrics(m *telemetry.ETLMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithTracer sets the OpenTelemetry tracer.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

// WithRetryPolicy overrides the redelivery policy used by RunWithRetry
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Orchestrator) {
		o.retry = p
	}
}

// WithNotifyTimeout bounds each background notification
func WithNotifyTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.notifyTimeout = d
		}
	}
}

// New creates an Orchestrator
func New(l ledger.Ledger, e executor.Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ledger:        l,
		executor:      e,
		recorder:      metrics.NewAggregator(),
		dispatcher:    notify.NopDispatcher{},
		retry:         DefaultRetryPolicy(),
		notifyTimeout: DefaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes op once
func (o *Orchestrator) Run(ctx context.Context, op string) (*Execution, error) {
	return o.run(ctx, op, false)
}

// RunWithRetry executes op, retrying upstream failures according to the retry policy.
// The ledger holds a single record for the whole run.
func (o *Orchestrator) RunWithRetry(ctx context.Context, op string) (*Execution, error) {
	return o.run(ctx, op, true)
}

// RunAsync starts RunWithRetry in a goroutine. Request values such as the
// trace context are kept; cancellation of ctx is not propagated.
func (o *Orchestrator) RunAsync(ctx context.Context, op string) {
	ctx = context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if _, err := o.RunWithRetry(ctx, op); err != nil {
			slog.Error("Asynchronous run failed", "operation", op, "error", err)
		}
	}()
}

// Wait blocks until every asynchronous run and pending notification has finished
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, name string, retry bool) (*Execution, error) {
	op, err := etl.ParseOperation(name)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx, span := otel.StartSpan(ctx, o.tracer, "orchestrator.run",
		trace.WithAttributes(
			otel.AttrOperation.String(op.String()),
			otel.AttrRunID.String(runID),
		))
	defer span.End()

	logger := slog.With("operation", op, "run_id", runID)

	id, err := o.ledger.Start(ctx, op)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to record job start: %w", err)
	}
	span.SetAttributes(otel.AttrJobID.Int64(id))
	logger = logger.With("job_id", id)

	o.recorder.Record(op.String())
	o.metrics.RecordExecution(ctx, op.String())

	logger.Info("Starting operation", "retry", retry)
	start := time.Now()

	var result *executor.Result
	if retry {
		result, err = o.executeWithRetry(ctx, op, logger)
	} else {
		result, err = o.execute(ctx, op)
	}
	elapsed := time.Since(start)

	// The terminal transition must land even if the trigger gave up waiting.
	ledgerCtx := context.WithoutCancel(ctx)

	if err != nil {
		otel.RecordError(span, err)
		logger.Error("Operation failed", "error", err, "duration", elapsed)
		return o.fail(ctx, op, id, elapsed, err, logger)
	}

	count := result.Count()
	job, err := o.ledger.Complete(ledgerCtx, id, count)
	if err != nil {
		// A record left RUNNING would never be closed; fail it instead
		err = fmt.Errorf("failed to record job completion: %w", err)
		otel.RecordError(span, err)
		logger.Error("Failed to record job completion", "error", err)
		return o.fail(ctx, op, id, elapsed, err, logger)
	}

	span.SetAttributes(otel.AttrResultCount.Int64(count))
	o.metrics.RecordDuration(ctx, op.String(), elapsed, true, count)
	logger.Info("Operation completed", "records", count, "duration", elapsed)

	o.notifyAsync(ctx, "completion", logger, func(ctx context.Context) error {
		return o.dispatcher.NotifyCompletion(ctx, job)
	})
	return &Execution{Job: job, Result: result}, nil
}

// fail moves the record to FAILED and sends the failure notification.
// runErr is always returned; the execution is nil when the ledger write fails too.
func (o *Orchestrator) fail(
	ctx context.Context, op etl.Operation, id int64, elapsed time.Duration, runErr error, logger *slog.Logger,
) (*Execution, error) {
	o.metrics.RecordDuration(ctx, op.String(), elapsed, false, 0)

	job, err := o.ledger.Fail(context.WithoutCancel(ctx), id, runErr.Error())
	if err != nil {
		logger.Error("Failed to record job failure", "error", err)
		return nil, runErr
	}
	o.notifyAsync(ctx, "failure", logger, func(ctx context.Context) error {
		return o.dispatcher.NotifyFailure(ctx, job)
	})
	return &Execution{Job: job}, runErr
}

// execute runs a single attempt bounded by the per-attempt timeout
func (o *Orchestrator) execute(ctx context.Context, op etl.Operation) (*executor.Result, error) {
	if o.retry.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.retry.AttemptTimeout)
		defer cancel()
	}
	return o.executor.Execute(ctx, op)
}

// notifyAsync delivers a notification in the background. Failures are logged only.
func (o *Orchestrator) notifyAsync(ctx context.Context, kind string, logger *slog.Logger, send func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, o.notifyTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			o.metrics.RecordNotificationFailure(ctx, kind)
			logger.Warn("Notification not delivered", "kind", kind, "error", err)
		}
	}()
}
