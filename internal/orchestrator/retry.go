package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/zlovtnik/stripe-lunar/internal/etl"
	"github.com/zlovtnik/stripe-lunar/internal/executor"
)

// RetryPolicy controls redelivery of upstream failures on scheduled and webhook runs
type RetryPolicy struct {
	// MaxRedeliveries is the number of attempts after the first one
	MaxRedeliveries int
	// InitialInterval is the wait before the first redelivery
	InitialInterval time.Duration
	// Multiplier scales the wait after each redelivery
	Multiplier float64
	// MaxInterval caps the wait between attempts
	MaxInterval time.Duration
	// AttemptTimeout bounds each attempt; zero means unbounded
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy returns 3 redeliveries starting at one second and doubling
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRedeliveries: 3,
		InitialInterval: time.Second,
		Multiplier:      2,
		MaxInterval:     time.Minute,
		AttemptTimeout:  30 * time.Second,
	}
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	maxInterval := p.MaxInterval
	if maxInterval < p.InitialInterval {
		maxInterval = p.InitialInterval
	}
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	return &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialInterval,
		RandomizationFactor: 0,
		Multiplier:          multiplier,
		MaxInterval:         maxInterval,
	}
}

// executeWithRetry retries only *etl.UpstreamSyncError; any other error stops immediately.
func (o *Orchestrator) executeWithRetry(
	ctx context.Context, op etl.Operation, logger *slog.Logger,
) (*executor.Result, error) {
	attempt := 0
	operation := func() (*executor.Result, error) {
		attempt++
		if attempt > 1 {
			o.metrics.RecordRetry(ctx, op.String())
		}

		result, err := o.execute(ctx, op)
		if err == nil {
			return result, nil
		}
		if !etl.IsUpstream(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	tries := o.retry.MaxRedeliveries + 1
	if tries < 1 {
		tries = 1
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(o.retry.backOff()),
		backoff.WithMaxTries(uint(tries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("Attempt failed, retrying", "attempt", attempt, "error", err, "backoff", next)
		}),
	)
}
