package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zlovtnik/stripe-lunar/internal/logging"
	"github.com/zlovtnik/stripe-lunar/internal/orchestrator"
)

// Coordinator manages the scheduled sync runs
type Coordinator interface {
	// Start begins scheduling.
	// Blocks until context is cancelled or Stop is called
	Start(ctx context.Context) error

	// Stop gracefully stops the scheduler and waits for running jobs
	Stop() error
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	runner    orchestrator.Runner
	schedules []Schedule
	cron      *cron.Cron
	location  *time.Location

	// Lifecycle management
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithLocation sets the time zone the cron specs are evaluated in. Defaults to local time.
func WithLocation(loc *time.Location) Option {
	return func(c *defaultCoordinator) {
		if loc != nil {
			c.location = loc
		}
	}
}

// New creates a coordinator firing runner.RunWithRetry for every schedule
func New(runner orchestrator.Runner, schedules []Schedule, opts ...Option) (Coordinator, error) {
	for _, s := range schedules {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}

	c := &defaultCoordinator{
		runner:    runner,
		schedules: schedules,
		location:  time.Local,
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	cronLogger := logging.NewCronLogger(slog.Default())
	c.cron = cron.New(
		cron.WithLocation(c.location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger)),
	)

	return c, nil
}

// Start registers the schedules and runs the scheduler until ctx is done.
// It must be called at most once.
func (c *defaultCoordinator) Start(ctx context.Context) error {
	slog.Info("Starting sync scheduler", "schedule_count", len(c.schedules))

	coordCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	c.cancelFunc = cancel
	c.mu.Unlock()
	defer func() {
		close(c.done)
		slog.Info("Sync scheduler shut down")
	}()

	for _, schedule := range c.schedules {
		if _, err := c.cron.AddFunc(schedule.Spec, func() {
			c.runScheduled(coordCtx, schedule)
		}); err != nil {
			return fmt.Errorf("failed to register schedule for %s: %w", schedule.Operation, err)
		}
		slog.Info("Registered sync schedule", "operation", schedule.Operation, "spec", schedule.Spec)
	}

	c.cron.Start()

	<-coordCtx.Done()
	slog.Info("Sync scheduler stopping")

	// Wait for jobs that are still running
	<-c.cron.Stop().Done()
	return nil
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping sync scheduler")
		cancel()
		// Wait for coordinator to finish
		<-c.done
	}
	return nil
}
