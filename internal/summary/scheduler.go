package summary

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zlovtnik/stripe-lunar/internal/logging"
)

const (
	// DefaultDailySpec fires every day at 06:00
	DefaultDailySpec = "0 6 * * *"
	// DefaultWeeklySpec fires on Mondays at 07:00
	DefaultWeeklySpec = "0 7 * * 1"
	// DefaultMonthlySpec fires on the first of the month at 08:00
	DefaultMonthlySpec = "0 8 1 * *"
)

// Schedule binds a period to a standard five-field cron spec
type Schedule struct {
	Period Period
	Spec   string
}

// DefaultSchedules returns the daily, weekly and monthly schedules
func DefaultSchedules() []Schedule {
	return []Schedule{
		{Period: PeriodDaily, Spec: DefaultDailySpec},
		{Period: PeriodWeekly, Spec: DefaultWeeklySpec},
		{Period: PeriodMonthly, Spec: DefaultMonthlySpec},
	}
}

// Scheduler runs summaries on their cron schedules
type Scheduler struct {
	summarizer *Summarizer
	cron       *cron.Cron

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
	schedules  []Schedule
}

// SchedulerOption configures a Scheduler
type SchedulerOption func(*schedulerOptions)

type schedulerOptions struct {
	location *time.Location
}

// WithLocation sets the time zone the cron specs are evaluated in. Defaults to local time.
func WithLocation(loc *time.Location) SchedulerOption {
	return func(o *schedulerOptions) {
		if loc != nil {
			o.location = loc
		}
	}
}

// NewScheduler validates schedules and returns a Scheduler that is not yet running
func NewScheduler(s *Summarizer, schedules []Schedule, opts ...SchedulerOption) (*Scheduler, error) {
	o := &schedulerOptions{location: time.Local}
	for _, opt := range opts {
		opt(o)
	}

	for _, sch := range schedules {
		if _, err := sch.Period.LookBack(); err != nil {
			return nil, err
		}
		if _, err := cron.ParseStandard(sch.Spec); err != nil {
			return nil, fmt.Errorf("invalid schedule %q for %s summary: %w", sch.Spec, sch.Period, err)
		}
	}

	cronLogger := logging.NewCronLogger(slog.Default())
	return &Scheduler{
		summarizer: s,
		schedules:  schedules,
		done:       make(chan struct{}),
		cron: cron.New(
			cron.WithLocation(o.location),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
	}, nil
}

// Start runs the scheduler until ctx is done or Stop is called.
// It must be called at most once.
func (s *Scheduler) Start(ctx context.Context) error {
	schedCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancelFunc = cancel
	s.mu.Unlock()
	defer close(s.done)

	for _, sch := range s.schedules {
		if _, err := s.cron.AddFunc(sch.Spec, func() {
			if _, err := s.summarizer.Summarize(schedCtx, sch.Period); err != nil {
				slog.Error("Job summary failed", "period", sch.Period, "error", err)
			}
		}); err != nil {
			return fmt.Errorf("failed to register %s summary: %w", sch.Period, err)
		}
	}

	slog.Info("Starting job summary scheduler", "schedule_count", len(s.schedules))
	s.cron.Start()

	<-schedCtx.Done()
	<-s.cron.Stop().Done()
	slog.Info("Job summary scheduler shut down")
	return nil
}

// Stop cancels the scheduler and waits for a running summary to finish
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel := s.cancelFunc
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-s.done
	}
	return nil
}
