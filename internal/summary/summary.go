// Package summary sends periodic digests of ETL job outcomes.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zlovtnik/stripe-lunar/internal/etl"
	"github.com/zlovtnik/stripe-lunar/internal/ledger"
	"github.com/zlovtnik/stripe-lunar/internal/notify"
)

// Period is a summary cadence
type Period string

const (
	// PeriodDaily covers the last day
	PeriodDaily Period = "Daily"
	// PeriodWeekly covers the last seven days
	PeriodWeekly Period = "Weekly"
	// PeriodMonthly covers the last thirty days
	PeriodMonthly Period = "Monthly"
)

// LookBack returns how far back a summary for p reaches
func (p Period) LookBack() (time.Duration, error) {
	switch p {
	case PeriodDaily:
		return 24 * time.Hour, nil
	case PeriodWeekly:
		return 7 * 24 * time.Hour, nil
	case PeriodMonthly:
		return 30 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown summary period %q", string(p))
	}
}

// partitions maps the summarised operations to their report label, in report order
var partitions = []struct {
	op    etl.Operation
	label string
}{
	{etl.OperationSyncCustomers, "Customer Sync"},
	{etl.OperationSyncPayments, "Payment Sync"},
	{etl.OperationSyncAll, "Full Sync"},
}

// Report is the digest of one operation over a period
type Report struct {
	Name    string
	Success int
	Failure int
	// TotalRecords is summed over every job in the window, not only this operation
	TotalRecords int64
}

// Summarizer builds reports from the ledger and hands them to the dispatcher
type Summarizer struct {
	ledger     ledger.Ledger
	dispatcher notify.Dispatcher
	now        func() time.Time
}

// Option configures a Summarizer
type Option func(*Summarizer)

// WithClock overrides the time source used to compute the window start
func WithClock(now func() time.Time) Option {
	return func(s *Summarizer) {
		s.now = now
	}
}

// NewSummarizer creates a Summarizer
func NewSummarizer(l ledger.Ledger, d notify.Dispatcher, opts ...Option) *Summarizer {
	s := &Summarizer{
		ledger:     l,
		dispatcher: d,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize reports on jobs started within the period's look-back window.
// One notification is sent per operation with at least one finished job.
// Notification failures are logged and do not stop the remaining reports.
func (s *Summarizer) Summarize(ctx context.Context, period Period) ([]Report, error) {
	lookBack, err := period.LookBack()
	if err != nil {
		return nil, err
	}

	jobs, err := s.ledger.ListSince(ctx, s.now().Add(-lookBack))
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs for %s summary: %w", period, err)
	}

	reports := buildReports(period, jobs)
	for _, r := range reports {
		if err := s.dispatcher.NotifySummary(ctx, r.Name, r.Success, r.Failure, r.TotalRecords); err != nil {
			slog.Warn("Summary notification not delivered", "summary", r.Name, "error", err)
		}
	}

	slog.Info("Job summary generated", "period", period, "total_jobs", len(jobs), "reports", len(reports))
	return reports, nil
}

func buildReports(period Period, jobs []ledger.Record) []Report {
	var total int64
	success := make(map[etl.Operation]int)
	failure := make(map[etl.Operation]int)

	for _, job := range jobs {
		if job.RecordsProcessed != nil {
			total += *job.RecordsProcessed
		}
		switch job.Status {
		case ledger.StatusCompleted:
			success[job.Operation]++
		case ledger.StatusFailed:
			failure[job.Operation]++
		}
	}

	reports := make([]Report, 0, len(partitions))
	for _, p := range partitions {
		if success[p.op] == 0 && failure[p.op] == 0 {
			continue
		}
		reports = append(reports, Report{
			Name:         fmt.Sprintf("%s %s", period, p.label),
			Success:      success[p.op],
			Failure:      failure[p.op],
			TotalRecords: total,
		})
	}
	return reports
}
