// Package ledger contains the persistent record of every ETL execution and
// the lifecycle rules for moving a job from RUNNING to a terminal state.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/zlovtnik/stripe-lunar/internal/etl"
)

// Status is the lifecycle state of a job record
type Status string

const (
	// StatusRunning is the initial state entered by Start
	StatusRunning Status = "RUNNING"

	// StatusCompleted is the terminal state entered by Complete
	StatusCompleted Status = "COMPLETED"

	// StatusFailed is the terminal state entered by Fail
	StatusFailed Status = "FAILED"
)

// ErrJobNotFound is returned when a job id is unknown, or when a terminal
// transition targets a job that already left RUNNING.
var ErrJobNotFound = errors.New("job not found")

// Ledger records operation executions and answers reporting queries.
//
// Callers must issue at most one terminal call (Complete or Fail) per Start.
// A second terminal call is reported as ErrJobNotFound and changes nothing.
//
//go:generate mockgen -destination=mocks/mock_ledger.go -package=mocks -source=ledger.go Ledger
type Ledger interface {
	// Start creates a RUNNING record and returns its id.
	Start(ctx context.Context, op etl.Operation) (int64, error)
	// Complete moves a RUNNING record to COMPLETED.
	Complete(ctx context.Context, id int64, recordsProcessed int64) (*Record, error)
	// Fail moves a RUNNING record to FAILED.
	Fail(ctx context.Context, id int64, errorMessage string) (*Record, error)
	// Get returns a single record by id.
	Get(ctx context.Context, id int64) (*Record, error)
	// ListByOperation returns every execution of op, most recent first.
	ListByOperation(ctx context.Context, op etl.Operation) ([]Record, error)
	// ListSince returns executions started after since, most recent first.
	ListSince(ctx context.Context, since time.Time) ([]Record, error)
	// Last returns the most recent execution of op, or nil when there is none.
	Last(ctx context.Context, op etl.Operation) (*Record, error)
	// Statistics aggregates counts over the sync operations.
	Statistics(ctx context.Context) (*Statistics, error)
}

// Record is one operation execution. Its fields are only changed by the
// ledger's Complete and Fail transitions.
type Record struct {
	ID               int64         `json:"id"`
	Operation        etl.Operation `json:"jobName"`
	Status           Status        `json:"status"`
	StartTime        time.Time     `json:"startTime"`
	EndTime          *time.Time    `json:"endTime"`
	RecordsProcessed *int64        `json:"recordsProcessed"`
	ErrorMessage     *string       `json:"errorMessage"`
}

func newRecord(id int64, op etl.Operation, start time.Time) Record {
	return Record{
		ID:        id,
		Operation: op,
		Status:    StatusRunning,
		StartTime: start,
	}
}

// Terminal reports whether the record reached COMPLETED or FAILED.
func (r Record) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Duration returns the elapsed time between start and end.
// The boolean is false while the record is still RUNNING.
func (r Record) Duration() (time.Duration, bool) {
	if r.EndTime == nil {
		return 0, false
	}
	return r.EndTime.Sub(r.StartTime), true
}

func (r *Record) complete(recordsProcessed int64, at time.Time) {
	r.Status = StatusCompleted
	r.EndTime = &at
	r.RecordsProcessed = &recordsProcessed
}

func (r *Record) fail(errorMessage string, at time.Time) {
	r.Status = StatusFailed
	r.EndTime = &at
	r.ErrorMessage = &errorMessage
}

// Statistics is the aggregate view served by the job statistics endpoint
type Statistics struct {
	TotalJobs      int64                    `json:"totalJobs"`
	CompletedJobs  int64                    `json:"completedJobs"`
	FailedJobs     int64                    `json:"failedJobs"`
	RunningJobs    int64                    `json:"runningJobs"`
	LastExecutions map[string]ExecutionInfo `json:"lastExecutions"`
}

// ExecutionInfo summarises the most recent run of one operation
type ExecutionInfo struct {
	ID               int64      `json:"id"`
	StartTime        time.Time  `json:"startTime"`
	EndTime          *time.Time `json:"endTime"`
	Status           Status     `json:"status"`
	RecordsProcessed *int64     `json:"recordsProcessed"`
	DurationSeconds  *int64     `json:"durationSeconds,omitempty"`
}

// NewExecutionInfo builds the summary for r, adding the duration when r is terminal.
func NewExecutionInfo(r Record) ExecutionInfo {
	info := ExecutionInfo{
		ID:               r.ID,
		StartTime:        r.StartTime,
		EndTime:          r.EndTime,
		Status:           r.Status,
		RecordsProcessed: r.RecordsProcessed,
	}
	if d, ok := r.Duration(); ok {
		seconds := int64(d / time.Second)
		info.DurationSeconds = &seconds
	}
	return info
}

func buildStatistics(total int64, counts map[Status]int64, latest []Record) *Statistics {
	stats := &Statistics{
		TotalJobs:      total,
		CompletedJobs:  counts[StatusCompleted],
		FailedJobs:     counts[StatusFailed],
		RunningJobs:    counts[StatusRunning],
		LastExecutions: make(map[string]ExecutionInfo, len(latest)),
	}
	for _, r := range latest {
		stats.LastExecutions[r.Operation.String()] = NewExecutionInfo(r)
	}
	return stats
}

func syncOperationNames() []string {
	ops := etl.SyncOperations()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	return names
}
