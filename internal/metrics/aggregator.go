// Package metrics provides the in-process per-operation execution counters
// exposed through the status and health endpoints.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// OperationMetric is the point-in-time state of one operation's counters.
type OperationMetric struct {
	ExecutionCount    int64     `json:"executionCount"`
	LastExecutionTime time.Time `json:"lastExecutionTime"`
}

// Recorder records operation invocations.
type Recorder interface {
	Record(operation string)
}

// Snapshotter exposes a read-only copy of the counters.
type Snapshotter interface {
	Snapshot() map[string]OperationMetric
}

// Aggregator keeps lock-free counters keyed by operation name.
// Each entry holds an immutable value swapped with compare-and-swap, so a
// snapshot always sees count and timestamp from the same update.
type Aggregator struct {
	entries sync.Map // string -> *atomic.Pointer[OperationMetric]
	now     func() time.Time
}

var (
	_ Recorder    = (*Aggregator)(nil)
	_ Snapshotter = (*Aggregator)(nil)
)

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock overrides the time source used for LastExecutionTime
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator creates an empty aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Record increments the execution count for operation and stamps the time.
func (a *Aggregator) Record(operation string) {
	ptr := a.entry(operation)
	for {
		current := ptr.Load()
		next := &OperationMetric{LastExecutionTime: a.now()}
		if current != nil {
			next.ExecutionCount = current.ExecutionCount + 1
			if next.LastExecutionTime.Before(current.LastExecutionTime) {
				next.LastExecutionTime = current.LastExecutionTime
			}
		} else {
			next.ExecutionCount = 1
		}
		if ptr.CompareAndSwap(current, next) {
			return
		}
	}
}

// Snapshot returns a copy of every operation that has executed at least once.
func (a *Aggregator) Snapshot() map[string]OperationMetric {
	result := make(map[string]OperationMetric)
	a.entries.Range(func(key, value any) bool {
		if m := value.(*atomic.Pointer[OperationMetric]).Load(); m != nil {
			result[key.(string)] = *m
		}
		return true
	})
	return result
}

func (a *Aggregator) entry(operation string) *atomic.Pointer[OperationMetric] {
	if v, ok := a.entries.Load(operation); ok {
		return v.(*atomic.Pointer[OperationMetric])
	}
	v, _ := a.entries.LoadOrStore(operation, new(atomic.Pointer[OperationMetric]))
	return v.(*atomic.Pointer[OperationMetric])
}
