package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/zlovtnik/stripe-lunar/internal/etl"
)

type memoryLedger struct {
	mu      sync.RWMutex
	records map[int64]*Record
	nextID  int64
	now     func() time.Time
}

// MemoryOption configures the in-memory ledger
type MemoryOption func(*memoryLedger)

// WithClock overrides the time source used for start and end times
func WithClock(now func() time.Time) MemoryOption {
	return func(m *memoryLedger) {
		m.now = now
	}
}

// NewMemoryLedger creates a process-local ledger. History is lost on restart.
func NewMemoryLedger(opts ...MemoryOption) Ledger {
	m := &memoryLedger{
		records: make(map[int64]*Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *memoryLedger) Start(_ context.Context, op etl.Operation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	r := newRecord(m.nextID, op, m.now())
	m.records[r.ID] = &r
	return r.ID, nil
}

func (m *memoryLedger) Complete(_ context.Context, id int64, recordsProcessed int64) (*Record, error) {
	return m.transition(id, func(r *Record, at time.Time) {
		r.complete(recordsProcessed, at)
	})
}

func (m *memoryLedger) Fail(_ context.Context, id int64, errorMessage string) (*Record, error) {
	return m.transition(id, func(r *Record, at time.Time) {
		r.fail(errorMessage, at)
	})
}

func (m *memoryLedger) transition(id int64, apply func(*Record, time.Time)) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok || r.Terminal() {
		return nil, fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}

	at := m.now()
	if at.Before(r.StartTime) {
		at = r.StartTime
	}
	apply(r, at)

	result := *r
	return &result, nil
}

func (m *memoryLedger) Get(_ context.Context, id int64) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	result := *r
	return &result, nil
}

func (m *memoryLedger) ListByOperation(_ context.Context, op etl.Operation) ([]Record, error) {
	return m.filter(func(r *Record) bool { return r.Operation == op }), nil
}

func (m *memoryLedger) ListSince(_ context.Context, since time.Time) ([]Record, error) {
	return m.filter(func(r *Record) bool { return r.StartTime.After(since) }), nil
}

func (m *memoryLedger) Last(ctx context.Context, op etl.Operation) (*Record, error) {
	records, err := m.ListByOperation(ctx, op)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[0], nil
}

func (m *memoryLedger) Statistics(ctx context.Context) (*Statistics, error) {
	m.mu.RLock()
	total := int64(len(m.records))
	counts := make(map[Status]int64)
	for _, r := range m.records {
		if slices.Contains(etl.SyncOperations(), r.Operation) {
			counts[r.Status]++
		}
	}
	m.mu.RUnlock()

	var latest []Record
	for _, op := range etl.SyncOperations() {
		last, err := m.Last(ctx, op)
		if err != nil {
			return nil, err
		}
		if last != nil {
			latest = append(latest, *last)
		}
	}

	return buildStatistics(total, counts, latest), nil
}

// filter returns matching records ordered by start time descending, ties broken by id.
func (m *memoryLedger) filter(match func(*Record) bool) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Record, 0)
	for _, r := range m.records {
		if match(r) {
			result = append(result, *r)
		}
	}
	slices.SortFunc(result, func(a, b Record) int {
		if c := b.StartTime.Compare(a.StartTime); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		default:
			return 0
		}
	})
	return result
}
