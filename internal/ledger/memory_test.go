package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zlovtnik/stripe-lunar/internal/etl"
)

// steppingClock returns base, base+1s, base+2s, ... on successive calls.
func steppingClock(base time.Time) func() time.Time {
	var (
		mu   sync.Mutex
		tick time.Duration
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := base.Add(tick)
		tick += time.Second
		return now
	}
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMemoryLedger_StartAndComplete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewMemoryLedger(WithClock(steppingClock(base)))

	id, err := l.Start(ctx, etl.OperationSyncCustomers)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	running, err := l.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, running.Status)
	assert.Nil(t, running.EndTime)
	assert.Nil(t, running.RecordsProcessed)
	assert.False(t, running.Terminal())

	done, err := l.Complete(ctx, id, 5)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	require.NotNil(t, done.EndTime)
	assert.False(t, done.EndTime.Before(done.StartTime))
	require.NotNil(t, done.RecordsProcessed)
	assert.Equal(t, int64(5), *done.RecordsProcessed)
	assert.Nil(t, done.ErrorMessage)

	d, ok := done.Duration()
	assert.True(t, ok)
	assert.Equal(t, time.Second, d)
}

func TestMemoryLedger_Fail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewMemoryLedger(WithClock(steppingClock(base)))

	id, err := l.Start(ctx, etl.OperationSyncPayments)
	require.NoError(t, err)

	failed, err := l.Fail(ctx, id, "stripe unavailable")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Equal(t, "stripe unavailable", *failed.ErrorMessage)
	assert.Nil(t, failed.RecordsProcessed)
	require.NotNil(t, failed.EndTime)
}

func TestMemoryLedger_EndTimeNeverBeforeStart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	calls := 0
	clock := func() time.Time {
		calls++
		if calls == 1 {
			return base
		}
		// the clock steps backwards after Start
		return base.Add(-time.Minute)
	}
	l := NewMemoryLedger(WithClock(clock))

	id, err := l.Start(ctx, etl.OperationSyncAll)
	require.NoError(t, err)

	done, err := l.Complete(ctx, id, 0)
	require.NoError(t, err)
	require.NotNil(t, done.EndTime)
	assert.Equal(t, base, *done.EndTime)
}

func TestMemoryLedger_TerminalTransitionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prepare func(t *testing.T, l Ledger) int64
		apply   func(l Ledger, id int64) error
	}{
		{
			name:    "complete unknown id",
			prepare: func(*testing.T, Ledger) int64 { return 99 },
			apply: func(l Ledger, id int64) error {
				_, err := l.Complete(context.Background(), id, 1)
				return err
			},
		},
		{
			name:    "fail unknown id",
			prepare: func(*testing.T, Ledger) int64 { return 99 },
			apply: func(l Ledger, id int64) error {
				_, err := l.Fail(context.Background(), id, "boom")
				return err
			},
		},
		{
			name: "complete after complete",
			prepare: func(t *testing.T, l Ledger) int64 {
				t.Helper()
				id, err := l.Start(context.Background(), etl.OperationSyncCustomers)
				require.NoError(t, err)
				_, err = l.Complete(context.Background(), id, 3)
				require.NoError(t, err)
				return id
			},
			apply: func(l Ledger, id int64) error {
				_, err := l.Complete(context.Background(), id, 7)
				return err
			},
		},
		{
			name: "fail after complete",
			prepare: func(t *testing.T, l Ledger) int64 {
				t.Helper()
				id, err := l.Start(context.Background(), etl.OperationSyncCustomers)
				require.NoError(t, err)
				_, err = l.Complete(context.Background(), id, 3)
				require.NoError(t, err)
				return id
			},
			apply: func(l Ledger, id int64) error {
				_, err := l.Fail(context.Background(), id, "late failure")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := NewMemoryLedger(WithClock(steppingClock(base)))
			id := tt.prepare(t, l)

			before, _ := l.Get(context.Background(), id)

			err := tt.apply(l, id)
			require.ErrorIs(t, err, ErrJobNotFound)

			after, _ := l.Get(context.Background(), id)
			assert.Equal(t, before, after, "record must be unchanged")
		})
	}
}

func TestMemoryLedger_GetUnknown(t *testing.T) {
	t.Parallel()

	l := NewMemoryLedger()
	_, err := l.Get(context.Background(), 1)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryLedger_ListOrdering(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewMemoryLedger(WithClock(steppingClock(base)))

	first, err := l.Start(ctx, etl.OperationSyncCustomers)
	require.NoError(t, err)
	_, err = l.Start(ctx, etl.OperationSyncPayments)
	require.NoError(t, err)
	second, err := l.Start(ctx, etl.OperationSyncCustomers)
	require.NoError(t, err)

	records, err := l.ListByOperation(ctx, etl.OperationSyncCustomers)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second, records[0].ID)
	assert.Equal(t, first, records[1].ID)

	empty, err := l.ListByOperation(ctx, etl.OperationStatus)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMemoryLedger_ListOrderingTiesBrokenByID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewMemoryLedger(WithClock(func() time.Time { return base }))

	a, err := l.Start(ctx, etl.OperationSyncAll)
	require.NoError(t, err)
	b, err := l.Start(ctx, etl.OperationSyncAll)
	require.NoError(t, err)

	records, err := l.ListByOperation(ctx, etl.OperationSyncAll)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, b, records[0].ID)
	assert.Equal(t, a, records[1].ID)
}

func TestMemoryLedger_ListSince(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewMemoryLedger(WithClock(steppingClock(base)))

	for range 4 {
		_, err := l.Start(ctx, etl.OperationSyncPayments)
		require.NoError(t, err)
	}

	// start times are base, base+1s, base+2s, base+3s; the bound is exclusive
	records, err := l.ListSince(ctx, base.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, base.Add(3*time.Second), records[0].StartTime)
	assert.Equal(t, base.Add(2*time.Second), records[1].StartTime)
}

func TestMemoryLedger_Last(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewMemoryLedger(WithClock(steppingClock(base)))

	last, err := l.Last(ctx, etl.OperationSyncCustomers)
	require.NoError(t, err)
	assert.Nil(t, last)

	_, err = l.Start(ctx, etl.OperationSyncCustomers)
	require.NoError(t, err)
	latest, err := l.Start(ctx, etl.OperationSyncCustomers)
	require.NoError(t, err)

	last, err = l.Last(ctx, etl.OperationSyncCustomers)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, latest, last.ID)
}

func TestMemoryLedger_Statistics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewMemoryLedger(WithClock(steppingClock(base)))

	customers, err := l.Start(ctx, etl.OperationSyncCustomers)
	require.NoError(t, err)
	_, err = l.Complete(ctx, customers, 10)
	require.NoError(t, err)

	payments, err := l.Start(ctx, etl.OperationSyncPayments)
	require.NoError(t, err)
	_, err = l.Fail(ctx, payments, "boom")
	require.NoError(t, err)

	_, err = l.Start(ctx, etl.OperationSyncAll)
	require.NoError(t, err)

	status, err := l.Start(ctx, etl.OperationStatus)
	require.NoError(t, err)
	_, err = l.Complete(ctx, status, 0)
	require.NoError(t, err)

	stats, err := l.Statistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.TotalJobs)
	assert.Equal(t, int64(1), stats.CompletedJobs)
	assert.Equal(t, int64(1), stats.FailedJobs)
	assert.Equal(t, int64(1), stats.RunningJobs)

	require.Len(t, stats.LastExecutions, 3)
	assert.NotContains(t, stats.LastExecutions, etl.OperationStatus.String())

	info := stats.LastExecutions[etl.OperationSyncCustomers.String()]
	assert.Equal(t, customers, info.ID)
	assert.Equal(t, StatusCompleted, info.Status)
	require.NotNil(t, info.DurationSeconds)
	assert.Equal(t, int64(1), *info.DurationSeconds)

	running := stats.LastExecutions[etl.OperationSyncAll.String()]
	assert.Equal(t, StatusRunning, running.Status)
	assert.Nil(t, running.DurationSeconds)
}

func TestMemoryLedger_StatisticsEmpty(t *testing.T) {
	t.Parallel()

	stats, err := NewMemoryLedger().Statistics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalJobs)
	assert.NotNil(t, stats.LastExecutions)
	assert.Empty(t, stats.LastExecutions)
}

func TestMemoryLedger_ConcurrentStarts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewMemoryLedger()

	const workers = 32
	ids := make(chan int64, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := l.Start(ctx, etl.OperationSyncAll)
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers)
}
