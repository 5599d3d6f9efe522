package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/zlovtnik/stripe-lunar/internal/etl"
	"github.com/zlovtnik/stripe-lunar/internal/otel"
)

const (
	// TracerName is the name used for the database ledger tracer
	TracerName = "github.com/zlovtnik/stripe-lunar/ledger"

	recordColumns = "id, job_name, start_time, end_time, status, records_processed, error_message"
)

type dbLedger struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// options holds configuration options for the database ledger
type options struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// Option is a functional option for configuring the database ledger
type Option func(*options) error

// WithConnectionPool sets the pgx pool. The caller owns the pool and closes it.
func WithConnectionPool(pool *pgxpool.Pool) Option {
	return func(o *options) error {
		if pool == nil {
			return fmt.Errorf("pgx pool is required")
		}
		o.pool = pool
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for the ledger.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// NewDBLedger creates a ledger backed by the etl_job_history table.
func NewDBLedger(opts ...Option) (Ledger, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return &dbLedger{pool: o.pool, tracer: o.tracer}, nil
}

func (d *dbLedger) Start(ctx context.Context, op etl.Operation) (int64, error) {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, "ledger.Start",
		trace.WithAttributes(otel.AttrOperation.String(op.String())))
	defer span.End()

	var id int64
	err := d.pool.QueryRow(ctx,
		`INSERT INTO etl_job_history (job_name, start_time, status)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		op.String(), time.Now().UTC(), string(StatusRunning),
	).Scan(&id)
	if err != nil {
		otel.RecordError(span, err)
		return 0, fmt.Errorf("failed to insert job record: %w", err)
	}
	return id, nil
}

func (d *dbLedger) Complete(ctx context.Context, id int64, recordsProcessed int64) (*Record, error) {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, "ledger.Complete",
		trace.WithAttributes(otel.AttrJobID.Int64(id)))
	defer span.End()

	r, err := d.scanOne(d.pool.QueryRow(ctx,
		`UPDATE etl_job_history
		 SET status = $2, end_time = GREATEST($3, start_time), records_processed = $4
		 WHERE id = $1 AND status = $5
		 RETURNING `+recordColumns,
		id, string(StatusCompleted), time.Now().UTC(), recordsProcessed, string(StatusRunning),
	), id)
	otel.RecordError(span, err)
	return r, err
}

func (d *dbLedger) Fail(ctx context.Context, id int64, errorMessage string) (*Record, error) {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, "ledger.Fail",
		trace.WithAttributes(otel.AttrJobID.Int64(id)))
	defer span.End()

	r, err := d.scanOne(d.pool.QueryRow(ctx,
		`UPDATE etl_job_history
		 SET status = $2, end_time = GREATEST($3, start_time), error_message = $4
		 WHERE id = $1 AND status = $5
		 RETURNING `+recordColumns,
		id, string(StatusFailed), time.Now().UTC(), errorMessage, string(StatusRunning),
	), id)
	otel.RecordError(span, err)
	return r, err
}

func (d *dbLedger) Get(ctx context.Context, id int64) (*Record, error) {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, "ledger.Get",
		trace.WithAttributes(otel.AttrJobID.Int64(id)))
	defer span.End()

	r, err := d.scanOne(d.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM etl_job_history WHERE id = $1`, id), id)
	otel.RecordError(span, err)
	return r, err
}

func (d *dbLedger) ListByOperation(ctx context.Context, op etl.Operation) ([]Record, error) {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, "ledger.ListByOperation",
		trace.WithAttributes(otel.AttrOperation.String(op.String())))
	defer span.End()

	records, err := d.query(ctx,
		`SELECT `+recordColumns+` FROM etl_job_history
		 WHERE job_name = $1
		 ORDER BY start_time DESC, id DESC`, op.String())
	otel.RecordError(span, err)
	return records, err
}

func (d *dbLedger) ListSince(ctx context.Context, since time.Time) ([]Record, error) {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, "ledger.ListSince")
	defer span.End()

	records, err := d.query(ctx,
		`SELECT `+recordColumns+` FROM etl_job_history
		 WHERE start_time > $1
		 ORDER BY start_time DESC, id DESC`, since)
	otel.RecordError(span, err)
	return records, err
}

func (d *dbLedger) Last(ctx context.Context, op etl.Operation) (*Record, error) {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, "ledger.Last",
		trace.WithAttributes(otel.AttrOperation.String(op.String())))
	defer span.End()

	r, err := d.scanOne(d.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM etl_job_history
		 WHERE job_name = $1
		 ORDER BY start_time DESC, id DESC
		 LIMIT 1`, op.String()), 0)
	if errors.Is(err, ErrJobNotFound) {
		return nil, nil
	}
	otel.RecordError(span, err)
	return r, err
}

func (d *dbLedger) Statistics(ctx context.Context) (*Statistics, error) {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, "ledger.Statistics")
	defer span.End()

	stats, err := d.statistics(ctx)
	otel.RecordError(span, err)
	return stats, err
}

func (d *dbLedger) statistics(ctx context.Context) (*Statistics, error) {
	var total int64
	if err := d.pool.QueryRow(ctx, `SELECT count(*) FROM etl_job_history`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count job records: %w", err)
	}

	ops := syncOperationNames()

	rows, err := d.pool.Query(ctx,
		`SELECT status, count(*) FROM etl_job_history
		 WHERE job_name = ANY($1)
		 GROUP BY status`, ops)
	if err != nil {
		return nil, fmt.Errorf("failed to count job records by status: %w", err)
	}
	counts := make(map[Status]int64)
	var (
		status string
		count  int64
	)
	_, err = pgx.ForEachRow(rows, []any{&status, &count}, func() error {
		counts[Status(status)] = count
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read status counts: %w", err)
	}

	latest, err := d.query(ctx,
		`SELECT DISTINCT ON (job_name) `+recordColumns+` FROM etl_job_history
		 WHERE job_name = ANY($1)
		 ORDER BY job_name, start_time DESC, id DESC`, ops)
	if err != nil {
		return nil, err
	}

	return buildStatistics(total, counts, latest), nil
}

func (*dbLedger) scanOne(row pgx.Row, id int64) (*Record, error) {
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job record: %w", err)
	}
	return r, nil
}

func (d *dbLedger) query(ctx context.Context, sql string, args ...any) ([]Record, error) {
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query job records: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		r, err := scanRecord(row)
		if err != nil {
			return Record{}, err
		}
		return *r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read job records: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		r      Record
		op     string
		status string
	)
	if err := row.Scan(&r.ID, &op, &r.StartTime, &r.EndTime, &status, &r.RecordsProcessed, &r.ErrorMessage); err != nil {
		return nil, err
	}
	r.Operation = etl.Operation(op)
	r.Status = Status(status)
	return &r, nil
}
