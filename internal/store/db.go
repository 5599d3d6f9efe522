package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"

	"github.com/zlovtnik/stripe-lunar/internal/otel"
)

const (
	// TracerName is the name used for the database store tracer
	TracerName = "github.com/zlovtnik/stripe-lunar/store"

	customerColumns = `id, COALESCE(email, ''), COALESCE(name, ''), COALESCE(description, ''),
		created_date, updated_date, metadata, deleted`
	paymentColumns = `id, COALESCE(customer_id, ''), amount::text, COALESCE(currency, ''),
		COALESCE(status, ''), COALESCE(description, ''), created_date, updated_date, metadata`

	upsertCustomerSQL = `INSERT INTO customers
		(id, email, name, description, created_date, updated_date, metadata, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			created_date = EXCLUDED.created_date,
			updated_date = EXCLUDED.updated_date,
			metadata = EXCLUDED.metadata,
			deleted = EXCLUDED.deleted`

	upsertPaymentSQL = `INSERT INTO payments
		(id, customer_id, amount, currency, status, description, created_date, updated_date, metadata)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			description = EXCLUDED.description,
			created_date = EXCLUDED.created_date,
			updated_date = EXCLUDED.updated_date,
			metadata = EXCLUDED.metadata`
)

type dbStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// options holds configuration options for the database store
type options struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// Option is a functional option for configuring the database store
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

// WithTracer sets the OpenTelemetry tracer for the store.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

// NewDBStore creates a store backed by the customers and payments tables.
func NewDBStore(opts ...Option) (Store, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return &dbStore{pool: o.pool, tracer: o.tracer}, nil
}

func (d *dbStore) UpsertCustomers(ctx context.Context, customers []Customer) error {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, "store.UpsertCustomers",
		trace.WithAttributes(otel.AttrResultCount.Int(len(customers))))
	defer span.End()

	batch := &pgx.Batch{}
	for _, c := range customers {
		batch.Queue(upsertCustomerSQL,
			c.ID, c.Email, c.Name, c.Description,
			c.CreatedDate, c.UpdatedDate, nonNilMetadata(c.Metadata), c.Deleted)
	}
	err := d.sendBatch(ctx, batch)
	otel.RecordError(span, err)
	if err != nil {
		return fmt.Errorf("failed to upsert customers: %w", err)
	}
	return nil
}

func (d *dbStore) UpsertPayments(ctx context.Context, payments []Payment) error {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, "store.UpsertPayments",
		trace.WithAttributes(otel.AttrResultCount.Int(len(payments))))
	defer span.End()

	batch := &pgx.Batch{}
	for _, p := range payments {
		batch.Queue(upsertPaymentSQL,
			p.ID, p.CustomerID, p.Amount.String(), p.Currency, p.Status, p.Description,
			p.CreatedDate, p.UpdatedDate, nonNilMetadata(p.Metadata))
	}
	err := d.sendBatch(ctx, batch)
	otel.RecordError(span, err)
	if err != nil {
		return fmt.Errorf("failed to upsert payments: %w", err)
	}
	return nil
}

// sendBatch runs the batch in one transaction so a page is stored atomically.
func (d *dbStore) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (d *dbStore) CountCustomers(ctx context.Context) (int64, error) {
	return d.count(ctx, "store.CountCustomers", `SELECT count(*) FROM customers`)
}

func (d *dbStore) CountPayments(ctx context.Context) (int64, error) {
	return d.count(ctx, "store.CountPayments", `SELECT count(*) FROM payments`)
}

func (d *dbStore) count(ctx context.Context, spanName, sql string) (int64, error) {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, spanName)
	defer span.End()

	var n int64
	if err := d.pool.QueryRow(ctx, sql).Scan(&n); err != nil {
		otel.RecordError(span, err)
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

func (d *dbStore) ListCustomers(ctx context.Context) ([]Customer, error) {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, "store.ListCustomers")
	defer span.End()

	rows, err := d.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY id`)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	customers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Customer, error) {
		c, err := scanCustomer(row)
		if err != nil {
			return Customer{}, err
		}
		return *c, nil
	})
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to read customers: %w", err)
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(customers)))
	return customers, nil
}

func (d *dbStore) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, "store.GetCustomer",
		trace.WithAttributes(otel.AttrEntityID.String(id)))
	defer span.End()

	c, err := scanCustomer(d.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

func (d *dbStore) ListPayments(ctx context.Context) ([]Payment, error) {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, "store.ListPayments")
	defer span.End()

	payments, err := d.queryPayments(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY id`)
	otel.RecordError(span, err)
	return payments, err
}

func (d *dbStore) GetPayment(ctx context.Context, id string) (*Payment, error) {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, "store.GetPayment",
		trace.WithAttributes(otel.AttrEntityID.String(id)))
	defer span.End()

	p, err := scanPayment(d.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (d *dbStore) ListPaymentsByCustomer(ctx context.Context, customerID string) ([]Payment, error) {
	ctx, span := otel.StartDBSpan(ctx, d.tracer, "store.ListPaymentsByCustomer",
		trace.WithAttributes(otel.AttrEntityID.String(customerID)))
	defer span.End()

	payments, err := d.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE customer_id = $1 ORDER BY id`, customerID)
	otel.RecordError(span, err)
	return payments, err
}

func (d *dbStore) queryPayments(ctx context.Context, sql string, args ...any) ([]Payment, error) {
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	payments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Payment, error) {
		p, err := scanPayment(row)
		if err != nil {
			return Payment{}, err
		}
		return *p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read payments: %w", err)
	}
	return payments, nil
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var (
		c                Customer
		created, updated *time.Time
	)
	err := row.Scan(&c.ID, &c.Email, &c.Name, &c.Description, &created, &updated, &c.Metadata, &c.Deleted)
	if err != nil {
		return nil, err
	}
	c.CreatedDate = derefTime(created)
	c.UpdatedDate = derefTime(updated)
	return &c, nil
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var (
		p                Payment
		amount           string
		created, updated *time.Time
	)
	err := row.Scan(&p.ID, &p.CustomerID, &amount, &p.Currency, &p.Status, &p.Description,
		&created, &updated, &p.Metadata)
	if err != nil {
		return nil, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	p.CreatedDate = derefTime(created)
	p.UpdatedDate = derefTime(updated)
	return &p, nil
}

func nonNilMetadata(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
