package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/zlovtnik/stripe-lunar/internal/app/storage/auth"
	"github.com/zlovtnik/stripe-lunar/internal/config"
	"github.com/zlovtnik/stripe-lunar/internal/ledger"
	"github.com/zlovtnik/stripe-lunar/internal/store"
)

// DatabaseFactory creates database-backed storage components.
// All components created by this factory use PostgreSQL for persistence.
type DatabaseFactory struct {
	config *config.Config
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

var _ Factory = (*DatabaseFactory)(nil)

// DatabaseFactoryOption is a functional option for configuring the DatabaseFactory
type DatabaseFactoryOption func(*DatabaseFactory)

// WithTracer sets the OpenTelemetry tracer for the database components.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) DatabaseFactoryOption {
	return func(f *DatabaseFactory) {
		f.tracer = tracer
	}
}

// NewDatabaseFactory creates a new database-backed storage factory.
// It establishes a connection pool to the configured PostgreSQL database.
func NewDatabaseFactory(ctx context.Context, cfg *config.Config, opts ...DatabaseFactoryOption) (*DatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if cfg.Database == nil {
		return nil, fmt.Errorf("database configuration is required for database storage type")
	}

	slog.Info("Creating database-backed storage factory")

	pool, err := buildDatabaseConnectionPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	factory := &DatabaseFactory{
		config: cfg,
		pool:   pool,
	}

	// Apply options
	for _, opt := range opts {
		opt(factory)
	}

	return factory, nil
}

// CreateStore creates a database-backed customer and payment store.
func (d *DatabaseFactory) CreateStore(_ context.Context) (store.Store, error) {
	slog.Debug("Creating database-backed store")

	opts := []store.Option{store.WithConnectionPool(d.pool)}
	if d.tracer != nil {
		opts = append(opts, store.WithTracer(d.tracer))
	}
	return store.NewDBStore(opts...)
}

// CreateLedger creates a database-backed job ledger.
func (d *DatabaseFactory) CreateLedger(_ context.Context) (ledger.Ledger, error) {
	slog.Debug("Creating database-backed ledger")

	opts := []ledger.Option{ledger.WithConnectionPool(d.pool)}
	if d.tracer != nil {
		opts = append(opts, ledger.WithTracer(d.tracer))
	}
	return ledger.NewDBLedger(opts...)
}

// Cleanup releases resources held by the database factory.
// This closes the database connection pool and any active connections.
func (d *DatabaseFactory) Cleanup() {
	if d.pool != nil {
		slog.Info("Closing database connection pool")
		d.pool.Close()
	}
}

// buildDatabaseConnectionPool creates a database connection pool with proper configuration.
func buildDatabaseConnectionPool(ctx context.Context, db *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := buildPoolConfig(ctx, db)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	slog.Info("Database connection pool created successfully",
		"host", db.Host, "database", db.Database, "user", db.User)
	return pool, nil
}

// buildPoolConfig translates the database section into a pgx pool configuration.
// With dynamic auth, a fresh token is set as the password before every connect.
func buildPoolConfig(ctx context.Context, db *config.DatabaseConfig) (*pgxpool.Config, error) {
	connStr, err := db.GetConnectionString()
	if err != nil {
		return nil, fmt.Errorf("failed to build connection string: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}

	if db.MaxOpenConns > 0 {
		poolConfig.MaxConns = db.MaxOpenConns
	}
	if db.MaxIdleConns > 0 {
		poolConfig.MinConns = db.MaxIdleConns
	}
	if lifetime := db.GetConnMaxLifetime(); lifetime > 0 {
		poolConfig.MaxConnLifetime = lifetime
	}

	if db.DynamicAuth != nil {
		beforeConnect, err := auth.NewDynamicAuth(ctx, db, db.User)
		if err != nil {
			return nil, fmt.Errorf("failed to configure dynamic authentication: %w", err)
		}
		poolConfig.BeforeConnect = beforeConnect
		slog.Info("Dynamic database authentication enabled")
	}

	return poolConfig, nil
}
