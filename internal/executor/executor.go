// Package executor performs the work of one ETL operation: it reads a page of
// records from the payment platform and upserts them into the store.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zlovtnik/stripe-lunar/internal/etl"
	"github.com/zlovtnik/stripe-lunar/internal/ledger"
	"github.com/zlovtnik/stripe-lunar/internal/platform"
	"github.com/zlovtnik/stripe-lunar/internal/store"
)

// Executor runs a single operation.
//
//go:generate mockgen -destination=mocks/mock_executor.go -package=mocks -source=executor.go Executor
type Executor interface {
	// Execute performs op. Platform failures are returned as *etl.UpstreamSyncError.
	Execute(ctx context.Context, op etl.Operation) (*Result, error)
}

// Result is the outcome of a successful execution
type Result struct {
	Customers []store.Customer `json:"customers,omitempty"`
	Payments  []store.Payment  `json:"payments,omitempty"`
	Status    *StatusReport    `json:"status,omitempty"`
}

// Count returns the number of records synchronised
func (r *Result) Count() int64 {
	if r == nil {
		return 0
	}
	return int64(len(r.Customers) + len(r.Payments))
}

// StatusReport is produced by the status operation
type StatusReport struct {
	CustomersCount int64              `json:"customersCount"`
	PaymentsCount  int64              `json:"paymentsCount"`
	JobStatistics  *ledger.Statistics `json:"jobStatistics"`
}

type syncExecutor struct {
	client    platform.Client
	store     store.Store
	ledger    ledger.Ledger
	pageLimit int64
}

// Option configures the executor
type Option func(*syncExecutor)

// WithPageLimit sets the number of records fetched per list call
func WithPageLimit(limit int64) Option {
	return func(e *syncExecutor) {
		if limit > 0 {
			e.pageLimit = limit
		}
	}
}

// New creates an Executor. The ledger is only read, by the status operation.
func New(client platform.Client, st store.Store, l ledger.Ledger, opts ...Option) Executor {
	e := &syncExecutor{
		client:    client,
		store:     st,
		ledger:    l,
		pageLimit: platform.DefaultPageLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *syncExecutor) Execute(ctx context.Context, op etl.Operation) (*Result, error) {
	switch op {
	case etl.OperationSyncCustomers:
		customers, err := e.syncCustomers(ctx, op)
		if err != nil {
			return nil, err
		}
		return &Result{Customers: customers}, nil

	case etl.OperationSyncPayments:
		payments, err := e.syncPayments(ctx, op)
		if err != nil {
			return nil, err
		}
		return &Result{Payments: payments}, nil

	case etl.OperationSyncAll:
		customers, err := e.syncCustomers(ctx, op)
		if err != nil {
			return nil, err
		}
		payments, err := e.syncPayments(ctx, op)
		if err != nil {
			return nil, err
		}
		return &Result{Customers: customers, Payments: payments}, nil

	case etl.OperationStatus:
		report, err := e.status(ctx)
		if err != nil {
			return nil, err
		}
		return &Result{Status: report}, nil

	default:
		return nil, &etl.InvalidOperationError{Name: string(op)}
	}
}

func (e *syncExecutor) syncCustomers(ctx context.Context, op etl.Operation) ([]store.Customer, error) {
	customers, err := e.client.ListCustomers(ctx, e.pageLimit)
	if err != nil {
		return nil, &etl.UpstreamSyncError{Operation: op, Err: err}
	}
	if err := e.store.UpsertCustomers(ctx, customers); err != nil {
		return nil, fmt.Errorf("failed to store customers: %w", err)
	}
	slog.Debug("Customers synchronised", "operation", op, "count", len(customers))
	return customers, nil
}

func (e *syncExecutor) syncPayments(ctx context.Context, op etl.Operation) ([]store.Payment, error) {
	payments, err := e.client.ListCharges(ctx, e.pageLimit)
	if err != nil {
		return nil, &etl.UpstreamSyncError{Operation: op, Err: err}
	}
	if err := e.store.UpsertPayments(ctx, payments); err != nil {
		return nil, fmt.Errorf("failed to store payments: %w", err)
	}
	slog.Debug("Payments synchronised", "operation", op, "count", len(payments))
	return payments, nil
}

func (e *syncExecutor) status(ctx context.Context) (*StatusReport, error) {
	customers, err := e.store.CountCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	payments, err := e.store.CountPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}
	stats, err := e.ledger.Statistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read job statistics: %w", err)
	}
	return &StatusReport{
		CustomersCount: customers,
		PaymentsCount:  payments,
		JobStatistics:  stats,
	}, nil
}
