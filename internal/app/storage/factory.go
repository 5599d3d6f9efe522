// Package storage provides factory functions for creating storage-dependent components.
// It implements the Abstract Factory pattern to ensure related components (customer
// and payment store, job ledger) are created with compatible storage backends.
package storage

import (
	"context"
	"fmt"

	"github.com/zlovtnik/stripe-lunar/internal/config"
	"github.com/zlovtnik/stripe-lunar/internal/ledger"
	"github.com/zlovtnik/stripe-lunar/internal/store"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=factory.go Factory

// Factory creates storage-dependent components as a family.
// Implementations ensure all components are compatible with each other
// (e.g., all use database or all use process memory).
//
// It also manages the lifecycle of storage resources (e.g., database connections).
type Factory interface {
	// CreateStore creates the customer and payment store.
	CreateStore(ctx context.Context) (store.Store, error)

	// CreateLedger creates the job history ledger.
	CreateLedger(ctx context.Context) (ledger.Ledger, error)

	// Cleanup releases any resources held by this factory.
	// For database factories, this closes the connection pool.
	// For memory factories, this is a no-op.
	// Should be called when the application shuts down.
	Cleanup()
}

// NewStorageFactory creates a storage factory based on the configured storage type.
func NewStorageFactory(ctx context.Context, cfg *config.Config, opts ...DatabaseFactoryOption) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	switch cfg.Storage.Type {
	case config.StorageTypeDatabase:
		return NewDatabaseFactory(ctx, cfg, opts...)
	case config.StorageTypeMemory:
		return NewMemoryFactory(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}
