package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/zlovtnik/stripe-lunar/internal/ledger"
	"github.com/zlovtnik/stripe-lunar/internal/store"
)

// MemoryFactory creates process-local storage components.
// Data is lost when the process exits.
type MemoryFactory struct {
	storeOnce  sync.Once
	ledgerOnce sync.Once
	store      store.Store
	ledger     ledger.Ledger
}

var _ Factory = (*MemoryFactory)(nil)

// NewMemoryFactory creates a new memory-backed storage factory
func NewMemoryFactory() *MemoryFactory {
	slog.Info("Creating in-memory storage factory")
	return &MemoryFactory{}
}

// CreateStore returns the shared in-memory store. Every call returns the same instance.
func (m *MemoryFactory) CreateStore(_ context.Context) (store.Store, error) {
	m.storeOnce.Do(func() {
		slog.Debug("Creating in-memory store")
		m.store = store.NewMemoryStore()
	})
	return m.store, nil
}

// CreateLedger returns the shared in-memory ledger. Every call returns the same instance.
func (m *MemoryFactory) CreateLedger(_ context.Context) (ledger.Ledger, error) {
	m.ledgerOnce.Do(func() {
		slog.Debug("Creating in-memory ledger")
		m.ledger = ledger.NewMemoryLedger()
	})
	return m.ledger, nil
}

// Cleanup is a no-op for memory storage
func (*MemoryFactory) Cleanup() {}
