package store

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

type memoryStore struct {
	mu        sync.RWMutex
	customers map[string]Customer
	payments  map[string]Payment
}

// NewMemoryStore creates a process-local store
func NewMemoryStore() Store {
	return &memoryStore{
		customers: make(map[string]Customer),
		payments:  make(map[string]Payment),
	}
}

func (m *memoryStore) UpsertCustomers(_ context.Context, customers []Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range customers {
		c.Metadata = maps.Clone(c.Metadata)
		m.customers[c.ID] = c
	}
	return nil
}

func (m *memoryStore) UpsertPayments(_ context.Context, payments []Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range payments {
		p.Metadata = maps.Clone(p.Metadata)
		m.payments[p.ID] = p
	}
	return nil
}

func (m *memoryStore) CountCustomers(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.customers)), nil
}

func (m *memoryStore) CountPayments(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.payments)), nil
}

func (m *memoryStore) ListCustomers(_ context.Context) ([]Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Customer, 0, len(m.customers))
	for _, c := range m.customers {
		result = append(result, c)
	}
	slices.SortFunc(result, func(a, b Customer) int { return cmp.Compare(a.ID, b.ID) })
	return result, nil
}

func (m *memoryStore) GetCustomer(_ context.Context, id string) (*Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	return &c, nil
}

func (m *memoryStore) ListPayments(_ context.Context) ([]Payment, error) {
	return m.filterPayments(func(Payment) bool { return true }), nil
}

func (m *memoryStore) GetPayment(_ context.Context, id string) (*Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (m *memoryStore) ListPaymentsByCustomer(_ context.Context, customerID string) ([]Payment, error) {
	return m.filterPayments(func(p Payment) bool { return p.CustomerID == customerID }), nil
}

func (m *memoryStore) filterPayments(match func(Payment) bool) []Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Payment, 0)
	for _, p := range m.payments {
		if match(p) {
			result = append(result, p)
		}
	}
	slices.SortFunc(result, func(a, b Payment) int { return cmp.Compare(a.ID, b.ID) })
	return result
}
