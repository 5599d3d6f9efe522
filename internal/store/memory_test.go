package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

func testCustomers() []Customer {
	return []Customer{
		{ID: "cus_b", Email: "b@example.com", Name: "Bea", CreatedDate: created, UpdatedDate: created,
			Metadata: map[string]string{"tier": "gold"}},
		{ID: "cus_a", Email: "a@example.com", Name: "Ada", CreatedDate: created, UpdatedDate: created},
	}
}

func testPayments() []Payment {
	return []Payment{
		{ID: "ch_2", CustomerID: "cus_a", Amount: decimal.RequireFromString("12.50"), Currency: "usd",
			Status: "succeeded", CreatedDate: created, UpdatedDate: created},
		{ID: "ch_1", CustomerID: "cus_b", Amount: decimal.RequireFromString("3.00"), Currency: "eur",
			Status: "failed", CreatedDate: created, UpdatedDate: created},
		{ID: "ch_3", CustomerID: "cus_a", Amount: decimal.RequireFromString("0.99"), Currency: "usd",
			Status: "succeeded", CreatedDate: created, UpdatedDate: created},
	}
}

func TestMemoryStore_UpsertIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.UpsertCustomers(ctx, testCustomers()))
	require.NoError(t, s.UpsertCustomers(ctx, testCustomers()))
	require.NoError(t, s.UpsertPayments(ctx, testPayments()))
	require.NoError(t, s.UpsertPayments(ctx, testPayments()))

	customers, err := s.CountCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), customers)

	payments, err := s.CountPayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), payments)
}

func TestMemoryStore_UpsertReplaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.UpsertCustomers(ctx, testCustomers()))

	updated := Customer{ID: "cus_a", Email: "ada@example.com", Name: "Ada", Deleted: true}
	require.NoError(t, s.UpsertCustomers(ctx, []Customer{updated}))

	got, err := s.GetCustomer(ctx, "cus_a")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.True(t, got.Deleted)
}

func TestMemoryStore_MetadataIsCopied(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	customers := testCustomers()
	require.NoError(t, s.UpsertCustomers(ctx, customers))

	customers[0].Metadata["tier"] = "silver"

	got, err := s.GetCustomer(ctx, "cus_b")
	require.NoError(t, err)
	assert.Equal(t, "gold", got.Metadata["tier"])
}

func TestMemoryStore_Lists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.UpsertCustomers(ctx, testCustomers()))
	require.NoError(t, s.UpsertPayments(ctx, testPayments()))

	customers, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, "cus_a", customers[0].ID)
	assert.Equal(t, "cus_b", customers[1].ID)

	payments, err := s.ListPayments(ctx)
	require.NoError(t, err)
	require.Len(t, payments, 3)
	assert.Equal(t, []string{"ch_1", "ch_2", "ch_3"}, []string{payments[0].ID, payments[1].ID, payments[2].ID})

	byCustomer, err := s.ListPaymentsByCustomer(ctx, "cus_a")
	require.NoError(t, err)
	require.Len(t, byCustomer, 2)
	assert.Equal(t, "ch_2", byCustomer[0].ID)
	assert.Equal(t, "ch_3", byCustomer[1].ID)

	none, err := s.ListPaymentsByCustomer(ctx, "cus_missing")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryStore_NotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetCustomer(ctx, "cus_missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetPayment(ctx, "ch_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_EmptyListsAreNotNil(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()

	customers, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	assert.NotNil(t, customers)

	payments, err := s.ListPayments(ctx)
	require.NoError(t, err)
	assert.NotNil(t, payments)
}
