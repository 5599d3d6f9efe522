// Package store persists the customers and payments pulled from the payment
// platform. Writes are idempotent upserts keyed by the platform id.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a customer or payment id is unknown
var ErrNotFound = errors.New("not found")

// Customer is a platform customer as stored locally
type Customer struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	CreatedDate time.Time         `json:"createdDate"`
	UpdatedDate time.Time         `json:"updatedDate"`
	Metadata    map[string]string `json:"metadata"`
	Deleted     bool              `json:"deleted"`
}

// Payment is a platform charge as stored locally. Amount is in major units.
type Payment struct {
	ID          string            `json:"id"`
	CustomerID  string            `json:"customerId"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Status      string            `json:"status"`
	Description string            `json:"description"`
	CreatedDate time.Time         `json:"createdDate"`
	UpdatedDate time.Time         `json:"updatedDate"`
	Metadata    map[string]string `json:"metadata"`
}

// Store is the relational store for synchronised platform records.
//
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store
type Store interface {
	// UpsertCustomers inserts or replaces customers by id.
	UpsertCustomers(ctx context.Context, customers []Customer) error
	// UpsertPayments inserts or replaces payments by id.
	UpsertPayments(ctx context.Context, payments []Payment) error
	// CountCustomers returns the number of stored customers.
	CountCustomers(ctx context.Context) (int64, error)
	// CountPayments returns the number of stored payments.
	CountPayments(ctx context.Context) (int64, error)
	// ListCustomers returns every stored customer ordered by id.
	ListCustomers(ctx context.Context) ([]Customer, error)
	// GetCustomer returns a customer or ErrNotFound.
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	// ListPayments returns every stored payment ordered by id.
	ListPayments(ctx context.Context) ([]Payment, error)
	// GetPayment returns a payment or ErrNotFound.
	GetPayment(ctx context.Context, id string) (*Payment, error)
	// ListPaymentsByCustomer returns the payments of one customer ordered by id.
	ListPaymentsByCustomer(ctx context.Context, customerID string) ([]Payment, error)
}
