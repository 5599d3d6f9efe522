// Package platform reads customers and charges from the Stripe API and maps
// them onto the store model.
package platform

import (
	"context"

	"github.com/zlovtnik/stripe-lunar/internal/store"
)

// DefaultPageLimit is the number of records requested per list call
const DefaultPageLimit = 100

// Client lists records from the payment platform. Each call fetches a single page.
//
//go:generate mockgen -destination=mocks/mock_platform.go -package=mocks -source=platform.go Client
type Client interface {
	// ListCustomers returns up to limit customers.
	ListCustomers(ctx context.Context, limit int64) ([]store.Customer, error)
	// ListCharges returns up to limit charges as payments.
	ListCharges(ctx context.Context, limit int64) ([]store.Payment, error)
}
