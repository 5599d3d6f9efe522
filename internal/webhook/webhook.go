// Package webhook verifies inbound payment platform events and maps them to ETL operations.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/zlovtnik/stripe-lunar/internal/etl"
)

const (
	// SignatureHeader carries the event signature
	SignatureHeader = "Stripe-Signature"

	// DefaultTolerance is the maximum age of a signed timestamp
	DefaultTolerance = 300 * time.Second
)

var (
	// ErrInvalidSignature is returned when the signature header does not match the payload
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrDeserialize is returned for a correctly signed payload that is not a usable event
	ErrDeserialize = errors.New("failed to deserialize webhook event object")
)

// Verifier checks event signatures against the endpoint's signing secret
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// Option configures a Verifier
type Option func(*Verifier)

// WithTolerance overrides the accepted timestamp age
func WithTolerance(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.tolerance = d
		}
	}
}

// NewVerifier creates a Verifier. An empty secret rejects every event.
func NewVerifier(secret string, opts ...Option) *Verifier {
	v := &Verifier{
		secret:    secret,
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify authenticates payload and decodes it. The returned error wraps
// ErrInvalidSignature or ErrDeserialize.
func (v *Verifier) Verify(payload []byte, header string) (*stripe.Event, error) {
	if v.secret == "" {
		return nil, fmt.Errorf("%w: no signing secret configured", ErrInvalidSignature)
	}
	if err := webhook.ValidatePayloadWithTolerance(payload, header, v.secret, v.tolerance); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeserialize, err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrDeserialize)
	}
	if event.Data == nil || event.Data.Object == nil {
		return nil, fmt.Errorf("%w: missing data object", ErrDeserialize)
	}
	return &event, nil
}

// OperationForEvent maps an event type to the sync it triggers.
// The boolean is false for event types that trigger nothing.
func OperationForEvent(eventType string) (etl.Operation, bool) {
	switch eventType {
	case "customer.created", "customer.updated", "customer.deleted":
		return etl.OperationSyncCustomers, true
	case "charge.succeeded", "charge.failed", "charge.refunded":
		return etl.OperationSyncPayments, true
	default:
		return "", false
	}
}
