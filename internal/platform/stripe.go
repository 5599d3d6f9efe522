package platform

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.opentelemetry.io/otel/trace"

	"github.com/zlovtnik/stripe-lunar/internal/otel"
	"github.com/zlovtnik/stripe-lunar/internal/store"
)

// TracerName is the name used for the Stripe client tracer
const TracerName = "github.com/zlovtnik/stripe-lunar/platform"

var minorUnits = decimal.NewFromInt(100)

type stripeClient struct {
	api    *client.API
	tracer trace.Tracer
}

type stripeOptions struct {
	backendURL string
	timeout    time.Duration
	tracer     trace.Tracer
}

// StripeOption configures the Stripe client
type StripeOption func(*stripeOptions)

// WithBackendURL points the client at a different API host, such as stripe-mock
func WithBackendURL(url string) StripeOption {
	return func(o *stripeOptions) {
		o.backendURL = url
	}
}

// WithRequestTimeout bounds each HTTP request to the API
func WithRequestTimeout(timeout time.Duration) StripeOption {
	return func(o *stripeOptions) {
		o.timeout = timeout
	}
}

// WithTracer sets the OpenTelemetry tracer for API calls
func WithTracer(tracer trace.Tracer) StripeOption {
	return func(o *stripeOptions) {
		o.tracer = tracer
	}
}

// NewStripeClient creates a Client backed by stripe-go.
// The SDK's own network retries are disabled; retry policy belongs to the orchestrator.
func NewStripeClient(apiKey string, opts ...StripeOption) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("stripe API key is required")
	}

	o := &stripeOptions{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(o)
	}

	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: o.timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if o.backendURL != "" {
		cfg.URL = stripe.String(o.backendURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)

	api := client.New(apiKey, &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})
	return &stripeClient{api: api, tracer: o.tracer}, nil
}

func (s *stripeClient) ListCustomers(ctx context.Context, limit int64) ([]store.Customer, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "platform.ListCustomers")
	defer span.End()

	params := &stripe.CustomerListParams{
		ListParams: stripe.ListParams{
			Context: ctx,
			Limit:   stripe.Int64(pageLimit(limit)),
			Single:  true,
		},
	}

	customers := make([]store.Customer, 0)
	it := s.api.Customers.List(params)
	for it.Next() {
		customers = append(customers, MapCustomer(it.Customer()))
	}
	if err := it.Err(); err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(customers)))
	return customers, nil
}

func (s *stripeClient) ListCharges(ctx context.Context, limit int64) ([]store.Payment, error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "platform.ListCharges")
	defer span.End()

	params := &stripe.ChargeListParams{
		ListParams: stripe.ListParams{
			Context: ctx,
			Limit:   stripe.Int64(pageLimit(limit)),
			Single:  true,
		},
	}

	payments := make([]store.Payment, 0)
	it := s.api.Charges.List(params)
	for it.Next() {
		payments = append(payments, MapCharge(it.Charge()))
	}
	if err := it.Err(); err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to list charges: %w", err)
	}
	span.SetAttributes(otel.AttrResultCount.Int(len(payments)))
	return payments, nil
}

func pageLimit(limit int64) int64 {
	if limit <= 0 {
		return DefaultPageLimit
	}
	return limit
}

// MapCustomer converts a Stripe customer. The platform exposes no update
// timestamp, so UpdatedDate is the time of the sync.
func MapCustomer(c *stripe.Customer) store.Customer {
	return store.Customer{
		ID:          c.ID,
		Email:       c.Email,
		Name:        c.Name,
		Description: c.Description,
		CreatedDate: time.Unix(c.Created, 0).UTC(),
		UpdatedDate: time.Now().UTC(),
		Metadata:    c.Metadata,
		Deleted:     c.Deleted,
	}
}

// MapCharge converts a Stripe charge, moving the amount from minor to major units.
func MapCharge(c *stripe.Charge) store.Payment {
	p := store.Payment{
		ID:          c.ID,
		Amount:      decimal.NewFromInt(c.Amount).Div(minorUnits),
		Currency:    string(c.Currency),
		Status:      string(c.Status),
		Description: c.Description,
		CreatedDate: time.Unix(c.Created, 0).UTC(),
		UpdatedDate: time.Now().UTC(),
		Metadata:    c.Metadata,
	}
	if c.Customer != nil {
		p.CustomerID = c.Customer.ID
	}
	return p
}
