// Package stripeapi provides the /stripe endpoints for stored platform records
// and manual per-operation syncs.
package stripeapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zlovtnik/stripe-lunar/internal/api/common"
	"github.com/zlovtnik/stripe-lunar/internal/etl"
	"github.com/zlovtnik/stripe-lunar/internal/executor"
	"github.com/zlovtnik/stripe-lunar/internal/metrics"
	"github.com/zlovtnik/stripe-lunar/internal/orchestrator"
	"github.com/zlovtnik/stripe-lunar/internal/store"
)

// SyncAllResponse is the body of GET /stripe/sync/all
type SyncAllResponse struct {
	Customers      []store.Customer `json:"customers"`
	Payments       []store.Payment  `json:"payments"`
	CustomersCount int              `json:"customersCount"`
	PaymentsCount  int              `json:"paymentsCount"`
}

// Routes serves the platform record endpoints
type Routes struct {
	runner  orchestrator.Runner
	store   store.Store
	metrics metrics.Snapshotter
}

// Router creates the /stripe router
func Router(runner orchestrator.Runner, st store.Store, snapshotter metrics.Snapshotter) http.Handler {
	routes := &Routes{
		runner:  runner,
		store:   st,
		metrics: snapshotter,
	}

	r := chi.NewRouter()
	r.Get("/customers", routes.listCustomers)
	r.Get("/customers/sync", routes.syncCustomers)
	r.Get("/customers/{id}", routes.getCustomer)
	r.Get("/customers/{customerId}/payments", routes.listCustomerPayments)
	r.Get("/payments", routes.listPayments)
	r.Get("/payments/sync", routes.syncPayments)
	r.Get("/payments/{id}", routes.getPayment)
	r.Get("/sync/all", routes.syncAll)
	r.Get("/status", routes.status)
	r.Get("/metrics", routes.metricsSnapshot)
	return r
}

func (rr *Routes) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := rr.store.ListCustomers(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSONResponse(w, customers, http.StatusOK)
}

func (rr *Routes) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := common.StripeIDParam(r, "id")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	customer, err := rr.store.GetCustomer(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSONResponse(w, customer, http.StatusOK)
}

func (rr *Routes) listCustomerPayments(w http.ResponseWriter, r *http.Request) {
	customerID, err := common.StripeIDParam(r, "customerId")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	payments, err := rr.store.ListPaymentsByCustomer(r.Context(), customerID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSONResponse(w, payments, http.StatusOK)
}

func (rr *Routes) listPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := rr.store.ListPayments(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSONResponse(w, payments, http.StatusOK)
}

func (rr *Routes) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := common.StripeIDParam(r, "id")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	payment, err := rr.store.GetPayment(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSONResponse(w, payment, http.StatusOK)
}

func (rr *Routes) syncCustomers(w http.ResponseWriter, r *http.Request) {
	result, ok := rr.run(w, r, etl.OperationSyncCustomers)
	if !ok {
		return
	}
	common.WriteJSONResponse(w, nonNil(result.Customers), http.StatusOK)
}

func (rr *Routes) syncPayments(w http.ResponseWriter, r *http.Request) {
	result, ok := rr.run(w, r, etl.OperationSyncPayments)
	if !ok {
		return
	}
	common.WriteJSONResponse(w, nonNil(result.Payments), http.StatusOK)
}

func (rr *Routes) syncAll(w http.ResponseWriter, r *http.Request) {
	result, ok := rr.run(w, r, etl.OperationSyncAll)
	if !ok {
		return
	}
	common.WriteJSONResponse(w, SyncAllResponse{
		Customers:      nonNil(result.Customers),
		Payments:       nonNil(result.Payments),
		CustomersCount: len(result.Customers),
		PaymentsCount:  len(result.Payments),
	}, http.StatusOK)
}

func (rr *Routes) status(w http.ResponseWriter, r *http.Request) {
	result, ok := rr.run(w, r, etl.OperationStatus)
	if !ok {
		return
	}
	common.WriteJSONResponse(w, result.Status, http.StatusOK)
}

func (rr *Routes) metricsSnapshot(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, rr.metrics.Snapshot(), http.StatusOK)
}

// run executes op once and writes the error response on failure
func (rr *Routes) run(w http.ResponseWriter, r *http.Request, op etl.Operation) (*executor.Result, bool) {
	exec, err := rr.runner.Run(r.Context(), op.String())
	if err != nil {
		common.WriteError(w, err)
		return nil, false
	}
	if exec.Result == nil {
		return &executor.Result{}, true
	}
	return exec.Result, true
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
