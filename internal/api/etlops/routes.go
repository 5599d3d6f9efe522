// Package etlops provides the /api/etl endpoints for manual syncs and runtime status.
package etlops

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zlovtnik/stripe-lunar/internal/api/common"
	"github.com/zlovtnik/stripe-lunar/internal/etl"
	"github.com/zlovtnik/stripe-lunar/internal/metrics"
	"github.com/zlovtnik/stripe-lunar/internal/orchestrator"
)

const (
	timeLayout = "2006-01-02 15:04:05"
	never      = "Never"
)

// Counter reports how many customers and payments are stored
type Counter interface {
	CountCustomers(ctx context.Context) (int64, error)
	CountPayments(ctx context.Context) (int64, error)
}

// SyncAllResponse is the body of GET /api/etl/sync/all
type SyncAllResponse struct {
	JobID          int64  `json:"jobId"`
	CustomersCount int    `json:"customersCount"`
	PaymentsCount  int    `json:"paymentsCount"`
	Status         string `json:"status"`
}

// StatusResponse is the body of GET /api/etl/status
type StatusResponse struct {
	CustomersCount    int64                              `json:"customersCount"`
	PaymentsCount     int64                              `json:"paymentsCount"`
	Metrics           map[string]metrics.OperationMetric `json:"metrics"`
	LastSyncTimes     LastSyncTimes                      `json:"lastSyncTimes"`
	ApplicationStatus string                             `json:"applicationStatus"`
}

// LastSyncTimes holds the last invocation time of each sync, or "Never"
type LastSyncTimes struct {
	Customers string `json:"customers"`
	Payments  string `json:"payments"`
	FullSync  string `json:"fullSync"`
}

// MetricsResponse is the body of GET /api/etl/metrics
type MetricsResponse struct {
	Metrics   map[string]metrics.OperationMetric `json:"metrics"`
	Timestamp string                             `json:"timestamp"`
}

// Routes serves the ETL endpoints
type Routes struct {
	runner  orchestrator.Runner
	counter Counter
	metrics metrics.Snapshotter
	now     func() time.Time
}

// Router creates the ETL router
func Router(runner orchestrator.Runner, counter Counter, snapshotter metrics.Snapshotter) http.Handler {
	routes := &Routes{
		runner:  runner,
		counter: counter,
		metrics: snapshotter,
		now:     time.Now,
	}

	r := chi.NewRouter()
	r.Get("/sync/all", routes.syncAll)
	r.Get("/status", routes.status)
	r.Get("/metrics", routes.metricsSnapshot)
	return r
}

// syncAll handles GET /api/etl/sync/all
func (rr *Routes) syncAll(w http.ResponseWriter, r *http.Request) {
	slog.Info("Manual sync of all data initiated")

	exec, err := rr.runner.Run(r.Context(), etl.OperationSyncAll.String())
	if err != nil {
		common.WriteError(w, err)
		return
	}

	common.WriteJSONResponse(w, SyncAllResponse{
		JobID:          exec.Job.ID,
		CustomersCount: len(exec.Result.Customers),
		PaymentsCount:  len(exec.Result.Payments),
		Status:         "completed",
	}, http.StatusOK)
}

// status handles GET /api/etl/status
func (rr *Routes) status(w http.ResponseWriter, r *http.Request) {
	customers, err := rr.counter.CountCustomers(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	payments, err := rr.counter.CountPayments(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}

	snapshot := rr.metrics.Snapshot()
	common.WriteJSONResponse(w, StatusResponse{
		CustomersCount: customers,
		PaymentsCount:  payments,
		Metrics:        snapshot,
		LastSyncTimes: LastSyncTimes{
			Customers: lastExecution(snapshot, etl.OperationSyncCustomers),
			Payments:  lastExecution(snapshot, etl.OperationSyncPayments),
			FullSync:  lastExecution(snapshot, etl.OperationSyncAll),
		},
		ApplicationStatus: "healthy",
	}, http.StatusOK)
}

// metricsSnapshot handles GET /api/etl/metrics
func (rr *Routes) metricsSnapshot(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, MetricsResponse{
		Metrics:   rr.metrics.Snapshot(),
		Timestamp: rr.now().Format(timeLayout),
	}, http.StatusOK)
}

func lastExecution(snapshot map[string]metrics.OperationMetric, op etl.Operation) string {
	m, ok := snapshot[op.String()]
	if !ok || m.LastExecutionTime.IsZero() {
		return never
	}
	return m.LastExecutionTime.Format(timeLayout)
}
