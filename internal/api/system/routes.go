// Package system provides the health and version endpoints.
package system

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zlovtnik/stripe-lunar/internal/api/common"
	"github.com/zlovtnik/stripe-lunar/internal/metrics"
	"github.com/zlovtnik/stripe-lunar/internal/versions"
)

const (
	statusUp   = "UP"
	statusDown = "DOWN"
)

// Counter reports how many customers and payments are stored
type Counter interface {
	CountCustomers(ctx context.Context) (int64, error)
	CountPayments(ctx context.Context) (int64, error)
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Application ApplicationHealth `json:"application"`
	Database    DatabaseHealth    `json:"database"`
	ETL         ETLHealth         `json:"etl"`
}

// ApplicationHealth reports process uptime
type ApplicationHealth struct {
	StartTime time.Time `json:"startTime"`
	Uptime    int64     `json:"uptime"`
}

// DatabaseHealth reports whether the store answers count queries
type DatabaseHealth struct {
	Status        string `json:"status"`
	CustomerCount *int64 `json:"customerCount,omitempty"`
	PaymentCount  *int64 `json:"paymentCount,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ETLHealth reports the execution counters
type ETLHealth struct {
	Status          string                             `json:"status"`
	OperationsCount int                                `json:"operationsCount"`
	Details         map[string]metrics.OperationMetric `json:"details"`
}

// Routes serves the system endpoints
type Routes struct {
	counter   Counter
	metrics   metrics.Snapshotter
	startTime time.Time
	now       func() time.Time
}

// Router creates the system router. startTime is reported as the process start.
func Router(counter Counter, snapshotter metrics.Snapshotter, startTime time.Time) http.Handler {
	routes := &Routes{
		counter:   counter,
		metrics:   snapshotter,
		startTime: startTime,
		now:       time.Now,
	}

	r := chi.NewRouter()
	r.Get("/health", routes.health)
	r.Get("/version", versionHandler)
	return r
}

// health handles GET /health. Subsystem failures are reported as DOWN
// without failing the response.
func (rr *Routes) health(w http.ResponseWriter, r *http.Request) {
	now := rr.now()
	resp := HealthResponse{
		Status:    statusUp,
		Timestamp: now,
		Application: ApplicationHealth{
			StartTime: rr.startTime,
			Uptime:    int64(now.Sub(rr.startTime) / time.Second),
		},
		Database: rr.databaseHealth(r.Context()),
	}

	snapshot := rr.metrics.Snapshot()
	resp.ETL = ETLHealth{
		Status:          statusUp,
		OperationsCount: len(snapshot),
		Details:         snapshot,
	}

	common.WriteJSONResponse(w, resp, http.StatusOK)
}

func (rr *Routes) databaseHealth(ctx context.Context) DatabaseHealth {
	customers, err := rr.counter.CountCustomers(ctx)
	if err != nil {
		return DatabaseHealth{Status: statusDown, Error: err.Error()}
	}
	payments, err := rr.counter.CountPayments(ctx)
	if err != nil {
		return DatabaseHealth{Status: statusDown, Error: err.Error()}
	}
	return DatabaseHealth{
		Status:        statusUp,
		CustomerCount: &customers,
		PaymentCount:  &payments,
	}
}

// versionHandler handles GET /version
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
