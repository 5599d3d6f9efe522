package stripeapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/zlovtnik/stripe-lunar/internal/etl"
	"github.com/zlovtnik/stripe-lunar/internal/executor"
	"github.com/zlovtnik/stripe-lunar/internal/ledger"
	"github.com/zlovtnik/stripe-lunar/internal/metrics"
	"github.com/zlovtnik/stripe-lunar/internal/orchestrator"
	orchmocks "github.com/zlovtnik/stripe-lunar/internal/orchestrator/mocks"
	"github.com/zlovtnik/stripe-lunar/internal/store"
)

var created = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func seededStore(t *testing.T) store.Store {
	t.Helper()

	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.UpsertCustomers(ctx, []store.Customer{
		{ID: "cus_1", Email: "a@example.com", Name: "Ada", CreatedDate: created, UpdatedDate: created},
		{ID: "cus_2", Email: "b@example.com", Name: "Bob", CreatedDate: created, UpdatedDate: created},
	}))
	require.NoError(t, st.UpsertPayments(ctx, []store.Payment{
		{ID: "ch_1", CustomerID: "cus_1", Amount: decimal.RequireFromString("10.50"), Currency: "usd", Status: "succeeded"},
		{ID: "ch_2", CustomerID: "cus_2", Amount: decimal.RequireFromString("3.00"), Currency: "usd", Status: "failed"},
		{ID: "ch_3", CustomerID: "cus_1", Amount: decimal.RequireFromString("1.25"), Currency: "eur", Status: "succeeded"},
	}))
	return st
}

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestReadEndpoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedIDs    []string
		expectedError  string
	}{
		{name: "list customers", path: "/customers", expectedStatus: http.StatusOK, expectedIDs: []string{"cus_1", "cus_2"}},
		{name: "get customer", path: "/customers/cus_2", expectedStatus: http.StatusOK, expectedIDs: []string{"cus_2"}},
		{name: "unknown customer", path: "/customers/cus_404", expectedStatus: http.StatusNotFound, expectedError: "customer cus_404: not found"},
		{name: "whitespace id", path: "/customers/cus%201", expectedStatus: http.StatusBadRequest, expectedError: "id cannot contain whitespace"},
		{name: "customer payments", path: "/customers/cus_1/payments", expectedStatus: http.StatusOK, expectedIDs: []string{"ch_1", "ch_3"}},
		{name: "customer without payments", path: "/customers/cus_9/payments", expectedStatus: http.StatusOK, expectedIDs: []string{}},
		{name: "list payments", path: "/payments", expectedStatus: http.StatusOK, expectedIDs: []string{"ch_1", "ch_2", "ch_3"}},
		{name: "get payment", path: "/payments/ch_2", expectedStatus: http.StatusOK, expectedIDs: []string{"ch_2"}},
		{name: "unknown payment", path: "/payments/ch_404", expectedStatus: http.StatusNotFound, expectedError: "payment ch_404: not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			router := Router(orchmocks.NewMockRunner(ctrl), seededStore(t), metrics.NewAggregator())

			rr := serve(t, router, tt.path)
			require.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())

			if tt.expectedError != "" {
				assert.JSONEq(t, `{"error":"`+tt.expectedError+`"}`, rr.Body.String())
				return
			}

			var body json.RawMessage = rr.Body.Bytes()
			var items []struct {
				ID string `json:"id"`
			}
			if len(tt.expectedIDs) == 1 && body[0] == '{' {
				var item struct {
					ID string `json:"id"`
				}
				require.NoError(t, json.Unmarshal(body, &item))
				assert.Equal(t, tt.expectedIDs[0], item.ID)
				return
			}
			require.NoError(t, json.Unmarshal(body, &items))
			ids := make([]string, 0, len(items))
			for _, it := range items {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tt.expectedIDs, ids)
		})
	}
}

func TestPaymentAmountIsDecimal(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	rr := serve(t, Router(orchmocks.NewMockRunner(ctrl), seededStore(t), metrics.NewAggregator()), "/payments/ch_1")
	require.Equal(t, http.StatusOK, rr.Code)

	var payment store.Payment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payment))
	assert.True(t, decimal.RequireFromString("10.5").Equal(payment.Amount))
	assert.Equal(t, "cus_1", payment.CustomerID)
}

func TestSyncEndpoints(t *testing.T) {
	t.Parallel()

	customers := []store.Customer{{ID: "cus_1"}, {ID: "cus_2"}}
	payments := []store.Payment{{ID: "ch_1", Amount: decimal.NewFromInt(1)}}

	tests := []struct {
		name         string
		path         string
		op           string
		result       *executor.Result
		expectedBody string
	}{
		{
			name:         "sync customers",
			path:         "/customers/sync",
			op:           "syncCustomers",
			result:       &executor.Result{Customers: customers},
			expectedBody: `[{"id":"cus_1"},{"id":"cus_2"}]`,
		},
		{
			name:         "sync payments with nothing new",
			path:         "/payments/sync",
			op:           "syncPayments",
			result:       &executor.Result{},
			expectedBody: `[]`,
		},
		{
			name:         "sync all",
			path:         "/sync/all",
			op:           "syncAll",
			result:       &executor.Result{Customers: customers, Payments: payments},
			expectedBody: `{"customersCount":2,"paymentsCount":1}`,
		},
		{
			name: "status",
			path: "/status",
			op:   "status",
			result: &executor.Result{Status: &executor.StatusReport{
				CustomersCount: 2,
				PaymentsCount:  1,
				JobStatistics:  &ledger.Statistics{TotalJobs: 5, CompletedJobs: 4, FailedJobs: 1},
			}},
			expectedBody: `{"customersCount":2,"paymentsCount":1,"jobStatistics":{"totalJobs":5,"completedJobs":4,"failedJobs":1}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			runner := orchmocks.NewMockRunner(ctrl)
			runner.EXPECT().Run(gomock.Any(), tt.op).Return(&orchestrator.Execution{
				Job:    &ledger.Record{ID: 1, Status: ledger.StatusCompleted},
				Result: tt.result,
			}, nil)

			rr := serve(t, Router(runner, store.NewMemoryStore(), metrics.NewAggregator()), tt.path)
			require.Equal(t, http.StatusOK, rr.Code)
			assertSubset(t, tt.expectedBody, rr.Body.Bytes())
		})
	}
}

func TestSyncEndpoints_UpstreamFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	runner := orchmocks.NewMockRunner(ctrl)
	runner.EXPECT().Run(gomock.Any(), "syncCustomers").Return(
		&orchestrator.Execution{Job: &ledger.Record{ID: 1, Status: ledger.StatusFailed}},
		&etl.UpstreamSyncError{Operation: etl.OperationSyncCustomers, Err: errors.New("invalid api key")})

	rr := serve(t, Router(runner, store.NewMemoryStore(), metrics.NewAggregator()), "/customers/sync")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.JSONEq(t, `{"error":"Error communicating with Stripe API: invalid api key"}`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	agg := metrics.NewAggregator()
	agg.Record("syncAll")

	rr := serve(t, Router(orchmocks.NewMockRunner(ctrl), store.NewMemoryStore(), agg), "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)

	var snapshot map[string]metrics.OperationMetric
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snapshot))
	assert.Equal(t, int64(1), snapshot["syncAll"].ExecutionCount)
}

// assertSubset checks that every field in expected appears in actual with the same value
func assertSubset(t *testing.T, expected string, actual []byte) {
	t.Helper()

	var want, got any
	require.NoError(t, json.Unmarshal([]byte(expected), &want))
	require.NoError(t, json.Unmarshal(actual, &got))
	assertContains(t, want, got, "$")
}

func assertContains(t *testing.T, want, got any, path string) {
	t.Helper()

	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		require.True(t, ok, "%s: expected object, got %T", path, got)
		for k, v := range w {
			require.Contains(t, g, k, "%s: missing key", path)
			assertContains(t, v, g[k], path+"."+k)
		}
	case []any:
		g, ok := got.([]any)
		require.True(t, ok, "%s: expected array, got %T", path, got)
		require.Len(t, g, len(w), path)
		for i := range w {
			assertContains(t, w[i], g[i], path)
		}
	default:
		assert.Equal(t, want, got, path)
	}
}
