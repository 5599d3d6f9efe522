package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/zlovtnik/stripe-lunar/internal/etl"
	"github.com/zlovtnik/stripe-lunar/internal/ledger"
	platformmocks "github.com/zlovtnik/stripe-lunar/internal/platform/mocks"
	"github.com/zlovtnik/stripe-lunar/internal/store"
	storemocks "github.com/zlovtnik/stripe-lunar/internal/store/mocks"
)

var (
	twoCustomers = []store.Customer{
		{ID: "cus_1", Email: "a@example.com"},
		{ID: "cus_2", Email: "b@example.com"},
	}
	onePayment = []store.Payment{
		{ID: "ch_1", CustomerID: "cus_1", Amount: decimal.RequireFromString("19.99"), Currency: "usd"},
	}
)

func TestExecute_SyncOperations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		op            etl.Operation
		setup         func(c *platformmocks.MockClient)
		wantCount     int64
		wantCustomers int64
		wantPayments  int64
	}{
		{
			name: "sync customers",
			op:   etl.OperationSyncCustomers,
			setup: func(c *platformmocks.MockClient) {
				c.EXPECT().ListCustomers(gomock.Any(), int64(25)).Return(twoCustomers, nil)
			},
			wantCount:     2,
			wantCustomers: 2,
		},
		{
			name: "sync payments",
			op:   etl.OperationSyncPayments,
			setup: func(c *platformmocks.MockClient) {
				c.EXPECT().ListCharges(gomock.Any(), int64(25)).Return(onePayment, nil)
			},
			wantCount:    1,
			wantPayments: 1,
		},
		{
			name: "sync all",
			op:   etl.OperationSyncAll,
			setup: func(c *platformmocks.MockClient) {
				gomock.InOrder(
					c.EXPECT().ListCustomers(gomock.Any(), int64(25)).Return(twoCustomers, nil),
					c.EXPECT().ListCharges(gomock.Any(), int64(25)).Return(onePayment, nil),
				)
			},
			wantCount:     3,
			wantCustomers: 2,
			wantPayments:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			client := platformmocks.NewMockClient(ctrl)
			tt.setup(client)

			st := store.NewMemoryStore()
			e := New(client, st, ledger.NewMemoryLedger(), WithPageLimit(25))

			result, err := e.Execute(context.Background(), tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, result.Count())
			assert.Nil(t, result.Status)

			customers, err := st.CountCustomers(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantCustomers, customers)

			payments, err := st.CountPayments(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantPayments, payments)
		})
	}
}

func TestExecute_ResyncIsIdempotent(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := platformmocks.NewMockClient(ctrl)
	client.EXPECT().ListCustomers(gomock.Any(), int64(100)).Return(twoCustomers, nil).Times(2)

	st := store.NewMemoryStore()
	e := New(client, st, ledger.NewMemoryLedger())

	for range 2 {
		result, err := e.Execute(context.Background(), etl.OperationSyncCustomers)
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.Count())
	}

	count, err := st.CountCustomers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestExecute_UpstreamFailure(t *testing.T) {
	t.Parallel()

	upstream := errors.New("connection reset")

	tests := []struct {
		name  string
		op    etl.Operation
		setup func(c *platformmocks.MockClient)
	}{
		{
			name: "customers",
			op:   etl.OperationSyncCustomers,
			setup: func(c *platformmocks.MockClient) {
				c.EXPECT().ListCustomers(gomock.Any(), gomock.Any()).Return(nil, upstream)
			},
		},
		{
			name: "payments",
			op:   etl.OperationSyncPayments,
			setup: func(c *platformmocks.MockClient) {
				c.EXPECT().ListCharges(gomock.Any(), gomock.Any()).Return(nil, upstream)
			},
		},
		{
			name: "sync all fails on payments after customers were stored",
			op:   etl.OperationSyncAll,
			setup: func(c *platformmocks.MockClient) {
				c.EXPECT().ListCustomers(gomock.Any(), gomock.Any()).Return(twoCustomers, nil)
				c.EXPECT().ListCharges(gomock.Any(), gomock.Any()).Return(nil, upstream)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			client := platformmocks.NewMockClient(ctrl)
			tt.setup(client)

			e := New(client, store.NewMemoryStore(), ledger.NewMemoryLedger())

			result, err := e.Execute(context.Background(), tt.op)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, etl.IsUpstream(err))
			assert.ErrorIs(t, err, upstream)

			var upErr *etl.UpstreamSyncError
			require.ErrorAs(t, err, &upErr)
			assert.Equal(t, tt.op, upErr.Operation)
		})
	}
}

func TestExecute_StoreFailureIsNotUpstream(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := platformmocks.NewMockClient(ctrl)
	st := storemocks.NewMockStore(ctrl)

	storeErr := errors.New("disk full")
	client.EXPECT().ListCustomers(gomock.Any(), gomock.Any()).Return(twoCustomers, nil)
	st.EXPECT().UpsertCustomers(gomock.Any(), twoCustomers).Return(storeErr)

	e := New(client, st, ledger.NewMemoryLedger())

	_, err := e.Execute(context.Background(), etl.OperationSyncCustomers)
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.False(t, etl.IsUpstream(err))
}

func TestExecute_Status(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := platformmocks.NewMockClient(ctrl)

	st := store.NewMemoryStore()
	require.NoError(t, st.UpsertCustomers(ctx, twoCustomers))
	require.NoError(t, st.UpsertPayments(ctx, onePayment))

	l := ledger.NewMemoryLedger()
	id, err := l.Start(ctx, etl.OperationSyncCustomers)
	require.NoError(t, err)
	_, err = l.Complete(ctx, id, 2)
	require.NoError(t, err)

	e := New(client, st, l)

	result, err := e.Execute(ctx, etl.OperationStatus)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Count())
	require.NotNil(t, result.Status)
	assert.Equal(t, int64(2), result.Status.CustomersCount)
	assert.Equal(t, int64(1), result.Status.PaymentsCount)
	require.NotNil(t, result.Status.JobStatistics)
	assert.Equal(t, int64(1), result.Status.JobStatistics.CompletedJobs)
}

func TestExecute_UnknownOperation(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	e := New(platformmocks.NewMockClient(ctrl), store.NewMemoryStore(), ledger.NewMemoryLedger())

	_, err := e.Execute(context.Background(), etl.Operation("refund"))
	assert.True(t, etl.IsInvalidOperation(err))
}

func TestResult_Count(t *testing.T) {
	t.Parallel()

	var nilResult *Result
	assert.Equal(t, int64(0), nilResult.Count())
	assert.Equal(t, int64(3), (&Result{Customers: twoCustomers, Payments: onePayment}).Count())
}
