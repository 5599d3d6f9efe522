package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zlovtnik/stripe-lunar/internal/etl"
)

const testSecret = "whsec_test_secret"

// signHeader builds a signature header for payload signed at ts
func signHeader(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(eventType string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_1","object":"event","type":%q,"data":{"object":{"id":"cus_1","object":"customer"}}}`,
		eventType))
}

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name     string
		verifier *Verifier
		payload  []byte
		header   func(payload []byte) string
		wantErr  error
		wantType string
	}{
		{
			name:     "valid event",
			verifier: NewVerifier(testSecret),
			payload:  eventPayload("customer.created"),
			header:   func(p []byte) string { return signHeader(p, testSecret, now) },
			wantType: "customer.created",
		},
		{
			name:     "wrong secret",
			verifier: NewVerifier(testSecret),
			payload:  eventPayload("customer.created"),
			header:   func(p []byte) string { return signHeader(p, "whsec_other", now) },
			wantErr:  ErrInvalidSignature,
		},
		{
			name:     "missing header",
			verifier: NewVerifier(testSecret),
			payload:  eventPayload("customer.created"),
			header:   func([]byte) string { return "" },
			wantErr:  ErrInvalidSignature,
		},
		{
			name:     "timestamp outside tolerance",
			verifier: NewVerifier(testSecret),
			payload:  eventPayload("customer.created"),
			header:   func(p []byte) string { return signHeader(p, testSecret, now.Add(-10*time.Minute)) },
			wantErr:  ErrInvalidSignature,
		},
		{
			name:     "custom tolerance accepts older timestamp",
			verifier: NewVerifier(testSecret, WithTolerance(time.Hour)),
			payload:  eventPayload("charge.refunded"),
			header:   func(p []byte) string { return signHeader(p, testSecret, now.Add(-10*time.Minute)) },
			wantType: "charge.refunded",
		},
		{
			name:     "no secret configured",
			verifier: NewVerifier(""),
			payload:  eventPayload("customer.created"),
			header:   func(p []byte) string { return signHeader(p, "", now) },
			wantErr:  ErrInvalidSignature,
		},
		{
			name:     "signed garbage",
			verifier: NewVerifier(testSecret),
			payload:  []byte(`{not json`),
			header:   func(p []byte) string { return signHeader(p, testSecret, now) },
			wantErr:  ErrDeserialize,
		},
		{
			name:     "signed event without type",
			verifier: NewVerifier(testSecret),
			payload:  []byte(`{"id":"evt_1","object":"event","data":{"object":{}}}`),
			header:   func(p []byte) string { return signHeader(p, testSecret, now) },
			wantErr:  ErrDeserialize,
		},
		{
			name:     "signed event without data object",
			verifier: NewVerifier(testSecret),
			payload:  []byte(`{"id":"evt_1","object":"event","type":"customer.created"}`),
			header:   func(p []byte) string { return signHeader(p, testSecret, now) },
			wantErr:  ErrDeserialize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			event, err := tt.verifier.Verify(tt.payload, tt.header(tt.payload))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, event)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, string(event.Type))
		})
	}
}

func TestOperationForEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		eventType string
		op        etl.Operation
		ok        bool
	}{
		{"customer.created", etl.OperationSyncCustomers, true},
		{"customer.updated", etl.OperationSyncCustomers, true},
		{"customer.deleted", etl.OperationSyncCustomers, true},
		{"charge.succeeded", etl.OperationSyncPayments, true},
		{"charge.failed", etl.OperationSyncPayments, true},
		{"charge.refunded", etl.OperationSyncPayments, true},
		{"payment_intent.created", "", false},
		{"invoice.paid", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			t.Parallel()
			op, ok := OperationForEvent(tt.eventType)
			assert.Equal(t, tt.op, op)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
