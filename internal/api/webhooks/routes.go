// Package webhooks provides the inbound event endpoint that triggers syncs.
package webhooks

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zlovtnik/stripe-lunar/internal/api/common"
	"github.com/zlovtnik/stripe-lunar/internal/orchestrator"
	"github.com/zlovtnik/stripe-lunar/internal/webhook"
)

const (
	// MaxBodyBytes bounds the size of an accepted event payload. Events that
	// embed a full object with expanded lists and metadata exceed 64 KiB.
	MaxBodyBytes = 512 << 10

	// MessageProcessed acknowledges a verified event
	MessageProcessed = "Webhook processed successfully"

	// MessageInvalidSignature is returned when verification fails
	MessageInvalidSignature = "Invalid signature"

	// MessageDeserialize is returned for a signed payload that is not an event
	MessageDeserialize = "Failed to deserialize webhook event object"
)

// Routes handles webhook deliveries
type Routes struct {
	runner   orchestrator.Runner
	verifier *webhook.Verifier
}

// Router creates the /webhook router
func Router(runner orchestrator.Runner, verifier *webhook.Verifier) http.Handler {
	routes := &Routes{
		runner:   runner,
		verifier: verifier,
	}

	r := chi.NewRouter()
	r.Post("/stripe", routes.handleStripe)
	return r
}

func (rr *Routes) handleStripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		slog.Warn("Failed to read webhook body", "error", err)
		common.WriteTextResponse(w, MessageDeserialize, http.StatusBadRequest)
		return
	}

	event, err := rr.verifier.Verify(payload, r.Header.Get(webhook.SignatureHeader))
	switch {
	case errors.Is(err, webhook.ErrInvalidSignature):
		slog.Warn("Rejected webhook with invalid signature", "error", err)
		common.WriteTextResponse(w, MessageInvalidSignature, http.StatusBadRequest)
		return
	case err != nil:
		slog.Warn("Rejected malformed webhook", "error", err)
		common.WriteTextResponse(w, MessageDeserialize, http.StatusBadRequest)
		return
	}

	eventType := string(event.Type)
	op, ok := webhook.OperationForEvent(eventType)
	if !ok {
		slog.Debug("Ignoring webhook event", "event_id", event.ID, "event_type", eventType)
		common.WriteTextResponse(w, MessageProcessed, http.StatusOK)
		return
	}

	slog.Info("Dispatching sync for webhook event",
		"event_id", event.ID, "event_type", eventType, "operation", op.String())
	rr.runner.RunAsync(r.Context(), op.String())
	common.WriteTextResponse(w, MessageProcessed, http.StatusOK)
}
