package common

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/zlovtnik/stripe-lunar/internal/etl"
	"github.com/zlovtnik/stripe-lunar/internal/ledger"
	"github.com/zlovtnik/stripe-lunar/internal/store"
)

// MessageUnexpected is returned for errors that have no specific mapping
const MessageUnexpected = "An unexpected error occurred"

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSONResponse writes a JSON response with the given data
func WriteJSONResponse(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// WriteTextResponse writes a plain text response
func WriteTextResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := io.WriteString(w, message); err != nil {
		slog.Error("Failed to write text response", "error", err)
	}
}

// WriteErrorResponse writes a standardized error response
func WriteErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	WriteJSONResponse(w, ErrorResponse{Error: message}, statusCode)
}

// WriteError maps err to a status code and message:
// unknown operations are 400, platform failures 502, missing records 404,
// and anything else 500 with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	var upstream *etl.UpstreamSyncError
	switch {
	case etl.IsInvalidOperation(err):
		WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &upstream):
		WriteErrorResponse(w, "Error communicating with Stripe API: "+upstream.Err.Error(), http.StatusBadGateway)
	case errors.Is(err, ledger.ErrJobNotFound), errors.Is(err, store.ErrNotFound):
		WriteErrorResponse(w, err.Error(), http.StatusNotFound)
	default:
		slog.Error("Unhandled request error", "error", err)
		WriteErrorResponse(w, MessageUnexpected, http.StatusInternalServerError)
	}
}
