package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"ledger-gateway/internal/core"
	"ledger-gateway/internal/profile"
)

type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps workflow errors to HTTP responses: caller mistakes
// are 400, remote ledger faults are 502 with the remote text preserved, and
// a created-but-unposted document is 502 with its ID so recovery is possible.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *core.ValidationError
		notFound   *core.ReferenceNotFoundError
		imbalance  *core.ImbalanceError
		remote     *core.RemoteFault
		partial    *core.PartialPostFailure
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, r, validation.Error(), "VALIDATION_ERROR", http.StatusBadRequest)
	case errors.As(err, &notFound):
		writeError(w, r, notFound.Error(), "REFERENCE_NOT_FOUND", http.StatusBadRequest)
	case errors.As(err, &imbalance):
		writeError(w, r, imbalance.Error(), "ENTRY_NOT_BALANCED", http.StatusBadRequest)
	case errors.As(err, &partial):
		writeError(w, r, partial.Error(), "PARTIAL_POST_FAILURE", http.StatusBadGateway)
	case errors.As(err, &remote):
		writeError(w, r, remote.Error(), "LEDGER_FAULT", http.StatusBadGateway)
	case errors.Is(err, profile.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	default:
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
