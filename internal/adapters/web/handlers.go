package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledger-gateway/internal/app"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc app.ApplicationService
}

// NewHandler creates and wires the chi router with all routes. apiKey guards
// every route except health; empty disables the check.
func NewHandler(svc app.ApplicationService, allowedOrigins, apiKey string) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(APIKey(apiKey))
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// Documents
		r.Post("/api/invoices", h.postInvoice)
		r.Post("/api/bills", h.postBill)
		r.Post("/api/journal-entries", h.postJournalEntry)
		r.Post("/api/transactions", h.postTransaction)
		r.Post("/api/transactions/batch", h.postTransactionBatch)
		r.Post("/api/payroll", h.postPayroll)
		r.Post("/api/documents/{id}/reset-to-draft", h.resetToDraft)

		// Extraction pipeline
		r.Post("/api/extract/payroll", h.extractPayroll)
		r.Post("/api/extract/transactions", h.extractTransactions)

		// Company profiles
		r.Get("/api/profiles", h.listProfiles)
		r.Get("/api/profiles/{ref}", h.getProfile)
		r.Put("/api/profiles/{ref}", h.upsertProfile)
		r.Delete("/api/profiles/{ref}", h.deleteProfile)
	})

	return r
}

// health returns service status and which optional subsystems are wired.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Health(r.Context()))
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
