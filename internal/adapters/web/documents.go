package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ledger-gateway/internal/app"
	"ledger-gateway/internal/core"
)

// documentResponse is the envelope for all posting endpoints. Duplicate hits
// come back as success with the existing document flagged Exists.
type documentResponse struct {
	Success  bool                 `json:"success"`
	Document *core.PostedDocument `json:"document"`
}

func (h *Handler) postInvoice(w http.ResponseWriter, r *http.Request) {
	var req core.InvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := h.svc.PostInvoice(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Success: true, Document: doc})
}

func (h *Handler) postBill(w http.ResponseWriter, r *http.Request) {
	var req core.InvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := h.svc.PostBill(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Success: true, Document: doc})
}

func (h *Handler) postJournalEntry(w http.ResponseWriter, r *http.Request) {
	var req core.TransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := h.svc.PostJournalEntry(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Success: true, Document: doc})
}

func (h *Handler) postTransaction(w http.ResponseWriter, r *http.Request) {
	var req core.TransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := h.svc.PostTransaction(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Success: true, Document: doc})
}

func (h *Handler) postTransactionBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transactions []core.TransactionRequest `json:"transactions"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.PostTransactionBatch(r.Context(), req.Transactions)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool              `json:"success"`
		Batch   *core.BatchResult `json:"batch"`
	}{Success: true, Batch: result})
}

func (h *Handler) postPayroll(w http.ResponseWriter, r *http.Request) {
	var req core.PayrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	doc, err := h.svc.PostPayroll(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Success: true, Document: doc})
}

func (h *Handler) resetToDraft(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "invalid document id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if err := h.svc.ResetToDraft(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
	}{Success: true})
}

func (h *Handler) extractPayroll(w http.ResponseWriter, r *http.Request) {
	var req app.ExtractPayrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.ExtractPayroll(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool                         `json:"success"`
		Result  *app.PayrollExtractionResult `json:"result"`
	}{Success: true, Result: result})
}

func (h *Handler) extractTransactions(w http.ResponseWriter, r *http.Request) {
	var req app.ExtractTransactionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.ExtractTransactions(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool                             `json:"success"`
		Result  *app.TransactionExtractionResult `json:"result"`
	}{Success: true, Result: result})
}
