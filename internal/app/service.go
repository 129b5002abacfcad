package app

import (
	"context"

	"ledger-gateway/internal/ai"
	"ledger-gateway/internal/core"
	"ledger-gateway/internal/profile"
)

// ApplicationService is the single surface the web layer talks to. Each
// method is one complete workflow: resolve references, guard duplicates,
// post, read back.
type ApplicationService interface {
	Health(ctx context.Context) *HealthResult

	PostInvoice(ctx context.Context, req core.InvoiceRequest) (*core.PostedDocument, error)
	PostBill(ctx context.Context, req core.InvoiceRequest) (*core.PostedDocument, error)

	PostJournalEntry(ctx context.Context, req core.TransactionRequest) (*core.PostedDocument, error)
	PostTransaction(ctx context.Context, req core.TransactionRequest) (*core.PostedDocument, error)
	PostTransactionBatch(ctx context.Context, reqs []core.TransactionRequest) (*core.BatchResult, error)

	PostPayroll(ctx context.Context, req core.PayrollRequest) (*core.PostedDocument, error)
	ExtractPayroll(ctx context.Context, req ExtractPayrollRequest) (*PayrollExtractionResult, error)
	ExtractTransactions(ctx context.Context, req ExtractTransactionsRequest) (*TransactionExtractionResult, error)

	ResetToDraft(ctx context.Context, documentID int) error

	GetProfile(ctx context.Context, companyRef string) (*profile.CompanyProfile, error)
	ListProfiles(ctx context.Context) ([]profile.CompanyProfile, error)
	UpsertProfile(ctx context.Context, p profile.CompanyProfile) (*profile.CompanyProfile, error)
	DeleteProfile(ctx context.Context, companyRef string) error
}

// HealthResult reports process liveness and which optional subsystems are
// configured.
type HealthResult struct {
	Status       string `json:"status"`
	ProfileStore bool   `json:"profile_store"`
	Extraction   bool   `json:"extraction"`
}

// ExtractPayrollRequest asks for a payroll document to be extracted and,
// optionally, posted. Exactly one of DocumentURL and Text must be given.
type ExtractPayrollRequest struct {
	Company     string `json:"company"`
	DocumentURL string `json:"document_url,omitempty"`
	Text        string `json:"text,omitempty"`

	// Post submits the extracted journal immediately. Off by default so
	// callers can review the extraction first.
	Post bool `json:"post,omitempty"`
}

// PayrollExtractionResult is the extraction plus the posted document when
// posting was requested.
type PayrollExtractionResult struct {
	Classification *ai.DocumentClassification `json:"classification,omitempty"`
	Extraction     *ai.PayrollExtraction      `json:"extraction"`
	Document       *core.PostedDocument       `json:"document,omitempty"`
}

// ExtractTransactionsRequest asks for a bank statement to be extracted and,
// optionally, posted as a batch of journal entries.
type ExtractTransactionsRequest struct {
	Company     string `json:"company"`
	DocumentURL string `json:"document_url,omitempty"`
	Text        string `json:"text,omitempty"`

	// Post submits every extracted transaction through the batch flow. Off by
	// default so callers can review the extraction first.
	Post bool `json:"post,omitempty"`
}

// TransactionExtractionResult is the extraction plus the batch outcome when
// posting was requested.
type TransactionExtractionResult struct {
	Classification *ai.DocumentClassification  `json:"classification,omitempty"`
	Extraction     *ai.BankStatementExtraction `json:"extraction"`
	Batch          *core.BatchResult           `json:"batch,omitempty"`
}
