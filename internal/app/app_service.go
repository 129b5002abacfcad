package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"ledger-gateway/internal/ai"
	"ledger-gateway/internal/core"
	"ledger-gateway/internal/ledger"
	"ledger-gateway/internal/profile"
	"ledger-gateway/internal/storage"
)

type appService struct {
	invoices     *core.InvoiceService
	transactions *core.TransactionService
	payroll      *core.PayrollService
	docs         *core.DocumentService
	extractor    ai.ExtractorService // nil when extraction is not configured
	downloader   storage.Downloader
	profiles     *profile.Store // nil when no database is configured
}

// NewAppService constructs an appService that satisfies ApplicationService.
// extractor and profiles may be nil; the corresponding endpoints then refuse
// with a validation error.
func NewAppService(
	rpc ledger.Client,
	rules *core.MatchingRules,
	extractor ai.ExtractorService,
	downloader storage.Downloader,
	profiles *profile.Store,
) ApplicationService {
	return &appService{
		invoices:     core.NewInvoiceService(rpc, rules),
		transactions: core.NewTransactionService(rpc, rules),
		payroll:      core.NewPayrollService(rpc, rules),
		docs:         core.NewDocumentService(rpc),
		extractor:    extractor,
		downloader:   downloader,
		profiles:     profiles,
	}
}

func (s *appService) Health(ctx context.Context) *HealthResult {
	return &HealthResult{
		Status:       "ok",
		ProfileStore: s.profiles != nil,
		Extraction:   s.extractor != nil,
	}
}

func (s *appService) PostInvoice(ctx context.Context, req core.InvoiceRequest) (*core.PostedDocument, error) {
	return s.invoices.PostInvoice(ctx, req)
}

func (s *appService) PostBill(ctx context.Context, req core.InvoiceRequest) (*core.PostedDocument, error) {
	return s.invoices.PostBill(ctx, req)
}

// PostJournalEntry posts a strict journal entry: the lines must balance on
// their own, with no suspense fallback.
func (s *appService) PostJournalEntry(ctx context.Context, req core.TransactionRequest) (*core.PostedDocument, error) {
	req.AllowImbalance = false
	return s.transactions.PostTransaction(ctx, req)
}

// PostTransaction posts a flexible transaction: missing accounts may be
// created per line, and imbalances fall back to the suspense account.
func (s *appService) PostTransaction(ctx context.Context, req core.TransactionRequest) (*core.PostedDocument, error) {
	req.AllowImbalance = true
	return s.transactions.PostTransaction(ctx, req)
}

func (s *appService) PostTransactionBatch(ctx context.Context, reqs []core.TransactionRequest) (*core.BatchResult, error) {
	for i := range reqs {
		reqs[i].AllowImbalance = true
	}
	return s.transactions.PostTransactionBatch(ctx, reqs)
}

func (s *appService) PostPayroll(ctx context.Context, req core.PayrollRequest) (*core.PostedDocument, error) {
	return s.payroll.PostPayroll(ctx, req)
}

// ExtractPayroll runs the extraction pipeline: fetch the document, classify
// it, extract the payroll journal, and optionally post it.
func (s *appService) ExtractPayroll(ctx context.Context, req ExtractPayrollRequest) (*PayrollExtractionResult, error) {
	if s.extractor == nil {
		return nil, &core.ValidationError{Field: "extraction", Message: "document extraction is not configured"}
	}
	text, err := s.documentText(ctx, req.Company, req.DocumentURL, req.Text)
	if err != nil {
		return nil, err
	}

	result := &PayrollExtractionResult{}
	classification, err := s.extractor.ClassifyDocument(ctx, text)
	if err == nil {
		result.Classification = classification
		if classification.DocumentType != "payroll" && classification.Confidence >= 0.8 {
			return nil, &core.ValidationError{
				Field:   "document",
				Message: fmt.Sprintf("document classified as %q, not payroll", classification.DocumentType),
			}
		}
	}

	extraction, err := s.extractor.ExtractPayroll(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract payroll: %w", err)
	}
	result.Extraction = extraction

	if !req.Post {
		return result, nil
	}

	payrollReq, err := payrollRequestFromExtraction(req.Company, extraction)
	if err != nil {
		return nil, err
	}
	doc, err := s.payroll.PostPayroll(ctx, *payrollReq)
	if err != nil {
		return nil, err
	}
	result.Document = doc
	return result, nil
}

// ExtractTransactions runs the bank-statement pipeline: fetch the document,
// classify it, extract the transactions, and optionally post them as a batch
// of journal entries with per-item isolation.
func (s *appService) ExtractTransactions(ctx context.Context, req ExtractTransactionsRequest) (*TransactionExtractionResult, error) {
	if s.extractor == nil {
		return nil, &core.ValidationError{Field: "extraction", Message: "document extraction is not configured"}
	}
	text, err := s.documentText(ctx, req.Company, req.DocumentURL, req.Text)
	if err != nil {
		return nil, err
	}

	result := &TransactionExtractionResult{}
	classification, err := s.extractor.ClassifyDocument(ctx, text)
	if err == nil {
		result.Classification = classification
		if classification.DocumentType != "bank_statement" && classification.Confidence >= 0.8 {
			return nil, &core.ValidationError{
				Field:   "document",
				Message: fmt.Sprintf("document classified as %q, not a bank statement", classification.DocumentType),
			}
		}
	}

	extraction, err := s.extractor.ExtractBankTransactions(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract transactions: %w", err)
	}
	if len(extraction.Transactions) == 0 {
		return nil, &core.ValidationError{Field: "document", Message: "no transactions extracted"}
	}
	result.Extraction = extraction

	if !req.Post {
		return result, nil
	}

	reqs, err := transactionRequestsFromExtraction(req.Company, extraction)
	if err != nil {
		return nil, err
	}
	for i := range reqs {
		reqs[i].AllowImbalance = true
	}
	batch, err := s.transactions.PostTransactionBatch(ctx, reqs)
	if err != nil {
		return nil, err
	}
	result.Batch = batch
	return result, nil
}

// documentText assembles the extraction input: inline text or a downloaded
// document, prefixed with the company profile's extraction hints when one is
// on file.
func (s *appService) documentText(ctx context.Context, company, documentURL, text string) (string, error) {
	if text == "" {
		if documentURL == "" {
			return "", &core.ValidationError{Field: "document", Message: "document_url or text is required"}
		}
		data, _, err := s.downloader.Fetch(ctx, documentURL)
		if err != nil {
			return "", fmt.Errorf("fetch document: %w", err)
		}
		text = string(data)
	}

	// Extraction hints from the company profile sharpen the prompt.
	if s.profiles != nil && company != "" {
		if p, err := s.profiles.Get(ctx, company); err == nil && p.ExtractionHints != "" {
			text = "Operator notes: " + p.ExtractionHints + "\n\n" + text
		}
	}
	return text, nil
}

// transactionRequestsFromExtraction turns each statement movement into a
// two-line journal entry: the bank account against an account matched from
// the movement's description, minted when nothing matches.
func transactionRequestsFromExtraction(company string, e *ai.BankStatementExtraction) ([]core.TransactionRequest, error) {
	bankAccount := e.AccountName
	if bankAccount == "" {
		bankAccount = "Bank"
	}

	out := make([]core.TransactionRequest, 0, len(e.Transactions))
	for _, tx := range e.Transactions {
		amount, err := decimal.NewFromString(tx.Amount)
		if err != nil || !amount.IsPositive() {
			return nil, &core.ValidationError{Field: "transactions", Message: fmt.Sprintf("bad amount %q for %q", tx.Amount, tx.Description)}
		}

		bankLine := core.TransactionLineRequest{Description: tx.Description, AccountName: bankAccount}
		counterLine := core.TransactionLineRequest{
			Description:   tx.Description,
			AccountName:   tx.Description,
			CreateMissing: true,
		}
		if tx.Direction == "in" {
			bankLine.Debit = amount
			counterLine.Credit = amount
			counterLine.AccountType = "income"
		} else {
			bankLine.Credit = amount
			counterLine.Debit = amount
			counterLine.AccountType = "expense"
		}

		out = append(out, core.TransactionRequest{
			Company:   company,
			Date:      tx.Date,
			Narration: tx.Description,
			Partner:   tx.Counterparty,
			Lines:     []core.TransactionLineRequest{bankLine, counterLine},
		})
	}
	return out, nil
}

func payrollRequestFromExtraction(company string, e *ai.PayrollExtraction) (*core.PayrollRequest, error) {
	req := &core.PayrollRequest{Company: company, Period: e.Period}
	for _, line := range e.Lines {
		debit, err := decimal.NewFromString(line.Debit)
		if err != nil {
			return nil, &core.ValidationError{Field: "lines", Message: fmt.Sprintf("bad debit amount %q for %q", line.Debit, line.Label)}
		}
		credit, err := decimal.NewFromString(line.Credit)
		if err != nil {
			return nil, &core.ValidationError{Field: "lines", Message: fmt.Sprintf("bad credit amount %q for %q", line.Credit, line.Label)}
		}
		req.Lines = append(req.Lines, core.PayrollLineRequest{Label: line.Label, Debit: debit, Credit: credit})
	}
	return req, nil
}

func (s *appService) ResetToDraft(ctx context.Context, documentID int) error {
	if documentID <= 0 {
		return &core.ValidationError{Field: "document_id", Message: "a positive document id is required"}
	}
	return s.docs.ResetToDraft(ctx, documentID)
}

func (s *appService) GetProfile(ctx context.Context, companyRef string) (*profile.CompanyProfile, error) {
	if s.profiles == nil {
		return nil, &core.ValidationError{Field: "profiles", Message: "profile store is not configured"}
	}
	return s.profiles.Get(ctx, companyRef)
}

func (s *appService) ListProfiles(ctx context.Context) ([]profile.CompanyProfile, error) {
	if s.profiles == nil {
		return nil, &core.ValidationError{Field: "profiles", Message: "profile store is not configured"}
	}
	return s.profiles.List(ctx)
}

func (s *appService) UpsertProfile(ctx context.Context, p profile.CompanyProfile) (*profile.CompanyProfile, error) {
	if s.profiles == nil {
		return nil, &core.ValidationError{Field: "profiles", Message: "profile store is not configured"}
	}
	return s.profiles.Upsert(ctx, p)
}

func (s *appService) DeleteProfile(ctx context.Context, companyRef string) error {
	if s.profiles == nil {
		return &core.ValidationError{Field: "profiles", Message: "profile store is not configured"}
	}
	return s.profiles.Delete(ctx, companyRef)
}
