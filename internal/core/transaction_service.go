package core

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"ledger-gateway/internal/ledger"
)

// TransactionLineRequest is one free-form journal line. CreateMissing lets
// the flow mint a new account when resolution misses, instead of failing.
type TransactionLineRequest struct {
	Description   string          `json:"description"`
	AccountName   string          `json:"account_name,omitempty"`
	AccountCode   string          `json:"account_code,omitempty"`
	AccountType   string          `json:"account_type,omitempty"`
	CreateMissing bool            `json:"create_missing,omitempty"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	TaxName       string          `json:"tax_name,omitempty"`

	// TaxGrid is an optional reporting grid label ("+6", "-1") to stamp on
	// the line for jurisdiction tax reports.
	TaxGrid string `json:"tax_grid,omitempty"`
}

// TransactionRequest describes an arbitrary journal entry: any lines, any
// accounts, optionally tied to a partner.
type TransactionRequest struct {
	Company   string                   `json:"company"`
	Date      string                   `json:"date,omitempty"`
	Reference string                   `json:"reference,omitempty"`
	Narration string                   `json:"narration,omitempty"`
	Partner   string                   `json:"partner,omitempty"`
	Role      PartnerRole              `json:"partner_role,omitempty"`
	Lines     []TransactionLineRequest `json:"lines"`

	// AllowImbalance opts into suspense auto-balancing. Off by default for
	// this flow: free-form entries that don't balance usually indicate a
	// caller bug rather than a rounding gap.
	AllowImbalance bool `json:"allow_imbalance,omitempty"`
}

// TransactionService posts free-form journal entries and sequential batches
// of them.
type TransactionService struct {
	companies *CompanyResolver
	partners  *PartnerResolver
	accounts  *AccountResolver
	taxes     *TaxResolver
	journals  *JournalResolver
	guard     *DuplicateGuard
	docs      *DocumentService
}

func NewTransactionService(rpc ledger.Client, rules *MatchingRules) *TransactionService {
	return &TransactionService{
		companies: NewCompanyResolver(rpc),
		partners:  NewPartnerResolver(rpc),
		accounts:  NewAccountResolver(rpc, rules),
		taxes:     NewTaxResolver(rpc),
		journals:  NewJournalResolver(rpc),
		guard:     NewDuplicateGuard(rpc),
		docs:      NewDocumentService(rpc),
	}
}

// PostTransaction resolves the request, balances it, and posts it as a
// general journal entry.
func (s *TransactionService) PostTransaction(ctx context.Context, req TransactionRequest) (*PostedDocument, error) {
	if len(req.Lines) == 0 {
		return nil, &ValidationError{Field: "lines", Message: "at least one line is required"}
	}

	company, err := s.companies.ResolveCompany(ctx, req.Company)
	if err != nil {
		return nil, err
	}
	date, err := NormalizeDate(req.Date)
	if err != nil {
		return nil, err
	}

	totalDebit := decimal.Zero
	for _, line := range req.Lines {
		totalDebit = totalDebit.Add(line.Debit)
	}
	if req.Reference != "" {
		existing, err := s.guard.FindExisting(ctx, DuplicateQuery{
			Type:      DocJournalEntry,
			CompanyID: company.ID,
			Date:      date,
			Reference: req.Reference,
			Amount:    totalDebit,
		})
		if err != nil {
			return nil, err
		}
		if existing != nil {
			log.Printf("transaction %q already posted as document %d", req.Reference, existing.ID)
			return existing, nil
		}
	}

	entry := &JournalEntry{
		CompanyID: company.ID,
		Type:      DocJournalEntry,
		Date:      date,
		Reference: req.Reference,
		Narration: req.Narration,
	}

	if req.Partner != "" {
		role := req.Role
		if role == "" {
			role = RoleEither
		}
		partner, _, err := s.partners.ResolveOrCreatePartner(ctx, req.Partner, role)
		if err != nil {
			return nil, err
		}
		entry.PartnerID = partner.ID
	}

	var taxWarnings []string
	for _, line := range req.Lines {
		account, err := s.resolveLineAccount(ctx, line, company.ID)
		if err != nil {
			return nil, err
		}

		item := LineItem{
			Description: line.Description,
			AccountID:   account.ID,
			PartnerID:   entry.PartnerID,
			Debit:       line.Debit,
			Credit:      line.Credit,
		}
		if line.TaxName != "" {
			direction := TaxPurchase
			if !line.Credit.IsZero() {
				direction = TaxSale
			}
			tax, err := s.taxes.ResolveTax(ctx, line.TaxName, company.ID, direction)
			var notFound *ReferenceNotFoundError
			switch {
			case err == nil:
				item.TaxID = tax.ID
			case errors.As(err, &notFound):
				warning := fmt.Sprintf("tax %q not found, line posted without tax", line.TaxName)
				log.Print(warning)
				taxWarnings = append(taxWarnings, warning)
			default:
				return nil, err
			}
		}
		if line.TaxGrid != "" {
			tag, err := s.taxes.ResolveTaxTag(ctx, line.TaxGrid, company.CountryID)
			var notFound *ReferenceNotFoundError
			switch {
			case err == nil:
				item.TaxTagID = tag.ID
			case errors.As(err, &notFound):
				warning := fmt.Sprintf("tax grid %q not found, line posted without tag", line.TaxGrid)
				log.Print(warning)
				taxWarnings = append(taxWarnings, warning)
			default:
				return nil, err
			}
		}
		entry.Lines = append(entry.Lines, item)
	}

	builder := NewEntryBuilder(s.accounts)
	builder.AutoBalance = req.AllowImbalance
	result, err := builder.Build(ctx, entry)
	if err != nil {
		return nil, err
	}

	journal, err := s.journals.EnsureGeneralJournal(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	entry.JournalID = journal.ID

	doc, err := s.docs.CreateAndPost(ctx, entry)
	if err != nil {
		return nil, err
	}
	doc.AutoBalanced = result.AutoBalanced
	doc.RequiresReview = result.AutoBalanced
	doc.TaxResolutionWarnings = taxWarnings
	return doc, nil
}

// resolveLineAccount resolves the account reference, minting a new account
// when the line allows it and resolution misses.
func (s *TransactionService) resolveLineAccount(ctx context.Context, line TransactionLineRequest, companyID int) (*LedgerAccount, error) {
	account, err := s.accounts.ResolveAccount(ctx, line.AccountName, line.AccountCode, companyID)
	if err == nil {
		return account, nil
	}

	var notFound *ReferenceNotFoundError
	if !errors.As(err, &notFound) || !line.CreateMissing || line.AccountName == "" {
		return nil, err
	}
	return s.accounts.CreateAccount(ctx, line.AccountName, line.AccountType, companyID)
}

// BatchItemResult is the outcome of one item in a batch.
type BatchItemResult struct {
	Index    int             `json:"index"`
	Success  bool            `json:"success"`
	Document *PostedDocument `json:"document,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Total       int               `json:"total"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	SuccessRate float64           `json:"success_rate"`
	Results     []BatchItemResult `json:"results"`
}

// PostTransactionBatch posts each request in order. Items run strictly
// sequentially so postings land in submission order, and a failed item never
// stops the rest of the batch.
func (s *TransactionService) PostTransactionBatch(ctx context.Context, reqs []TransactionRequest) (*BatchResult, error) {
	if len(reqs) == 0 {
		return nil, &ValidationError{Field: "transactions", Message: "batch is empty"}
	}

	result := &BatchResult{Total: len(reqs)}
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.PostTransaction(ctx, req)
		item := BatchItemResult{Index: i}
		if err != nil {
			item.Error = err.Error()
			result.Failed++
			log.Printf("batch item %d failed: %v", i, err)
		} else {
			item.Success = true
			item.Document = doc
			result.Succeeded++
		}
		result.Results = append(result.Results, item)
	}
	result.SuccessRate = float64(result.Succeeded) / float64(result.Total)
	return result, nil
}
