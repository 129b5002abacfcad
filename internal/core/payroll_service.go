package core

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"ledger-gateway/internal/ledger"
)

// PayrollLineRequest is one extracted payroll journal line: a source label
// ("Gross wages", "PAYE/NIC") with its debit or credit amount.
type PayrollLineRequest struct {
	Label  string          `json:"label"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// PayrollRequest describes a payroll journal to post for one period.
type PayrollRequest struct {
	Company string               `json:"company"`
	Period  string               `json:"period"` // e.g. "202506 - JUNE"
	Lines   []PayrollLineRequest `json:"lines"`
}

// PayrollService posts payroll journals. Payroll labels rarely match chart of
// accounts names exactly, so this flow leans hardest on the match cascade's
// variation tables, and on suspense balancing when extraction loses a line.
type PayrollService struct {
	companies *CompanyResolver
	accounts  *AccountResolver
	journals  *JournalResolver
	builder   *EntryBuilder
	guard     *DuplicateGuard
	docs      *DocumentService
}

func NewPayrollService(rpc ledger.Client, rules *MatchingRules) *PayrollService {
	accounts := NewAccountResolver(rpc, rules)
	return &PayrollService{
		companies: NewCompanyResolver(rpc),
		accounts:  accounts,
		journals:  NewJournalResolver(rpc),
		builder:   NewEntryBuilder(accounts),
		guard:     NewDuplicateGuard(rpc),
		docs:      NewDocumentService(rpc),
	}
}

// PostPayroll resolves every payroll label to an account, balances the entry,
// and posts it dated to the period's last day.
func (s *PayrollService) PostPayroll(ctx context.Context, req PayrollRequest) (*PostedDocument, error) {
	if len(req.Lines) == 0 {
		return nil, &ValidationError{Field: "lines", Message: "at least one payroll line is required"}
	}

	date, err := ParsePayrollPeriod(req.Period)
	if err != nil {
		return nil, err
	}
	company, err := s.companies.ResolveCompany(ctx, req.Company)
	if err != nil {
		return nil, err
	}

	totalDebit := decimal.Zero
	for _, line := range req.Lines {
		totalDebit = totalDebit.Add(line.Debit)
	}

	if existing, err := s.guard.FindExisting(ctx, DuplicateQuery{
		Type:          DocJournalEntry,
		CompanyID:     company.ID,
		Date:          date,
		Amount:        totalDebit,
		PayrollPeriod: req.Period,
	}); err != nil {
		return nil, err
	} else if existing != nil {
		log.Printf("payroll for period %q already posted as document %d", req.Period, existing.ID)
		return existing, nil
	}

	entry := &JournalEntry{
		CompanyID: company.ID,
		Type:      DocJournalEntry,
		Date:      date,
		Reference: fmt.Sprintf("Payroll %s", req.Period),
		Narration: fmt.Sprintf("Payroll journal for period %s", req.Period),
	}
	for _, line := range req.Lines {
		account, err := s.accounts.ResolveAccount(ctx, line.Label, "", company.ID)
		if err != nil {
			return nil, err
		}
		entry.Lines = append(entry.Lines, LineItem{
			Description: line.Label,
			AccountID:   account.ID,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}

	result, err := s.builder.Build(ctx, entry)
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
	return doc, nil
}
