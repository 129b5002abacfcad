package core

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"ledger-gateway/internal/ledger"
)

// DocumentLineRequest is one caller-supplied line of an invoice, bill, or
// journal entry, with references still in free text.
type DocumentLineRequest struct {
	Description string          `json:"description"`
	AccountName string          `json:"account_name,omitempty"`
	AccountCode string          `json:"account_code,omitempty"`
	Quantity    decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price,omitempty"`
	Amount      decimal.Decimal `json:"amount,omitempty"`
	TaxName     string          `json:"tax_name,omitempty"`
	TaxRate     decimal.Decimal `json:"tax_rate,omitempty"`
}

// total is the line's monetary value: quantity times unit price when priced,
// otherwise the flat amount.
func (l DocumentLineRequest) total() decimal.Decimal {
	if !l.Quantity.IsZero() && !l.UnitPrice.IsZero() {
		return l.Quantity.Mul(l.UnitPrice)
	}
	return l.Amount
}

// InvoiceRequest describes a customer invoice or vendor bill to post.
type InvoiceRequest struct {
	Company   string                `json:"company"`
	Partner   string                `json:"partner"`
	Date      string                `json:"date,omitempty"`
	DueDate   string                `json:"due_date,omitempty"`
	Reference string                `json:"reference,omitempty"`
	Lines     []DocumentLineRequest `json:"lines"`

	// PartnerEmail and PartnerPhone take priority over the name when given:
	// contact details are stabler identifiers than free-text names.
	PartnerEmail string `json:"partner_email,omitempty"`
	PartnerPhone string `json:"partner_phone,omitempty"`
}

// InvoiceService posts customer invoices and vendor bills: resolve every
// reference, guard against duplicates, create the draft, post it, read it
// back.
type InvoiceService struct {
	companies *CompanyResolver
	partners  *PartnerResolver
	accounts  *AccountResolver
	taxes     *TaxResolver
	journals  *JournalResolver
	guard     *DuplicateGuard
	docs      *DocumentService
}

func NewInvoiceService(rpc ledger.Client, rules *MatchingRules) *InvoiceService {
	return &InvoiceService{
		companies: NewCompanyResolver(rpc),
		partners:  NewPartnerResolver(rpc),
		accounts:  NewAccountResolver(rpc, rules),
		taxes:     NewTaxResolver(rpc),
		journals:  NewJournalResolver(rpc),
		guard:     NewDuplicateGuard(rpc),
		docs:      NewDocumentService(rpc),
	}
}

// PostInvoice posts a customer invoice.
func (s *InvoiceService) PostInvoice(ctx context.Context, req InvoiceRequest) (*PostedDocument, error) {
	return s.post(ctx, req, DocInvoice)
}

// PostBill posts a vendor bill.
func (s *InvoiceService) PostBill(ctx context.Context, req InvoiceRequest) (*PostedDocument, error) {
	return s.post(ctx, req, DocBill)
}

func (s *InvoiceService) post(ctx context.Context, req InvoiceRequest, docType DocumentType) (*PostedDocument, error) {
	if len(req.Lines) == 0 {
		return nil, &ValidationError{Field: "lines", Message: "at least one line is required"}
	}
	total := decimal.Zero
	for _, line := range req.Lines {
		if line.total().IsZero() {
			return nil, &ValidationError{Field: "lines", Message: "line amount is required"}
		}
		if line.total().IsNegative() {
			return nil, &ValidationError{Field: "lines", Message: "amounts must not be negative"}
		}
		total = total.Add(line.total())
	}

	company, err := s.companies.ResolveCompany(ctx, req.Company)
	if err != nil {
		return nil, err
	}
	date, err := NormalizeDate(req.Date)
	if err != nil {
		return nil, err
	}

	role, direction, journalType := RoleCustomer, TaxSale, "sale"
	if docType == DocBill {
		role, direction, journalType = RoleVendor, TaxPurchase, "purchase"
	}
	partner, created, err := s.resolvePartner(ctx, req, role)
	if err != nil {
		return nil, err
	}

	if existing, err := s.guard.FindExisting(ctx, DuplicateQuery{
		Type:      docType,
		CompanyID: company.ID,
		Date:      date,
		Reference: req.Reference,
		PartnerID: partner.ID,
		Amount:    total,
	}); err != nil {
		return nil, err
	} else if existing != nil {
		log.Printf("duplicate %s detected: existing document %d (%s)", docType, existing.ID, existing.Number)
		return existing, nil
	}

	journal, err := s.journals.JournalFor(ctx, journalType, company.ID)
	if err != nil {
		return nil, err
	}

	draft := &InvoiceDraft{
		CompanyID: company.ID,
		JournalID: journal.ID,
		Type:      docType,
		PartnerID: partner.ID,
		Date:      date,
		Reference: req.Reference,
	}
	if req.DueDate != "" {
		due, err := NormalizeDate(req.DueDate)
		if err != nil {
			return nil, err
		}
		draft.DueDate = due
	}

	var taxWarnings []string
	for _, line := range req.Lines {
		account, err := s.resolveLineAccount(ctx, line, company.ID, docType)
		if err != nil {
			return nil, err
		}

		taxID, warning, err := s.resolveLineTax(ctx, line, company.ID, direction)
		if err != nil {
			return nil, err
		}
		if warning != "" {
			taxWarnings = append(taxWarnings, warning)
		}

		quantity, unitPrice := line.Quantity, line.UnitPrice
		if quantity.IsZero() || unitPrice.IsZero() {
			quantity = decimal.NewFromInt(1)
			unitPrice = line.total()
		}
		draft.Lines = append(draft.Lines, InvoiceLine{
			Description: line.Description,
			AccountID:   account.ID,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			TaxID:       taxID,
		})
	}

	doc, err := s.docs.CreateAndPostInvoice(ctx, draft)
	if err != nil {
		return nil, err
	}
	doc.TaxResolutionWarnings = taxWarnings
	if created {
		log.Printf("posted %s %d with newly created partner %d %q", docType, doc.ID, partner.ID, partner.Name)
	}
	return doc, nil
}

// resolvePartner resolves the counterparty, trying contact details before the
// name ladder.
func (s *InvoiceService) resolvePartner(ctx context.Context, req InvoiceRequest, role PartnerRole) (*Partner, bool, error) {
	if req.PartnerEmail != "" || req.PartnerPhone != "" {
		p, err := s.partners.FindPartnerByContact(ctx, req.PartnerEmail, req.PartnerPhone)
		if err != nil {
			return nil, false, err
		}
		if p != nil {
			return p, false, nil
		}
	}
	return s.partners.ResolveOrCreatePartner(ctx, req.Partner, role)
}

// resolveLineAccount resolves the line's account reference, defaulting to the
// company's first income (invoice) or expense (bill) account when the line
// names none.
func (s *InvoiceService) resolveLineAccount(ctx context.Context, line DocumentLineRequest, companyID int, docType DocumentType) (*LedgerAccount, error) {
	if line.AccountName == "" && line.AccountCode == "" {
		accountType := "income"
		if docType == DocBill {
			accountType = "expense"
		}
		return s.accounts.FindDefaultAccount(ctx, accountType, companyID)
	}
	return s.accounts.ResolveAccount(ctx, line.AccountName, line.AccountCode, companyID)
}

// resolveLineTax resolves the line's tax, by name first and rate second. A
// tax that cannot be found is a warning, not a failure: the document posts
// without it and the caller is told which taxes were skipped.
func (s *InvoiceService) resolveLineTax(ctx context.Context, line DocumentLineRequest, companyID int, direction TaxDirection) (int, string, error) {
	var notFound *ReferenceNotFoundError

	if line.TaxName != "" {
		tax, err := s.taxes.ResolveTax(ctx, line.TaxName, companyID, direction)
		if err == nil {
			return tax.ID, "", nil
		}
		if errors.As(err, &notFound) {
			warning := fmt.Sprintf("tax %q not found, line posted without tax", line.TaxName)
			log.Print(warning)
			return 0, warning, nil
		}
		return 0, "", err
	}

	if !line.TaxRate.IsZero() {
		tax, err := s.taxes.ResolveTaxByRate(ctx, line.TaxRate, companyID, direction)
		if err == nil {
			return tax.ID, "", nil
		}
		if errors.As(err, &notFound) {
			warning := fmt.Sprintf("no %s%% tax configured, line posted without tax", line.TaxRate.String())
			log.Print(warning)
			return 0, warning, nil
		}
		return 0, "", err
	}

	return 0, "", nil
}
