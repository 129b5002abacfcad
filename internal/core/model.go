package core

import (
	"github.com/shopspring/decimal"
)

// TaxDirection says whether a tax applies to sales or purchases.
type TaxDirection string

const (
	TaxSale     TaxDirection = "sale"
	TaxPurchase TaxDirection = "purchase"
)

// PartnerRole selects the counterparty kind a resolver should match or create.
type PartnerRole string

const (
	RoleCustomer PartnerRole = "customer"
	RoleVendor   PartnerRole = "vendor"
	RoleEither   PartnerRole = "either"
)

// DocumentType is the ledger-side document classification.
type DocumentType string

const (
	DocInvoice      DocumentType = "out_invoice"
	DocBill         DocumentType = "in_invoice"
	DocJournalEntry DocumentType = "entry"
)

// LedgerAccount is one record of the remote chart of accounts. Accounts are
// created externally, or minted by the flexible-transaction flow; they are
// never deleted here.
type LedgerAccount struct {
	ID        int    `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Type      string `json:"account_type"`
	CompanyID int    `json:"company_id"`
	Active    bool   `json:"active"`
}

// TaxRecord is a remote tax definition. Read-only from this system.
type TaxRecord struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Direction TaxDirection    `json:"direction"`
	CompanyID int             `json:"company_id"`
}

// TaxTag routes a tax amount into a jurisdiction's reporting grid line
// (labels like "+6", "-1"). Read-only.
type TaxTag struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Applicability string `json:"applicability"`
	CountryID     int    `json:"country_id"`
}

// Company is an operating entity on the remote ledger. Documents always post
// into exactly one company's books.
type Company struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	CountryID int    `json:"country_id,omitempty"`
}

// Journal is a remote posting journal (sales, purchase, general, bank).
type Journal struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Type      string `json:"type"`
	CompanyID int    `json:"company_id"`
}

// Partner is a counterparty: customer, vendor, or both.
type Partner struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	CompanyID    int    `json:"company_id,omitempty"`
	IsCompany    bool   `json:"is_company"`
	CustomerRank int    `json:"customer_rank"`
	SupplierRank int    `json:"supplier_rank"`
}

// LineItem is one side of a journal entry under construction. Account and tax
// references are already resolved to remote IDs. Exactly one of Debit/Credit
// must be non-zero; the builder enforces this before summing totals.
type LineItem struct {
	Description string          `json:"description"`
	AccountID   int             `json:"account_id"`
	PartnerID   int             `json:"partner_id,omitempty"`
	TaxID       int             `json:"tax_id,omitempty"`
	TaxTagID    int             `json:"tax_tag_id,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// JournalEntry is a document assembled locally, transient until submitted to
// the remote ledger.
type JournalEntry struct {
	CompanyID int          `json:"company_id"`
	JournalID int          `json:"journal_id,omitempty"`
	Type      DocumentType `json:"type"`
	Date      string       `json:"date"` // YYYY-MM-DD
	Reference string       `json:"reference,omitempty"`
	Narration string       `json:"narration,omitempty"`
	PartnerID int          `json:"partner_id,omitempty"`
	Lines     []LineItem   `json:"lines"`
}

// InvoiceLine is one product or service line of an invoice or bill. The
// remote ledger derives the balancing receivable or payable line itself.
type InvoiceLine struct {
	Description string          `json:"description"`
	AccountID   int             `json:"account_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxID       int             `json:"tax_id,omitempty"`
}

// InvoiceDraft is an invoice or bill assembled locally, transient until
// submitted.
type InvoiceDraft struct {
	CompanyID int          `json:"company_id"`
	JournalID int          `json:"journal_id,omitempty"`
	Type      DocumentType `json:"type"` // out_invoice or in_invoice
	PartnerID int          `json:"partner_id"`
	Date      string       `json:"date"`
	DueDate   string       `json:"due_date,omitempty"`
	Reference string       `json:"reference,omitempty"`
	Lines     []InvoiceLine `json:"lines"`
}

// PostedLine is one enriched line of a posted document.
type PostedLine struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	AccountID   int             `json:"account_id"`
	AccountName string          `json:"account_name,omitempty"`
	PartnerName string          `json:"partner_name,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// PostedDocument is the enriched read-back of a document after posting, and
// also the shape returned for duplicate hits (Exists=true).
type PostedDocument struct {
	ID             int             `json:"id"`
	Number         string          `json:"number"`
	State          string          `json:"state"`
	Date           string          `json:"date"`
	Reference      string          `json:"reference,omitempty"`
	CompanyID      int             `json:"company_id,omitempty"`
	PartnerID      int             `json:"partner_id,omitempty"`
	PartnerName    string          `json:"partner_name,omitempty"`
	JournalName    string          `json:"journal_name,omitempty"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	AmountTotal    decimal.Decimal `json:"amount_total"`
	Lines          []PostedLine    `json:"line_items"`
	Exists         bool            `json:"exists"`
	AutoBalanced   bool            `json:"auto_balanced,omitempty"`
	RequiresReview bool            `json:"requires_review,omitempty"`

	// TaxResolutionWarnings carries named taxes that could not be matched and
	// were therefore not applied. The document is still valid without them.
	TaxResolutionWarnings []string `json:"tax_resolution_warnings,omitempty"`
}
