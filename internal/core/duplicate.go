package core

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"ledger-gateway/internal/ledger"
)

// amountTolerance is how far two document totals may differ and still count
// as the same amount for duplicate detection.
var amountTolerance = decimal.NewFromFloat(0.01)

var payrollKeywords = []string{"payroll", "salary", "salaries", "wages"}

// DuplicateGuard checks for an already-posted document before creating a new
// one. Matching is deliberately conservative: a hit needs the same document
// type, company, and date, plus a reference or keyword match, and when an
// expected amount is known the totals must agree within tolerance.
type DuplicateGuard struct {
	rpc ledger.Client
}

func NewDuplicateGuard(rpc ledger.Client) *DuplicateGuard {
	return &DuplicateGuard{rpc: rpc}
}

// DuplicateQuery describes the document about to be created.
type DuplicateQuery struct {
	Type      DocumentType
	CompanyID int
	Date      string // YYYY-MM-DD
	Reference string
	PartnerID int

	// Amount is the expected total; zero means "don't check the amount".
	Amount decimal.Decimal

	// PayrollPeriod turns on keyword matching against ref and narration for
	// payroll entries posted without a stable reference.
	PayrollPeriod string
}

// FindExisting returns the matching posted document, or nil when the ledger
// holds nothing comparable.
func (g *DuplicateGuard) FindExisting(ctx context.Context, q DuplicateQuery) (*PostedDocument, error) {
	domain := []ledger.Condition{
		ledger.Eq("move_type", string(q.Type)),
		ledger.Eq("date", q.Date),
		ledger.Neq("state", "cancel"),
	}
	if q.CompanyID != 0 {
		domain = append(domain, ledger.Eq("company_id", q.CompanyID))
	}
	if q.PartnerID != 0 {
		domain = append(domain, ledger.Eq("partner_id", q.PartnerID))
	}

	fields := []string{"id", "name", "ref", "state", "date", "amount_total", "amount_untaxed", "narration", "partner_id", "journal_id"}
	records, err := g.rpc.SearchRead(ctx, "account.move", domain, fields, &ledger.SearchOpts{Limit: 50})
	if err != nil {
		return nil, remoteErr("search for duplicates", err)
	}

	for _, rec := range records {
		if !g.matches(rec, q) {
			continue
		}
		doc := postedFromMoveRecord(rec)
		doc.Exists = true
		return doc, nil
	}
	return nil, nil
}

func (g *DuplicateGuard) matches(rec ledger.Record, q DuplicateQuery) bool {
	refMatch := q.Reference != "" && strings.EqualFold(rec.Str("ref"), q.Reference)

	keywordMatch := false
	if q.PayrollPeriod != "" {
		text := strings.ToLower(rec.Str("ref") + " " + rec.Str("narration") + " " + rec.Str("name"))
		for _, kw := range payrollKeywords {
			if strings.Contains(text, kw) {
				keywordMatch = true
				break
			}
		}
		if !keywordMatch && strings.Contains(text, strings.ToLower(q.PayrollPeriod)) {
			keywordMatch = true
		}
	}

	if !refMatch && !keywordMatch {
		return false
	}
	if !q.Amount.IsZero() {
		total := rec.Decimal("amount_total")
		// Invoice and bill line totals are net of tax, but the ledger stores a
		// tax-inclusive amount_total. Compare against the untaxed total when
		// the record carries one, so taxed documents still dedupe.
		if q.Type != DocJournalEntry {
			if untaxed := rec.Decimal("amount_untaxed"); !untaxed.IsZero() {
				total = untaxed
			}
		}
		if total.Sub(q.Amount).Abs().GreaterThan(amountTolerance) {
			return false
		}
	}
	return true
}

func postedFromMoveRecord(rec ledger.Record) *PostedDocument {
	partnerID, partnerName := rec.Many2One("partner_id")
	_, journalName := rec.Many2One("journal_id")
	return &PostedDocument{
		ID:          rec.Int("id"),
		Number:      rec.Str("name"),
		State:       rec.Str("state"),
		Date:        rec.Str("date"),
		Reference:   rec.Str("ref"),
		PartnerID:   partnerID,
		PartnerName: partnerName,
		JournalName: journalName,
		AmountTotal: rec.Decimal("amount_total"),
	}
}
