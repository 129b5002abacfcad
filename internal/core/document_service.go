package core

import (
	"context"
	"fmt"
	"log"

	"ledger-gateway/internal/ledger"
)

// DocumentService creates, posts, and reads back ledger documents. The create
// and post steps are separate remote calls with no transaction spanning them,
// so a post failure after a successful create is reported as a
// PartialPostFailure carrying the orphaned draft's ID.
type DocumentService struct {
	rpc ledger.Client
}

func NewDocumentService(rpc ledger.Client) *DocumentService {
	return &DocumentService{rpc: rpc}
}

// CreateAndPost writes the entry to the ledger as a draft, posts it, and
// verifies the resulting state. The returned document is enriched from a
// read-back when possible.
func (s *DocumentService) CreateAndPost(ctx context.Context, entry *JournalEntry) (*PostedDocument, error) {
	values := moveValues(entry)
	id, err := s.rpc.Create(ctx, "account.move", values)
	if err != nil {
		return nil, remoteErr("create document", err)
	}
	log.Printf("created %s draft %d (company %d, date %s)", entry.Type, id, entry.CompanyID, entry.Date)

	if err := s.Post(ctx, id); err != nil {
		return nil, err
	}

	doc, err := s.Enrich(ctx, id)
	if err != nil {
		// The document is posted; enrichment is best-effort.
		log.Printf("posted document %d but read-back failed: %v", id, err)
		return &PostedDocument{ID: id, State: "posted", Date: entry.Date, Reference: entry.Reference, CompanyID: entry.CompanyID}, nil
	}
	return doc, nil
}

// CreateAndPostInvoice writes an invoice or bill draft and posts it. The
// remote ledger derives the counterpart receivable or payable line and the
// tax lines from the product lines.
func (s *DocumentService) CreateAndPostInvoice(ctx context.Context, draft *InvoiceDraft) (*PostedDocument, error) {
	values := map[string]any{
		"move_type":    string(draft.Type),
		"invoice_date": draft.Date,
		"date":         draft.Date,
	}
	if draft.CompanyID != 0 {
		values["company_id"] = draft.CompanyID
	}
	if draft.JournalID != 0 {
		values["journal_id"] = draft.JournalID
	}
	if draft.PartnerID != 0 {
		values["partner_id"] = draft.PartnerID
	}
	if draft.Reference != "" {
		values["ref"] = draft.Reference
	}
	if draft.DueDate != "" {
		values["invoice_date_due"] = draft.DueDate
	}

	lineCommands := make([]any, 0, len(draft.Lines))
	for _, line := range draft.Lines {
		lv := map[string]any{
			"name":       line.Description,
			"quantity":   line.Quantity.InexactFloat64(),
			"price_unit": line.UnitPrice.InexactFloat64(),
		}
		if line.AccountID != 0 {
			lv["account_id"] = line.AccountID
		}
		if line.TaxID != 0 {
			lv["tax_ids"] = []any{[]any{6, 0, []int{line.TaxID}}}
		}
		lineCommands = append(lineCommands, []any{0, 0, lv})
	}
	values["invoice_line_ids"] = lineCommands

	id, err := s.rpc.Create(ctx, "account.move", values)
	if err != nil {
		return nil, remoteErr("create document", err)
	}
	log.Printf("created %s draft %d (company %d, date %s)", draft.Type, id, draft.CompanyID, draft.Date)

	if err := s.Post(ctx, id); err != nil {
		return nil, err
	}

	doc, err := s.Enrich(ctx, id)
	if err != nil {
		log.Printf("posted document %d but read-back failed: %v", id, err)
		return &PostedDocument{ID: id, State: "posted", Date: draft.Date, Reference: draft.Reference, CompanyID: draft.CompanyID}, nil
	}
	return doc, nil
}

// Post transitions a draft to posted and confirms the state actually changed.
// The remote call can return success while leaving the document in draft, so
// the state is always re-read.
func (s *DocumentService) Post(ctx context.Context, id int) error {
	if err := s.rpc.Exec(ctx, "account.move", "action_post", []int{id}); err != nil {
		state := s.readState(ctx, id)
		return &PartialPostFailure{DocumentID: id, State: state, Err: err}
	}

	state := s.readState(ctx, id)
	if state != "posted" {
		return &PartialPostFailure{
			DocumentID: id,
			State:      state,
			Err:        fmt.Errorf("post reported success but state is %q", state),
		}
	}
	return nil
}

// ResetToDraft reverts a posted document back to draft for correction.
func (s *DocumentService) ResetToDraft(ctx context.Context, id int) error {
	if err := s.rpc.Exec(ctx, "account.move", "button_draft", []int{id}); err != nil {
		return remoteErr("reset to draft", err)
	}
	return nil
}

// Enrich reads back a document and its lines for presentation.
func (s *DocumentService) Enrich(ctx context.Context, id int) (*PostedDocument, error) {
	moves, err := s.rpc.Read(ctx, "account.move", []int{id},
		[]string{"id", "name", "ref", "state", "date", "amount_total", "partner_id", "journal_id", "company_id", "line_ids"})
	if err != nil {
		return nil, remoteErr("read document", err)
	}
	if len(moves) == 0 {
		return nil, &ReferenceNotFoundError{Kind: "document", Term: fmt.Sprintf("%d", id)}
	}
	doc := postedFromMoveRecord(moves[0])
	if companyID, _ := moves[0].Many2One("company_id"); companyID != 0 {
		doc.CompanyID = companyID
	}

	lines, err := s.rpc.SearchRead(ctx, "account.move.line",
		[]ledger.Condition{ledger.Eq("move_id", id)},
		[]string{"id", "name", "account_id", "partner_id", "debit", "credit"}, nil)
	if err != nil {
		// Lines are presentation detail; the header already confirms posting.
		log.Printf("read lines for document %d failed: %v", id, err)
		return doc, nil
	}

	for _, rec := range lines {
		accountID, accountName := rec.Many2One("account_id")
		_, partnerName := rec.Many2One("partner_id")
		line := PostedLine{
			ID:          rec.Int("id"),
			Name:        rec.Str("name"),
			AccountID:   accountID,
			AccountName: accountName,
			PartnerName: partnerName,
			Debit:       rec.Decimal("debit"),
			Credit:      rec.Decimal("credit"),
		}
		doc.TotalDebit = doc.TotalDebit.Add(line.Debit)
		doc.TotalCredit = doc.TotalCredit.Add(line.Credit)
		doc.Lines = append(doc.Lines, line)
	}
	return doc, nil
}

func (s *DocumentService) readState(ctx context.Context, id int) string {
	records, err := s.rpc.Read(ctx, "account.move", []int{id}, []string{"state"})
	if err != nil || len(records) == 0 {
		return "unknown"
	}
	return records[0].Str("state")
}

// moveValues renders a JournalEntry as the remote create payload, lines in
// one-to-many command form.
func moveValues(entry *JournalEntry) map[string]any {
	values := map[string]any{
		"move_type": string(entry.Type),
		"date":      entry.Date,
	}
	if entry.CompanyID != 0 {
		values["company_id"] = entry.CompanyID
	}
	if entry.JournalID != 0 {
		values["journal_id"] = entry.JournalID
	}
	if entry.Reference != "" {
		values["ref"] = entry.Reference
	}
	if entry.Narration != "" {
		values["narration"] = entry.Narration
	}
	if entry.PartnerID != 0 {
		values["partner_id"] = entry.PartnerID
	}
	if entry.Type != DocJournalEntry {
		values["invoice_date"] = entry.Date
	}

	lineCommands := make([]any, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		lv := map[string]any{
			"name":    line.Description,
			"debit":   line.Debit.InexactFloat64(),
			"credit":  line.Credit.InexactFloat64(),
		}
		if line.AccountID != 0 {
			lv["account_id"] = line.AccountID
		}
		if line.PartnerID != 0 {
			lv["partner_id"] = line.PartnerID
		}
		if line.TaxID != 0 {
			lv["tax_ids"] = []any{[]any{6, 0, []int{line.TaxID}}}
		}
		if line.TaxTagID != 0 {
			lv["tax_tag_ids"] = []any{[]any{6, 0, []int{line.TaxTagID}}}
		}
		lineCommands = append(lineCommands, []any{0, 0, lv})
	}
	values["line_ids"] = lineCommands
	return values
}
