package core

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"ledger-gateway/internal/ledger"
)

// CompanyResolver maps a company reference (numeric ID or name, possibly
// misspelled) to the remote company record. Companies are never created here.
type CompanyResolver struct {
	rpc ledger.Client
}

func NewCompanyResolver(rpc ledger.Client) *CompanyResolver {
	return &CompanyResolver{rpc: rpc}
}

// ResolveCompany finds the company for ref: numeric ID, exact name,
// case-insensitive substring, then fuzzy over all companies. An empty ref
// resolves to the only company when exactly one exists.
func (r *CompanyResolver) ResolveCompany(ctx context.Context, ref string) (*Company, error) {
	ref = strings.TrimSpace(ref)
	fields := []string{"id", "name", "country_id"}

	if ref == "" {
		records, err := r.rpc.SearchRead(ctx, "res.company", nil, fields, &ledger.SearchOpts{Limit: 2})
		if err != nil {
			return nil, remoteErr("search companies", err)
		}
		if len(records) == 1 {
			return companyFromRecord(records[0]), nil
		}
		return nil, &ValidationError{Field: "company", Message: "company is required when multiple companies exist"}
	}

	if id, err := strconv.Atoi(ref); err == nil {
		records, err := r.rpc.Read(ctx, "res.company", []int{id}, fields)
		if err != nil {
			return nil, remoteErr("read company", err)
		}
		if len(records) == 0 {
			return nil, &ReferenceNotFoundError{Kind: "company", Term: ref}
		}
		return companyFromRecord(records[0]), nil
	}

	records, err := r.rpc.SearchRead(ctx, "res.company",
		[]ledger.Condition{ledger.Eq("name", ref)}, fields, &ledger.SearchOpts{Limit: 1})
	if err != nil {
		return nil, remoteErr("search company", err)
	}
	if len(records) > 0 {
		return companyFromRecord(records[0]), nil
	}

	records, err = r.rpc.SearchRead(ctx, "res.company",
		[]ledger.Condition{ledger.ILike("name", ref)}, fields, &ledger.SearchOpts{Limit: 1})
	if err != nil {
		return nil, remoteErr("search company", err)
	}
	if len(records) > 0 {
		return companyFromRecord(records[0]), nil
	}

	// Fuzzy pass over the full company list; the list is small.
	records, err = r.rpc.SearchRead(ctx, "res.company", nil, fields, nil)
	if err != nil {
		return nil, remoteErr("search companies", err)
	}
	var best *Company
	bestScore := 0.0
	for _, rec := range records {
		score := NameSimilarity(ref, rec.Str("name"))
		if score >= fuzzyMatchThreshold && score > bestScore {
			best = companyFromRecord(rec)
			bestScore = score
		}
	}
	if best != nil {
		return best, nil
	}
	return nil, &ReferenceNotFoundError{Kind: "company", Term: ref}
}

func companyFromRecord(rec ledger.Record) *Company {
	countryID, _ := rec.Many2One("country_id")
	return &Company{
		ID:        rec.Int("id"),
		Name:      rec.Str("name"),
		CountryID: countryID,
	}
}

// JournalResolver finds the posting journal for a document, creating a
// general journal when the company has none.
type JournalResolver struct {
	rpc ledger.Client
}

func NewJournalResolver(rpc ledger.Client) *JournalResolver {
	return &JournalResolver{rpc: rpc}
}

var journalFields = []string{"id", "name", "code", "type", "company_id"}

// JournalFor returns the company's first journal of the given type
// ("sale", "purchase", "general", "bank").
func (r *JournalResolver) JournalFor(ctx context.Context, journalType string, companyID int) (*Journal, error) {
	records, err := r.rpc.SearchRead(ctx, "account.journal",
		[]ledger.Condition{ledger.Eq("type", journalType), ledger.Eq("company_id", companyID)},
		journalFields, &ledger.SearchOpts{Limit: 1})
	if err != nil {
		return nil, remoteErr("search journal", err)
	}
	if len(records) == 0 {
		return nil, &ReferenceNotFoundError{Kind: "journal", Term: journalType}
	}
	return journalFromRecord(records[0]), nil
}

// EnsureGeneralJournal returns the company's general journal, creating a
// miscellaneous one when none exists.
func (r *JournalResolver) EnsureGeneralJournal(ctx context.Context, companyID int) (*Journal, error) {
	journal, err := r.JournalFor(ctx, "general", companyID)
	if err == nil {
		return journal, nil
	}
	var notFound *ReferenceNotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}

	values := map[string]any{
		"name": "Miscellaneous Operations",
		"code": "MISC",
		"type": "general",
	}
	if companyID != 0 {
		values["company_id"] = companyID
	}
	id, err := r.rpc.Create(ctx, "account.journal", values)
	if err != nil {
		return nil, remoteErr("create journal", err)
	}
	return &Journal{ID: id, Name: "Miscellaneous Operations", Code: "MISC", Type: "general", CompanyID: companyID}, nil
}

func journalFromRecord(rec ledger.Record) *Journal {
	companyID, _ := rec.Many2One("company_id")
	if companyID == 0 {
		companyID = rec.Int("company_id")
	}
	return &Journal{
		ID:        rec.Int("id"),
		Name:      rec.Str("name"),
		Code:      rec.Str("code"),
		Type:      rec.Str("type"),
		CompanyID: companyID,
	}
}
