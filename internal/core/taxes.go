package core

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"ledger-gateway/internal/ledger"
)

var taxFields = []string{"id", "name", "amount", "type_tax_use", "company_id"}

// TaxResolver matches named taxes and reporting tags against the remote tax
// configuration. Taxes are never created here; a miss is reported to the
// caller, who decides whether to fail or continue without the tax.
type TaxResolver struct {
	rpc ledger.Client
}

func NewTaxResolver(rpc ledger.Client) *TaxResolver {
	return &TaxResolver{rpc: rpc}
}

// ResolveTax finds a tax by name for the company and direction. Exact name
// first, then a case-insensitive substring search.
func (r *TaxResolver) ResolveTax(ctx context.Context, name string, companyID int, direction TaxDirection) (*TaxRecord, error) {
	if name == "" {
		return nil, &ValidationError{Field: "tax", Message: "tax name is required"}
	}

	domain := []ledger.Condition{ledger.Eq("name", name)}
	domain = append(domain, taxScope(companyID, direction)...)
	records, err := r.rpc.SearchRead(ctx, "account.tax", domain, taxFields, &ledger.SearchOpts{Limit: 1})
	if err != nil {
		return nil, remoteErr("search tax", err)
	}

	if len(records) == 0 {
		domain = []ledger.Condition{ledger.ILike("name", name)}
		domain = append(domain, taxScope(companyID, direction)...)
		records, err = r.rpc.SearchRead(ctx, "account.tax", domain, taxFields, &ledger.SearchOpts{Limit: 1})
		if err != nil {
			return nil, remoteErr("search tax", err)
		}
	}

	if len(records) == 0 {
		return nil, &ReferenceNotFoundError{Kind: "tax", Term: name}
	}
	return taxFromRecord(records[0]), nil
}

// ResolveTaxByRate finds a tax by percentage rate for the company and
// direction, e.g. rate 19 for a 19% VAT code.
func (r *TaxResolver) ResolveTaxByRate(ctx context.Context, rate decimal.Decimal, companyID int, direction TaxDirection) (*TaxRecord, error) {
	f, _ := rate.Float64()
	domain := []ledger.Condition{ledger.Eq("amount", f)}
	domain = append(domain, taxScope(companyID, direction)...)
	records, err := r.rpc.SearchRead(ctx, "account.tax", domain, taxFields, &ledger.SearchOpts{Limit: 1})
	if err != nil {
		return nil, remoteErr("search tax by rate", err)
	}
	if len(records) == 0 {
		return nil, &ReferenceNotFoundError{Kind: "tax", Term: rate.String() + "%"}
	}
	return taxFromRecord(records[0]), nil
}

// ResolveTaxTag finds a reporting grid tag by label ("+6", "-1"). Exact label
// within the jurisdiction first, then exact anywhere, then substring.
func (r *TaxResolver) ResolveTaxTag(ctx context.Context, label string, countryID int) (*TaxTag, error) {
	if label == "" {
		return nil, &ValidationError{Field: "tax_tag", Message: "tag label is required"}
	}
	tagFields := []string{"id", "name", "applicability", "country_id"}

	if countryID != 0 {
		records, err := r.rpc.SearchRead(ctx, "account.account.tag",
			[]ledger.Condition{ledger.Eq("name", label), ledger.Eq("applicability", "taxes"), ledger.Eq("country_id", countryID)},
			tagFields, &ledger.SearchOpts{Limit: 1})
		if err != nil {
			return nil, remoteErr("search tax tag", err)
		}
		if len(records) > 0 {
			return tagFromRecord(records[0]), nil
		}
	}

	records, err := r.rpc.SearchRead(ctx, "account.account.tag",
		[]ledger.Condition{ledger.Eq("name", label), ledger.Eq("applicability", "taxes")},
		tagFields, &ledger.SearchOpts{Limit: 1})
	if err != nil {
		return nil, remoteErr("search tax tag", err)
	}
	if len(records) == 0 {
		records, err = r.rpc.SearchRead(ctx, "account.account.tag",
			[]ledger.Condition{ledger.ILike("name", label), ledger.Eq("applicability", "taxes")},
			tagFields, &ledger.SearchOpts{Limit: 1})
		if err != nil {
			return nil, remoteErr("search tax tag", err)
		}
	}
	if len(records) == 0 {
		return nil, &ReferenceNotFoundError{Kind: "tax tag", Term: label}
	}
	return tagFromRecord(records[0]), nil
}

func taxScope(companyID int, direction TaxDirection) []ledger.Condition {
	var out []ledger.Condition
	if companyID != 0 {
		out = append(out, ledger.Eq("company_id", companyID))
	}
	if direction != "" {
		out = append(out, ledger.Eq("type_tax_use", string(direction)))
	}
	return out
}

func taxFromRecord(rec ledger.Record) *TaxRecord {
	companyID, _ := rec.Many2One("company_id")
	if companyID == 0 {
		companyID = rec.Int("company_id")
	}
	return &TaxRecord{
		ID:        rec.Int("id"),
		Name:      rec.Str("name"),
		Amount:    rec.Decimal("amount"),
		Direction: TaxDirection(strings.ToLower(rec.Str("type_tax_use"))),
		CompanyID: companyID,
	}
}

func tagFromRecord(rec ledger.Record) *TaxTag {
	countryID, _ := rec.Many2One("country_id")
	return &TaxTag{
		ID:            rec.Int("id"),
		Name:          rec.Str("name"),
		Applicability: rec.Str("applicability"),
		CountryID:     countryID,
	}
}
