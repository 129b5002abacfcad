package core

import (
	"context"
	"log"
	"strings"

	"ledger-gateway/internal/ledger"
)

var accountFields = []string{"id", "code", "name", "account_type", "company_id", "active"}

// AccountResolver maps free-text account names and codes to concrete chart
// of accounts records within a company scope.
type AccountResolver struct {
	rpc   ledger.Client
	rules *MatchingRules
}

// NewAccountResolver constructs an AccountResolver using the given rule tables.
func NewAccountResolver(rpc ledger.Client, rules *MatchingRules) *AccountResolver {
	if rules == nil {
		rules = DefaultMatchingRules()
	}
	return &AccountResolver{rpc: rpc, rules: rules}
}

// ResolveAccount finds the account matching name and/or code for the company.
// At least one of name/code must be given. A miss is a
// ReferenceNotFoundError; callers must not proceed with a guessed account.
func (r *AccountResolver) ResolveAccount(ctx context.Context, name, code string, companyID int) (*LedgerAccount, error) {
	if name == "" && code == "" {
		return nil, &ValidationError{Field: "account", Message: "account name or code is required"}
	}

	candidates, err := r.AccountsForCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if acc := r.matchCascade(name, code, candidates); acc != nil {
		return acc, nil
	}

	// A code can point outside the company's visible candidate set, as with
	// shared charts. Try the direct code lookup before giving up.
	if code != "" {
		if acc, err := r.ResolveAccountByCode(ctx, code, companyID); err == nil {
			return acc, nil
		}
	}

	term := name
	if term == "" {
		term = code
	}
	return nil, &ReferenceNotFoundError{Kind: "account", Term: term}
}

// ResolveAccountByCode finds an account by exact code, preferring the
// company-scoped record and falling back to any active record with the code.
func (r *AccountResolver) ResolveAccountByCode(ctx context.Context, code string, companyID int) (*LedgerAccount, error) {
	records, err := r.rpc.SearchRead(ctx, "account.account",
		[]ledger.Condition{ledger.Eq("code", code), ledger.Eq("company_id", companyID)},
		accountFields, &ledger.SearchOpts{Limit: 1})
	if err != nil || len(records) == 0 {
		records, err = r.rpc.SearchRead(ctx, "account.account",
			[]ledger.Condition{ledger.Eq("code", code), ledger.Eq("active", true)},
			accountFields, &ledger.SearchOpts{Limit: 1})
		if err != nil {
			return nil, remoteErr("search account by code", err)
		}
	}
	if len(records) == 0 {
		return nil, &ReferenceNotFoundError{Kind: "account", Term: code}
	}
	acc := accountFromRecord(records[0])
	return &acc, nil
}

// AccountsForCompany returns the account set the company can use. Account
// visibility is not always company-scoped in the remote schema, so this is a
// capability query with fallbacks rather than a single filter: direct
// company scope, then accounts referenced by the company's journals and
// historical postings, then the full active set.
func (r *AccountResolver) AccountsForCompany(ctx context.Context, companyID int) ([]LedgerAccount, error) {
	records, err := r.rpc.SearchRead(ctx, "account.account",
		[]ledger.Condition{ledger.Eq("active", true), ledger.Eq("company_id", companyID)},
		accountFields, nil)
	if err == nil && len(records) > 0 {
		return accountsFromRecords(records), nil
	}
	if err != nil {
		log.Printf("account search by company %d failed, trying journal fallback: %v", companyID, err)
	}

	accounts, err := r.accountsViaJournals(ctx, companyID)
	if err == nil && len(accounts) > 0 {
		return accounts, nil
	}

	records, err = r.rpc.SearchRead(ctx, "account.account",
		[]ledger.Condition{ledger.Eq("active", true)},
		accountFields, &ledger.SearchOpts{Limit: 1000})
	if err != nil {
		return nil, remoteErr("search accounts", err)
	}
	return accountsFromRecords(records), nil
}

// accountsViaJournals derives the usable account set from the company's
// journals and the accounts its historical postings reference.
func (r *AccountResolver) accountsViaJournals(ctx context.Context, companyID int) ([]LedgerAccount, error) {
	journals, err := r.rpc.SearchRead(ctx, "account.journal",
		[]ledger.Condition{ledger.Eq("company_id", companyID)},
		[]string{"id", "name"}, nil)
	if err != nil || len(journals) == 0 {
		return nil, err
	}

	journalIDs := make([]int, 0, len(journals))
	for _, j := range journals {
		journalIDs = append(journalIDs, j.Int("id"))
	}

	lines, err := r.rpc.SearchRead(ctx, "account.move.line",
		[]ledger.Condition{ledger.In("journal_id", journalIDs)},
		[]string{"account_id"}, &ledger.SearchOpts{Limit: 2000})
	if err != nil || len(lines) == 0 {
		return nil, err
	}

	seen := map[int]bool{}
	var accountIDs []int
	for _, line := range lines {
		if id, _ := line.Many2One("account_id"); id != 0 && !seen[id] {
			seen[id] = true
			accountIDs = append(accountIDs, id)
		}
	}
	if len(accountIDs) == 0 {
		return nil, nil
	}

	records, err := r.rpc.SearchRead(ctx, "account.account",
		[]ledger.Condition{ledger.In("id", accountIDs), ledger.Eq("active", true)},
		accountFields, nil)
	if err != nil {
		return nil, err
	}
	return accountsFromRecords(records), nil
}

// matchCascade applies the prioritized match strategy over an in-memory
// candidate set. First hit wins; an exact name match always beats a
// substring or keyword match regardless of candidate ordering.
func (r *AccountResolver) matchCascade(name, code string, candidates []LedgerAccount) *LedgerAccount {
	// 1. Exact case-sensitive name match.
	if name != "" {
		for i := range candidates {
			if candidates[i].Name == name {
				return &candidates[i]
			}
		}
	}

	// 2. Exact code match.
	if code != "" {
		for i := range candidates {
			if candidates[i].Code == code {
				return &candidates[i]
			}
		}
	}

	if name == "" {
		return nil
	}
	lower := strings.ToLower(name)

	// 3. Case-insensitive exact name match.
	for i := range candidates {
		if strings.ToLower(candidates[i].Name) == lower {
			return &candidates[i]
		}
	}

	// 4. Substring match, both directions.
	for i := range candidates {
		cand := strings.ToLower(candidates[i].Name)
		if strings.Contains(cand, lower) || strings.Contains(lower, cand) {
			return &candidates[i]
		}
	}

	// 5. Known label variations, then synonym expansion.
	for _, variant := range r.rules.Variations[name] {
		for i := range candidates {
			if strings.EqualFold(candidates[i].Name, variant) {
				return &candidates[i]
			}
		}
	}
	for _, variant := range r.rules.expandSynonyms(name) {
		vLower := strings.ToLower(variant)
		for i := range candidates {
			cand := strings.ToLower(candidates[i].Name)
			if cand == vLower || strings.Contains(cand, vLower) {
				return &candidates[i]
			}
		}
	}

	// 6. Keyword match on words of four or more characters.
	for _, word := range strings.Fields(lower) {
		if len(word) < 4 {
			continue
		}
		for i := range candidates {
			if strings.Contains(strings.ToLower(candidates[i].Name), word) {
				return &candidates[i]
			}
		}
	}

	// 7. Category patterns.
	for phrase, keywords := range r.rules.Categories {
		if !strings.Contains(lower, phrase) && phrase != lower {
			continue
		}
		for _, kw := range keywords {
			for i := range candidates {
				if strings.Contains(strings.ToLower(candidates[i].Name), kw) {
					return &candidates[i]
				}
			}
		}
	}

	return nil
}

// FindDefaultAccount returns the first active account of the given type
// within the company's account set.
func (r *AccountResolver) FindDefaultAccount(ctx context.Context, accountType string, companyID int) (*LedgerAccount, error) {
	candidates, err := r.AccountsForCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if candidates[i].Type == accountType {
			return &candidates[i], nil
		}
	}
	// Loosen to a type-prefix match ("asset_cash" etc. under "asset").
	for i := range candidates {
		if strings.HasPrefix(candidates[i].Type, accountType) {
			return &candidates[i], nil
		}
	}
	return nil, &ReferenceNotFoundError{Kind: "account", Term: accountType}
}

const (
	suspenseAccountCode = "1260"
	suspenseAccountName = "Suspense account"
)

// FindSuspenseAccount locates the designated holding account used to
// force-balance entries: fixed code first, then fixed name, then the
// capability fallback through the company's account set.
func (r *AccountResolver) FindSuspenseAccount(ctx context.Context, companyID int) (*LedgerAccount, error) {
	candidates, err := r.AccountsForCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if candidates[i].Code == suspenseAccountCode {
			return &candidates[i], nil
		}
	}
	for i := range candidates {
		if strings.EqualFold(candidates[i].Name, suspenseAccountName) {
			return &candidates[i], nil
		}
	}
	for i := range candidates {
		if strings.Contains(strings.ToLower(candidates[i].Name), "suspense") {
			return &candidates[i], nil
		}
	}
	return nil, &ReferenceNotFoundError{Kind: "account", Term: suspenseAccountName}
}

func accountFromRecord(rec ledger.Record) LedgerAccount {
	companyID := rec.Int("company_id")
	if companyID == 0 {
		companyID, _ = rec.Many2One("company_id")
	}
	return LedgerAccount{
		ID:        rec.Int("id"),
		Code:      rec.Str("code"),
		Name:      rec.Str("name"),
		Type:      rec.Str("account_type"),
		CompanyID: companyID,
		Active:    rec.Bool("active"),
	}
}

func accountsFromRecords(records []ledger.Record) []LedgerAccount {
	out := make([]LedgerAccount, 0, len(records))
	for _, rec := range records {
		out = append(out, accountFromRecord(rec))
	}
	return out
}
