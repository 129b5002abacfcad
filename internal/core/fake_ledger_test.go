package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ledger-gateway/internal/ledger"
)

// fakeLedger is an in-memory ledger.Client for tests. Records live in
// per-model tables; many-to-one fields are stored as [id, name] pairs, the
// same shape the wire client produces.
type fakeLedger struct {
	mu     sync.Mutex
	tables map[string][]ledger.Record
	nextID map[string]int

	// createErr fails Create for a model.
	createErr map[string]error
	// searchErr fails SearchRead for a model.
	searchErr map[string]error
	// postErr fails the action_post Exec call.
	postErr error
	// postStalls makes action_post report success while leaving drafts in
	// draft state.
	postStalls bool
	// createdHidden hides freshly created account records from Read for the
	// first n attempts, simulating read-after-write lag.
	hiddenReads map[int]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		tables:      map[string][]ledger.Record{},
		nextID:      map[string]int{},
		createErr:   map[string]error{},
		searchErr:   map[string]error{},
		hiddenReads: map[int]int{},
	}
}

// add inserts a record, assigning an ID when none is set, and returns the ID.
func (f *fakeLedger) add(model string, rec ledger.Record) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := rec.Int("id")
	if id == 0 {
		f.nextID[model]++
		id = f.nextID[model]
		rec["id"] = float64(id)
	} else if id > f.nextID[model] {
		f.nextID[model] = id
	}
	f.tables[model] = append(f.tables[model], rec)
	return id
}

func m2o(id int, name string) []any { return []any{float64(id), name} }

func (f *fakeLedger) SearchRead(ctx context.Context, model string, domain []ledger.Condition, fields []string, opts *ledger.SearchOpts) ([]ledger.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.searchErr[model]; err != nil {
		return nil, err
	}
	var out []ledger.Record
	for _, rec := range f.tables[model] {
		if matchesDomain(rec, domain) {
			out = append(out, rec)
			if opts != nil && opts.Limit > 0 && len(out) >= opts.Limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeLedger) SearchCount(ctx context.Context, model string, domain []ledger.Condition) (int, error) {
	records, err := f.SearchRead(ctx, model, domain, nil, nil)
	return len(records), err
}

func (f *fakeLedger) Read(ctx context.Context, model string, ids []int, fields []string) ([]ledger.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ledger.Record
	for _, rec := range f.tables[model] {
		for _, id := range ids {
			if rec.Int("id") != id {
				continue
			}
			if remaining := f.hiddenReads[id]; remaining > 0 {
				f.hiddenReads[id] = remaining - 1
				continue
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeLedger) Create(ctx context.Context, model string, values map[string]any) (int, error) {
	if err := f.createErr[model]; err != nil {
		return 0, err
	}
	rec := ledger.Record{}
	for k, v := range values {
		rec[k] = v
	}
	if model == "account.move" {
		rec["state"] = "draft"
	}
	id := f.add(model, rec)
	if model == "account.move" {
		f.mu.Lock()
		rec["name"] = fmt.Sprintf("DOC/%04d", id)
		f.mu.Unlock()
	}
	return id, nil
}

func (f *fakeLedger) Write(ctx context.Context, model string, ids []int, values map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.tables[model] {
		for _, id := range ids {
			if rec.Int("id") == id {
				for k, v := range values {
					rec[k] = v
				}
			}
		}
	}
	return nil
}

func (f *fakeLedger) Exec(ctx context.Context, model, method string, ids []int) error {
	if model == "account.move" && method == "action_post" {
		if f.postErr != nil {
			return f.postErr
		}
		if f.postStalls {
			return nil
		}
		return f.Write(ctx, model, ids, map[string]any{"state": "posted"})
	}
	if model == "account.move" && method == "button_draft" {
		return f.Write(ctx, model, ids, map[string]any{"state": "draft"})
	}
	return nil
}

func matchesDomain(rec ledger.Record, domain []ledger.Condition) bool {
	for _, c := range domain {
		if !matchesCondition(rec, c) {
			return false
		}
	}
	return true
}

func matchesCondition(rec ledger.Record, c ledger.Condition) bool {
	v := rec[c.Field]
	switch c.Op {
	case "=":
		return valueEq(v, c.Value)
	case "!=":
		return !valueEq(v, c.Value)
	case "ilike":
		want, _ := c.Value.(string)
		got, _ := v.(string)
		return strings.Contains(strings.ToLower(got), strings.ToLower(want))
	case "in":
		ids, _ := c.Value.([]int)
		for _, id := range ids {
			if valueEq(v, id) {
				return true
			}
		}
		return false
	case ">":
		a, aok := toFloat(v)
		b, bok := toFloat(c.Value)
		return aok && bok && a > b
	}
	return false
}

// valueEq compares a stored value against a condition value, unwrapping
// [id, name] reference pairs to their ID.
func valueEq(stored, want any) bool {
	if pair, ok := stored.([]any); ok && len(pair) == 2 {
		stored = pair[0]
	}
	if sa, ok := stored.(string); ok {
		if sb, ok := want.(string); ok {
			return sa == sb
		}
		return false
	}
	if ba, ok := stored.(bool); ok {
		bb, ok := want.(bool)
		return ok && ba == bb
	}
	a, aok := toFloat(stored)
	b, bok := toFloat(want)
	return aok && bok && a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// seedCompany adds a company with a standard chart of accounts, journals,
// and a suspense account, returning the company ID.
func (f *fakeLedger) seedCompany(name string) int {
	companyID := f.add("res.company", ledger.Record{"name": name})
	accounts := []struct {
		code, name, accType string
	}{
		{"1200", "Bank", "asset_cash"},
		{"1260", "Suspense account", "asset_current"},
		{"2100", "Accounts payable", "liability_payable"},
		{"2210", "PAYE", "liability_current"},
		{"2211", "Wages Payable", "liability_current"},
		{"4000", "Sales", "income"},
		{"7000", "Gross wages", "expense"},
		{"7006", "Employer NI", "expense"},
		{"7400", "Travel", "expense"},
	}
	for _, a := range accounts {
		f.add("account.account", ledger.Record{
			"code": a.code, "name": a.name, "account_type": a.accType,
			"company_id": m2o(companyID, name), "active": true,
		})
	}
	for _, j := range []struct{ name, code, jtype string }{
		{"Customer Invoices", "INV", "sale"},
		{"Vendor Bills", "BILL", "purchase"},
		{"Miscellaneous Operations", "MISC", "general"},
	} {
		f.add("account.journal", ledger.Record{
			"name": j.name, "code": j.code, "type": j.jtype,
			"company_id": m2o(companyID, name),
		})
	}
	return companyID
}
