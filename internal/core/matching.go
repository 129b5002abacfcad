package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MatchingRules are the term-substitution tables used by the account match
// cascade. They are data, not code: operators can audit or override them via
// a YAML file without touching the resolver.
type MatchingRules struct {
	// Synonyms maps a canonical business term to interchangeable variants.
	// Expansion is symmetric: a search term matching any member of a group
	// is retried under every other member.
	Synonyms map[string][]string `yaml:"synonyms"`

	// Variations maps an exact source line label to known chart-of-accounts
	// spellings, e.g. payroll extraction labels to ledger account names.
	Variations map[string][]string `yaml:"variations"`

	// Categories maps a common business phrase to related keywords tried as
	// a last resort before giving up.
	Categories map[string][]string `yaml:"categories"`
}

// DefaultMatchingRules returns the compiled-in rule tables.
func DefaultMatchingRules() *MatchingRules {
	return &MatchingRules{
		Synonyms: map[string][]string{
			"sales":   {"Sales", "Sales Revenue", "Revenue", "Income"},
			"fees":    {"fee", "fees"},
			"wages":   {"Wages", "Salaries", "Gross wages"},
			"bank":    {"Bank", "Bank account", "Current account"},
			"vat":     {"VAT", "VAT control account", "Tax payable"},
			"payable": {"Accounts payable", "Creditors", "Trade creditors"},
		},
		Variations: map[string][]string{
			"Gross wages":   {"Wages", "Salaries", "Gross Salaries", "Employee Salaries"},
			"Staff bonus":   {"Bonuses", "Employee Bonuses", "Staff Bonuses"},
			"Employers n.i.": {
				"Employer NI", "Employer National Insurance",
				"Employer Social Insurance", "Social Insurance - Employer",
			},
			"PAYE/NIC":   {"PAYE", "NIC", "Social Insurance Payable", "Payroll Taxes Payable"},
			"Net wages":  {"Wages Payable", "Salaries Payable", "Net Salaries Payable"},
			"Income Tax": {"Income Tax Payable", "PAYE Payable", "Tax Payable"},
			"Traveling":  {"Travel", "Travel Allowance", "Travelling Allowance"},
		},
		Categories: map[string][]string{
			"sales revenue":      {"sales", "revenue", "income", "turnover"},
			"consulting revenue": {"consulting", "consultancy", "advisory", "services"},
			"professional fees":  {"legal", "audit", "accountancy", "professional"},
			"office costs":       {"rent", "utilities", "stationery", "office"},
			"staff costs":        {"wages", "salaries", "payroll", "bonus"},
		},
	}
}

// LoadMatchingRules reads rule tables from a YAML file. Sections absent from
// the file keep their defaults, so an override file can adjust one table
// without restating the others.
func LoadMatchingRules(path string) (*MatchingRules, error) {
	rules := DefaultMatchingRules()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read matching rules: %w", err)
	}
	var override MatchingRules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse matching rules %s: %w", path, err)
	}
	if len(override.Synonyms) > 0 {
		rules.Synonyms = override.Synonyms
	}
	if len(override.Variations) > 0 {
		rules.Variations = override.Variations
	}
	if len(override.Categories) > 0 {
		rules.Categories = override.Categories
	}
	return rules, nil
}

// expandSynonyms returns every variant the term participates in, excluding
// the term itself.
func (m *MatchingRules) expandSynonyms(term string) []string {
	var out []string
	for _, group := range m.Synonyms {
		inGroup := false
		for _, v := range group {
			if strings.EqualFold(v, term) {
				inGroup = true
				break
			}
		}
		if !inGroup {
			continue
		}
		for _, v := range group {
			if !strings.EqualFold(v, term) {
				out = append(out, v)
			}
		}
	}
	return out
}
