package core

import (
	"context"
	"log"

	"github.com/shopspring/decimal"
)

// balanceTolerance is the largest debit/credit difference still considered
// balanced, absorbing currency rounding.
var balanceTolerance = decimal.NewFromFloat(0.01)

// EntryBuilder assembles double-entry journal entries from resolved lines.
type EntryBuilder struct {
	accounts *AccountResolver

	// AutoBalance permits injecting a suspense line when totals disagree by
	// more than the tolerance. When false the builder refuses with an
	// ImbalanceError instead.
	AutoBalance bool
}

func NewEntryBuilder(accounts *AccountResolver) *EntryBuilder {
	return &EntryBuilder{accounts: accounts, AutoBalance: true}
}

// BuildResult is a constructed entry plus how balancing went.
type BuildResult struct {
	Entry        *JournalEntry
	AutoBalanced bool
	TotalDebit   decimal.Decimal
	TotalCredit  decimal.Decimal
}

// Build validates lines, totals them, and balances the entry. Each line must
// carry exactly one non-zero side and a resolved account. A difference within
// tolerance passes as-is; beyond it, a suspense line absorbs the difference
// when auto-balancing is on, otherwise the build fails with the numeric
// breakdown.
func (b *EntryBuilder) Build(ctx context.Context, entry *JournalEntry) (*BuildResult, error) {
	if len(entry.Lines) == 0 {
		return nil, &ValidationError{Field: "lines", Message: "at least one line is required"}
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, line := range entry.Lines {
		if line.AccountID == 0 {
			return nil, &ValidationError{Field: "lines", Message: "line has no resolved account"}
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return nil, &ValidationError{Field: "lines", Message: "amounts must not be negative"}
		}
		debitSet := !line.Debit.IsZero()
		creditSet := !line.Credit.IsZero()
		if debitSet == creditSet {
			return nil, &ValidationError{Field: "lines", Message: "each line must have exactly one of debit or credit"}
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}

	diff := totalDebit.Sub(totalCredit)
	result := &BuildResult{Entry: entry, TotalDebit: totalDebit, TotalCredit: totalCredit}
	if diff.Abs().LessThanOrEqual(balanceTolerance) {
		return result, nil
	}

	if !b.AutoBalance {
		return nil, &ImbalanceError{
			TotalDebit:  totalDebit,
			TotalCredit: totalCredit,
			Difference:  diff,
			Lines:       entry.Lines,
		}
	}

	suspense, err := b.accounts.FindSuspenseAccount(ctx, entry.CompanyID)
	if err != nil {
		return nil, &ImbalanceError{
			TotalDebit:  totalDebit,
			TotalCredit: totalCredit,
			Difference:  diff,
			Lines:       entry.Lines,
		}
	}

	line := LineItem{
		Description: "Auto-balancing difference",
		AccountID:   suspense.ID,
	}
	if diff.IsPositive() {
		line.Credit = diff
		result.TotalCredit = result.TotalCredit.Add(diff)
	} else {
		line.Debit = diff.Neg()
		result.TotalDebit = result.TotalDebit.Add(diff.Neg())
	}
	entry.Lines = append(entry.Lines, line)
	result.AutoBalanced = true
	log.Printf("entry auto-balanced with %s to suspense account %s (%s)",
		diff.Abs().StringFixed(2), suspense.Code, suspense.Name)
	return result, nil
}
