package core

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestBuildBalancedEntry(t *testing.T) {
	fake := newFakeLedger()
	companyID := fake.seedCompany("Acme Ltd")
	builder := NewEntryBuilder(NewAccountResolver(fake, nil))

	entry := &JournalEntry{
		CompanyID: companyID,
		Type:      DocJournalEntry,
		Date:      "2025-06-30",
		Lines: []LineItem{
			{Description: "Wages", AccountID: 1, Debit: dec("1000.00")},
			{Description: "Bank", AccountID: 2, Credit: dec("1000.00")},
		},
	}
	result, err := builder.Build(context.Background(), entry)
	if err != nil {
		t.Fatal(err)
	}
	if result.AutoBalanced {
		t.Error("balanced entry should not be auto-balanced")
	}
	if len(entry.Lines) != 2 {
		t.Errorf("no line should be added, got %d", len(entry.Lines))
	}
}

func TestBuildToleratesRoundingGap(t *testing.T) {
	fake := newFakeLedger()
	companyID := fake.seedCompany("Acme Ltd")
	builder := NewEntryBuilder(NewAccountResolver(fake, nil))

	entry := &JournalEntry{
		CompanyID: companyID,
		Lines: []LineItem{
			{Description: "a", AccountID: 1, Debit: dec("100.00")},
			{Description: "b", AccountID: 2, Credit: dec("99.99")},
		},
	}
	result, err := builder.Build(context.Background(), entry)
	if err != nil {
		t.Fatal(err)
	}
	if result.AutoBalanced || len(entry.Lines) != 2 {
		t.Error("a 0.01 gap is within tolerance and needs no suspense line")
	}
}

func TestBuildInjectsSuspenseLine(t *testing.T) {
	fake := newFakeLedger()
	companyID := fake.seedCompany("Acme Ltd")
	builder := NewEntryBuilder(NewAccountResolver(fake, nil))

	entry := &JournalEntry{
		CompanyID: companyID,
		Lines: []LineItem{
			{Description: "Gross wages", AccountID: 1, Debit: dec("1000.00")},
			{Description: "Net wages", AccountID: 2, Credit: dec("800.00")},
		},
	}
	result, err := builder.Build(context.Background(), entry)
	if err != nil {
		t.Fatal(err)
	}
	if !result.AutoBalanced {
		t.Fatal("expected auto-balancing")
	}
	if len(entry.Lines) != 3 {
		t.Fatalf("expected a suspense line, got %d lines", len(entry.Lines))
	}
	suspense := entry.Lines[2]
	if !suspense.Credit.Equal(dec("200.00")) {
		t.Errorf("suspense credit = %s, want 200.00", suspense.Credit)
	}
	if !result.TotalDebit.Equal(result.TotalCredit) {
		t.Errorf("totals still unbalanced: %s vs %s", result.TotalDebit, result.TotalCredit)
	}
}

func TestBuildSuspenseOnDebitSide(t *testing.T) {
	fake := newFakeLedger()
	companyID := fake.seedCompany("Acme Ltd")
	builder := NewEntryBuilder(NewAccountResolver(fake, nil))

	entry := &JournalEntry{
		CompanyID: companyID,
		Lines: []LineItem{
			{Description: "a", AccountID: 1, Debit: dec("500.00")},
			{Description: "b", AccountID: 2, Credit: dec("700.00")},
		},
	}
	result, err := builder.Build(context.Background(), entry)
	if err != nil {
		t.Fatal(err)
	}
	if !result.AutoBalanced {
		t.Fatal("expected auto-balancing")
	}
	if !entry.Lines[2].Debit.Equal(dec("200.00")) {
		t.Errorf("suspense debit = %s, want 200.00", entry.Lines[2].Debit)
	}
}

func TestBuildRefusesImbalanceWhenAutoBalanceOff(t *testing.T) {
	fake := newFakeLedger()
	companyID := fake.seedCompany("Acme Ltd")
	builder := NewEntryBuilder(NewAccountResolver(fake, nil))
	builder.AutoBalance = false

	entry := &JournalEntry{
		CompanyID: companyID,
		Lines: []LineItem{
			{Description: "a", AccountID: 1, Debit: dec("1000.00")},
			{Description: "b", AccountID: 2, Credit: dec("800.00")},
		},
	}
	_, err := builder.Build(context.Background(), entry)
	var imbalance *ImbalanceError
	if !errors.As(err, &imbalance) {
		t.Fatalf("expected ImbalanceError, got %v", err)
	}
	if !imbalance.Difference.Equal(dec("200.00")) {
		t.Errorf("difference = %s, want 200.00", imbalance.Difference)
	}
}

func TestBuildRejectsTwoSidedLine(t *testing.T) {
	builder := NewEntryBuilder(NewAccountResolver(newFakeLedger(), nil))

	cases := []LineItem{
		{Description: "both sides", AccountID: 1, Debit: dec("10"), Credit: dec("10")},
		{Description: "no sides", AccountID: 1},
		{Description: "negative", AccountID: 1, Debit: dec("-5")},
		{Description: "no account", Debit: dec("10")},
	}
	for _, line := range cases {
		entry := &JournalEntry{CompanyID: 1, Lines: []LineItem{line}}
		_, err := builder.Build(context.Background(), entry)
		var validation *ValidationError
		if !errors.As(err, &validation) {
			t.Errorf("line %q: expected ValidationError, got %v", line.Description, err)
		}
	}
}

func TestBuildFailsWhenNoSuspenseAccountExists(t *testing.T) {
	fake := newFakeLedger() // no accounts at all
	builder := NewEntryBuilder(NewAccountResolver(fake, nil))

	entry := &JournalEntry{
		CompanyID: 1,
		Lines: []LineItem{
			{Description: "a", AccountID: 1, Debit: dec("100")},
			{Description: "b", AccountID: 2, Credit: dec("50")},
		},
	}
	_, err := builder.Build(context.Background(), entry)
	var imbalance *ImbalanceError
	if !errors.As(err, &imbalance) {
		t.Fatalf("expected ImbalanceError when suspense is unavailable, got %v", err)
	}
}
