package core

import (
	"context"
	"testing"

	"ledger-gateway/internal/ledger"
)

func TestFindExistingByReference(t *testing.T) {
	fake := newFakeLedger()
	fake.add("account.move", ledger.Record{
		"move_type": "out_invoice", "state": "posted", "date": "2025-06-01",
		"ref": "INV-100", "name": "INV/2025/0100", "amount_total": 1200.00,
		"company_id": m2o(1, "Acme"),
	})
	guard := NewDuplicateGuard(fake)

	doc, err := guard.FindExisting(context.Background(), DuplicateQuery{
		Type: DocInvoice, CompanyID: 1, Date: "2025-06-01",
		Reference: "INV-100", Amount: dec("1200.00"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if doc == nil {
		t.Fatal("expected a duplicate hit")
	}
	if !doc.Exists {
		t.Error("duplicate result must be flagged Exists")
	}
	if doc.Number != "INV/2025/0100" {
		t.Errorf("number = %q", doc.Number)
	}
}

func TestFindExistingTaxedInvoiceMatchesUntaxedTotal(t *testing.T) {
	fake := newFakeLedger()
	// 1000.00 net + 20% VAT, stored with a tax-inclusive amount_total.
	fake.add("account.move", ledger.Record{
		"move_type": "out_invoice", "state": "posted", "date": "2025-06-01",
		"ref": "INV-100", "name": "INV/2025/0100",
		"amount_total": 1200.00, "amount_untaxed": 1000.00,
		"company_id": m2o(1, "Acme"),
	})
	guard := NewDuplicateGuard(fake)

	// The caller only knows the net line total.
	doc, err := guard.FindExisting(context.Background(), DuplicateQuery{
		Type: DocInvoice, CompanyID: 1, Date: "2025-06-01",
		Reference: "INV-100", Amount: dec("1000.00"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if doc == nil {
		t.Fatal("a taxed invoice must still match on its untaxed total")
	}
	if doc.Number != "INV/2025/0100" {
		t.Errorf("number = %q", doc.Number)
	}
}

func TestFindExistingAmountOutsideTolerance(t *testing.T) {
	fake := newFakeLedger()
	fake.add("account.move", ledger.Record{
		"move_type": "out_invoice", "state": "posted", "date": "2025-06-01",
		"ref": "INV-100", "amount_total": 1200.00, "company_id": m2o(1, "Acme"),
	})
	guard := NewDuplicateGuard(fake)

	doc, err := guard.FindExisting(context.Background(), DuplicateQuery{
		Type: DocInvoice, CompanyID: 1, Date: "2025-06-01",
		Reference: "INV-100", Amount: dec("1200.05"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if doc != nil {
		t.Error("a 0.05 amount difference is a different document")
	}
}

func TestFindExistingIgnoresCancelled(t *testing.T) {
	fake := newFakeLedger()
	fake.add("account.move", ledger.Record{
		"move_type": "out_invoice", "state": "cancel", "date": "2025-06-01",
		"ref": "INV-100", "amount_total": 1200.00, "company_id": m2o(1, "Acme"),
	})
	guard := NewDuplicateGuard(fake)

	doc, err := guard.FindExisting(context.Background(), DuplicateQuery{
		Type: DocInvoice, CompanyID: 1, Date: "2025-06-01", Reference: "INV-100",
	})
	if err != nil {
		t.Fatal(err)
	}
	if doc != nil {
		t.Error("cancelled documents are not duplicates")
	}
}

func TestFindExistingPayrollByKeyword(t *testing.T) {
	fake := newFakeLedger()
	fake.add("account.move", ledger.Record{
		"move_type": "entry", "state": "posted", "date": "2025-06-30",
		"ref": "Monthly salaries June", "amount_total": 5400.00,
		"company_id": m2o(1, "Acme"),
	})
	guard := NewDuplicateGuard(fake)

	doc, err := guard.FindExisting(context.Background(), DuplicateQuery{
		Type: DocJournalEntry, CompanyID: 1, Date: "2025-06-30",
		Amount: dec("5400.00"), PayrollPeriod: "202506 - JUNE",
	})
	if err != nil {
		t.Fatal(err)
	}
	if doc == nil {
		t.Fatal("payroll keyword in the reference should count as a duplicate")
	}
}

func TestFindExistingNoReferenceNoKeyword(t *testing.T) {
	fake := newFakeLedger()
	fake.add("account.move", ledger.Record{
		"move_type": "entry", "state": "posted", "date": "2025-06-30",
		"ref": "Office rent June", "amount_total": 5400.00, "company_id": m2o(1, "Acme"),
	})
	guard := NewDuplicateGuard(fake)

	doc, err := guard.FindExisting(context.Background(), DuplicateQuery{
		Type: DocJournalEntry, CompanyID: 1, Date: "2025-06-30", Amount: dec("5400.00"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if doc != nil {
		t.Error("without a reference or payroll keyword there is no match")
	}
}
