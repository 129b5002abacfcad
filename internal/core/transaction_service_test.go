package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ledger-gateway/internal/ledger"
)

func TestPostTransaction(t *testing.T) {
	fake := newFakeLedger()
	fake.seedCompany("Acme Ltd")
	svc := NewTransactionService(fake, nil)

	doc, err := svc.PostTransaction(context.Background(), TransactionRequest{
		Company:   "Acme Ltd",
		Date:      "2025-06-01",
		Reference: "RENT-JUN",
		Lines: []TransactionLineRequest{
			{Description: "Office rent", AccountName: "Travel", Debit: dec("900.00")},
			{Description: "Paid from bank", AccountName: "Bank", Credit: dec("900.00")},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if doc.State != "posted" {
		t.Errorf("state = %q, want posted", doc.State)
	}
	if doc.AutoBalanced {
		t.Error("balanced entry should not be flagged")
	}
}

func TestPostTransactionFuzzyCompanyName(t *testing.T) {
	fake := newFakeLedger()
	fake.seedCompany("Acme Trading Limited")
	svc := NewTransactionService(fake, nil)

	doc, err := svc.PostTransaction(context.Background(), TransactionRequest{
		Company: "Acme Trading Ltd",
		Date:    "2025-06-01",
		Lines: []TransactionLineRequest{
			{Description: "a", AccountName: "Sales", Credit: dec("100.00")},
			{Description: "b", AccountName: "Bank", Debit: dec("100.00")},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if doc.State != "posted" {
		t.Errorf("state = %q, want posted", doc.State)
	}
}

func TestPostTransactionCreatesMissingAccount(t *testing.T) {
	fake := newFakeLedger()
	companyID := fake.seedCompany("Acme Ltd")
	svc := NewTransactionService(fake, nil)

	doc, err := svc.PostTransaction(context.Background(), TransactionRequest{
		Company: "Acme Ltd",
		Date:    "2025-06-01",
		Lines: []TransactionLineRequest{
			{Description: "New SaaS tool", AccountName: "Quantum Cloud Hosting", AccountType: "expense", CreateMissing: true, Debit: dec("49.00")},
			{Description: "Paid from bank", AccountName: "Bank", Credit: dec("49.00")},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if doc.State != "posted" {
		t.Errorf("state = %q, want posted", doc.State)
	}

	created, err := fake.SearchRead(context.Background(), "account.account",
		[]ledger.Condition{ledger.Eq("name", "Quantum Cloud Hosting"), ledger.Eq("company_id", companyID)}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 {
		t.Fatalf("expected the account to be created, found %d", len(created))
	}
}

func TestPostTransactionUnknownAccountWithoutCreateMissing(t *testing.T) {
	fake := newFakeLedger()
	fake.seedCompany("Acme Ltd")
	svc := NewTransactionService(fake, nil)

	_, err := svc.PostTransaction(context.Background(), TransactionRequest{
		Company: "Acme Ltd",
		Lines: []TransactionLineRequest{
			{Description: "x", AccountName: "Quantum Cloud Hosting", Debit: dec("49.00")},
			{Description: "y", AccountName: "Bank", Credit: dec("49.00")},
		},
	})
	var notFound *ReferenceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ReferenceNotFoundError, got %v", err)
	}
}

func TestPostTransactionTaxGridStampsLine(t *testing.T) {
	fake := newFakeLedger()
	fake.seedCompany("Acme Ltd")
	tagID := fake.add("account.account.tag", ledger.Record{"name": "+6", "applicability": "taxes"})
	svc := NewTransactionService(fake, nil)

	doc, err := svc.PostTransaction(context.Background(), TransactionRequest{
		Company: "Acme Ltd",
		Date:    "2025-06-01",
		Lines: []TransactionLineRequest{
			{Description: "VAT output", AccountName: "Sales", Credit: dec("200.00"), TaxGrid: "+6"},
			{Description: "Paid to bank", AccountName: "Bank", Debit: dec("200.00")},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	moves, err := fake.SearchRead(context.Background(), "account.move",
		[]ledger.Condition{ledger.Eq("id", doc.ID)}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(moves) != 1 {
		t.Fatalf("found %d moves", len(moves))
	}
	commands, _ := moves[0]["line_ids"].([]any)
	tagged := 0
	for _, cmd := range commands {
		triple, ok := cmd.([]any)
		if !ok || len(triple) != 3 {
			continue
		}
		lv, _ := triple[2].(map[string]any)
		if cmds, ok := lv["tax_tag_ids"].([]any); ok {
			tagged++
			set, _ := cmds[0].([]any)
			if ids, _ := set[2].([]int); len(ids) != 1 || ids[0] != tagID {
				t.Errorf("tax_tag_ids = %v, want [%d]", ids, tagID)
			}
		}
	}
	if tagged != 1 {
		t.Errorf("%d lines carry a tax tag, want exactly the grid-labelled one", tagged)
	}
}

func TestPostTransactionUnknownTaxGridWarns(t *testing.T) {
	fake := newFakeLedger()
	fake.seedCompany("Acme Ltd")
	svc := NewTransactionService(fake, nil)

	doc, err := svc.PostTransaction(context.Background(), TransactionRequest{
		Company: "Acme Ltd",
		Lines: []TransactionLineRequest{
			{Description: "a", AccountName: "Sales", Credit: dec("50.00"), TaxGrid: "+99"},
			{Description: "b", AccountName: "Bank", Debit: dec("50.00")},
		},
	})
	if err != nil {
		t.Fatal(err, "an unknown grid label must not block the posting")
	}
	if len(doc.TaxResolutionWarnings) != 1 {
		t.Fatalf("warnings = %v, want one", doc.TaxResolutionWarnings)
	}
}

func TestPostTransactionStrictImbalance(t *testing.T) {
	fake := newFakeLedger()
	fake.seedCompany("Acme Ltd")
	svc := NewTransactionService(fake, nil)

	_, err := svc.PostTransaction(context.Background(), TransactionRequest{
		Company: "Acme Ltd",
		Lines: []TransactionLineRequest{
			{Description: "a", AccountName: "Travel", Debit: dec("100.00")},
			{Description: "b", AccountName: "Bank", Credit: dec("60.00")},
		},
	})
	var imbalance *ImbalanceError
	if !errors.As(err, &imbalance) {
		t.Fatalf("expected ImbalanceError with auto-balance off, got %v", err)
	}
}

func TestPostTransactionAllowImbalance(t *testing.T) {
	fake := newFakeLedger()
	fake.seedCompany("Acme Ltd")
	svc := NewTransactionService(fake, nil)

	doc, err := svc.PostTransaction(context.Background(), TransactionRequest{
		Company:        "Acme Ltd",
		AllowImbalance: true,
		Lines: []TransactionLineRequest{
			{Description: "a", AccountName: "Travel", Debit: dec("100.00")},
			{Description: "b", AccountName: "Bank", Credit: dec("60.00")},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !doc.AutoBalanced || !doc.RequiresReview {
		t.Error("suspense-balanced entry must be flagged for review")
	}
}

func TestPostTransactionBatchIsolatesFailures(t *testing.T) {
	fake := newFakeLedger()
	fake.seedCompany("Acme Ltd")
	svc := NewTransactionService(fake, nil)

	good := func(ref string) TransactionRequest {
		return TransactionRequest{
			Company:   "Acme Ltd",
			Date:      "2025-06-01",
			Reference: ref,
			Lines: []TransactionLineRequest{
				{Description: "a", AccountName: "Travel", Debit: dec("10.00")},
				{Description: "b", AccountName: "Bank", Credit: dec("10.00")},
			},
		}
	}
	bad := TransactionRequest{
		Company: "No Such Company Anywhere",
		Lines: []TransactionLineRequest{
			{Description: "a", AccountName: "Travel", Debit: dec("10.00")},
			{Description: "b", AccountName: "Bank", Credit: dec("10.00")},
		},
	}

	result, err := svc.PostTransactionBatch(context.Background(),
		[]TransactionRequest{good("T-1"), bad, good("T-2")})
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != 3 || result.Succeeded != 2 || result.Failed != 1 {
		t.Errorf("summary = %d/%d/%d, want 3/2/1", result.Total, result.Succeeded, result.Failed)
	}
	if want := 2.0 / 3.0; result.SuccessRate != want {
		t.Errorf("success rate = %f, want %f", result.SuccessRate, want)
	}
	if result.Results[1].Success || result.Results[1].Error == "" {
		t.Error("failed item should carry its error")
	}
	if !result.Results[0].Success || !result.Results[2].Success {
		t.Error("items around a failure must still post")
	}
}

func TestPostTransactionBatchSequentialOrder(t *testing.T) {
	fake := newFakeLedger()
	fake.seedCompany("Acme Ltd")
	svc := NewTransactionService(fake, nil)

	var reqs []TransactionRequest
	for i := 0; i < 3; i++ {
		reqs = append(reqs, TransactionRequest{
			Company:   "Acme Ltd",
			Date:      "2025-06-01",
			Reference: fmt.Sprintf("SEQ-%d", i),
			Lines: []TransactionLineRequest{
				{Description: "a", AccountName: "Travel", Debit: dec("10.00")},
				{Description: "b", AccountName: "Bank", Credit: dec("10.00")},
			},
		})
	}
	result, err := svc.PostTransactionBatch(context.Background(), reqs)
	if err != nil {
		t.Fatal(err)
	}
	var lastID int
	for _, item := range result.Results {
		if !item.Success {
			t.Fatalf("item %d failed: %s", item.Index, item.Error)
		}
		if item.Document.ID <= lastID {
			t.Errorf("documents posted out of order: %d after %d", item.Document.ID, lastID)
		}
		lastID = item.Document.ID
	}
}
