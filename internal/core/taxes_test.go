package core

import (
	"context"
	"errors"
	"testing"

	"ledger-gateway/internal/ledger"
)

func TestResolveTax(t *testing.T) {
	fake := newFakeLedger()
	companyID := fake.seedCompany("Acme Ltd")
	seedTax(fake, companyID, "VAT 20%", 20, "sale")
	seedTax(fake, companyID, "VAT 5%", 5, "purchase")
	resolver := NewTaxResolver(fake)
	ctx := context.Background()

	tax, err := resolver.ResolveTax(ctx, "VAT 20%", companyID, TaxSale)
	if err != nil {
		t.Fatal(err)
	}
	if !tax.Amount.Equal(dec("20")) {
		t.Errorf("amount = %s", tax.Amount)
	}

	// Substring fallback.
	tax, err = resolver.ResolveTax(ctx, "20%", companyID, TaxSale)
	if err != nil {
		t.Fatal(err)
	}
	if tax.Name != "VAT 20%" {
		t.Errorf("got %q", tax.Name)
	}

	// Direction scoping: the 5% code is purchase-only.
	_, err = resolver.ResolveTax(ctx, "VAT 5%", companyID, TaxSale)
	var notFound *ReferenceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ReferenceNotFoundError, got %v", err)
	}
}

func TestResolveTaxByRate(t *testing.T) {
	fake := newFakeLedger()
	companyID := fake.seedCompany("Acme Ltd")
	seedTax(fake, companyID, "Standard VAT", 19, "sale")
	resolver := NewTaxResolver(fake)

	tax, err := resolver.ResolveTaxByRate(context.Background(), dec("19"), companyID, TaxSale)
	if err != nil {
		t.Fatal(err)
	}
	if tax.Name != "Standard VAT" {
		t.Errorf("got %q", tax.Name)
	}

	_, err = resolver.ResolveTaxByRate(context.Background(), dec("7"), companyID, TaxSale)
	var notFound *ReferenceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ReferenceNotFoundError, got %v", err)
	}
}

func TestResolveTaxTag(t *testing.T) {
	fake := newFakeLedger()
	fake.add("account.account.tag", ledger.Record{
		"name": "+6", "applicability": "taxes", "country_id": m2o(21, "Cyprus"),
	})
	fake.add("account.account.tag", ledger.Record{
		"name": "+6", "applicability": "taxes", "country_id": m2o(73, "Greece"),
	})
	resolver := NewTaxResolver(fake)

	// Jurisdiction scoping picks the right +6.
	tag, err := resolver.ResolveTaxTag(context.Background(), "+6", 73)
	if err != nil {
		t.Fatal(err)
	}
	if tag.CountryID != 73 {
		t.Errorf("country = %d, want 73", tag.CountryID)
	}

	// Without a jurisdiction the first exact label wins.
	tag, err = resolver.ResolveTaxTag(context.Background(), "+6", 0)
	if err != nil {
		t.Fatal(err)
	}
	if tag.Name != "+6" {
		t.Errorf("name = %q", tag.Name)
	}

	_, err = resolver.ResolveTaxTag(context.Background(), "-99", 0)
	var notFound *ReferenceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ReferenceNotFoundError, got %v", err)
	}
}
