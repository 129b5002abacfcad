package core

import (
	"context"
	"log"
	"strconv"
	"strings"

	"ledger-gateway/internal/ledger"
)

// fuzzyMatchThreshold is the minimum similarity for treating an existing
// partner as the same counterparty instead of creating a new one.
const fuzzyMatchThreshold = 0.85

var partnerFields = []string{"id", "name", "email", "phone", "is_company", "customer_rank", "supplier_rank"}

// PartnerResolver finds or creates counterparty records. Unlike accounts and
// taxes, an unresolved partner is not an error: the resolver creates one, so
// document flows never stall on a new customer or vendor.
type PartnerResolver struct {
	rpc ledger.Client
}

func NewPartnerResolver(rpc ledger.Client) *PartnerResolver {
	return &PartnerResolver{rpc: rpc}
}

// ResolveOrCreatePartner finds the partner matching ref, creating one when no
// existing record is close enough. ref may be a numeric ID or a name. The
// returned bool is true when a record was created.
func (r *PartnerResolver) ResolveOrCreatePartner(ctx context.Context, ref string, role PartnerRole) (*Partner, bool, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, false, &ValidationError{Field: "partner", Message: "partner name or id is required"}
	}

	// Numeric refs are direct IDs.
	if id, err := strconv.Atoi(ref); err == nil {
		records, err := r.rpc.Read(ctx, "res.partner", []int{id}, partnerFields)
		if err != nil {
			return nil, false, remoteErr("read partner", err)
		}
		if len(records) == 0 {
			return nil, false, &ReferenceNotFoundError{Kind: "partner", Term: ref}
		}
		return partnerFromRecord(records[0]), false, nil
	}

	if p, err := r.findByName(ctx, ref, role); err != nil {
		return nil, false, err
	} else if p != nil {
		return p, false, nil
	}

	p, err := r.create(ctx, ref, role)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// FindPartnerByContact looks up a partner by email or phone.
func (r *PartnerResolver) FindPartnerByContact(ctx context.Context, email, phone string) (*Partner, error) {
	if email != "" {
		records, err := r.rpc.SearchRead(ctx, "res.partner",
			[]ledger.Condition{ledger.ILike("email", email)},
			partnerFields, &ledger.SearchOpts{Limit: 1})
		if err != nil {
			return nil, remoteErr("search partner by email", err)
		}
		if len(records) > 0 {
			return partnerFromRecord(records[0]), nil
		}
	}
	if phone != "" {
		records, err := r.rpc.SearchRead(ctx, "res.partner",
			[]ledger.Condition{ledger.ILike("phone", phone)},
			partnerFields, &ledger.SearchOpts{Limit: 1})
		if err != nil {
			return nil, remoteErr("search partner by phone", err)
		}
		if len(records) > 0 {
			return partnerFromRecord(records[0]), nil
		}
	}
	return nil, nil
}

// findByName walks the match ladder: exact, case-insensitive substring, then
// fuzzy over the role's candidate pool. Returns nil without error on a miss.
func (r *PartnerResolver) findByName(ctx context.Context, name string, role PartnerRole) (*Partner, error) {
	records, err := r.rpc.SearchRead(ctx, "res.partner",
		append([]ledger.Condition{ledger.Eq("name", name)}, roleScope(role)...),
		partnerFields, &ledger.SearchOpts{Limit: 1})
	if err != nil {
		return nil, remoteErr("search partner", err)
	}
	if len(records) > 0 {
		return partnerFromRecord(records[0]), nil
	}

	records, err = r.rpc.SearchRead(ctx, "res.partner",
		append([]ledger.Condition{ledger.ILike("name", name)}, roleScope(role)...),
		partnerFields, &ledger.SearchOpts{Limit: 5})
	if err != nil {
		return nil, remoteErr("search partner", err)
	}
	if len(records) > 0 {
		return partnerFromRecord(records[0]), nil
	}

	return r.findFuzzy(ctx, name, role)
}

// findFuzzy scores every candidate in the role's pool and returns the best
// one at or above the similarity threshold.
func (r *PartnerResolver) findFuzzy(ctx context.Context, name string, role PartnerRole) (*Partner, error) {
	records, err := r.rpc.SearchRead(ctx, "res.partner", roleScope(role),
		partnerFields, &ledger.SearchOpts{Limit: 500})
	if err != nil {
		return nil, remoteErr("search partners", err)
	}

	var best *Partner
	bestScore := 0.0
	for _, rec := range records {
		score := NameSimilarity(name, rec.Str("name"))
		if score >= fuzzyMatchThreshold && score > bestScore {
			best = partnerFromRecord(rec)
			bestScore = score
		}
	}
	if best != nil {
		log.Printf("fuzzy-matched partner %q to %q (%.2f)", name, best.Name, bestScore)
	}
	return best, nil
}

// create inserts a new partner with ranks set for the requested role. Names
// carrying a legal-form suffix are flagged as companies.
func (r *PartnerResolver) create(ctx context.Context, name string, role PartnerRole) (*Partner, error) {
	isCompany := NormalizeBusinessName(name) != strings.ToLower(strings.TrimSpace(name))
	values := map[string]any{
		"name":       name,
		"is_company": isCompany,
	}
	switch role {
	case RoleCustomer:
		values["customer_rank"] = 1
	case RoleVendor:
		values["supplier_rank"] = 1
	default:
		values["customer_rank"] = 1
		values["supplier_rank"] = 1
	}

	id, err := r.rpc.Create(ctx, "res.partner", values)
	if err != nil {
		return nil, remoteErr("create partner", err)
	}
	log.Printf("created partner %d %q (role %s)", id, name, role)

	p := &Partner{ID: id, Name: name, IsCompany: isCompany}
	switch role {
	case RoleCustomer:
		p.CustomerRank = 1
	case RoleVendor:
		p.SupplierRank = 1
	default:
		p.CustomerRank = 1
		p.SupplierRank = 1
	}
	return p, nil
}

// roleScope restricts a partner search to the counterparty kind. RoleEither
// searches the whole partner table.
func roleScope(role PartnerRole) []ledger.Condition {
	switch role {
	case RoleCustomer:
		return []ledger.Condition{ledger.Gt("customer_rank", 0)}
	case RoleVendor:
		return []ledger.Condition{ledger.Gt("supplier_rank", 0)}
	}
	return nil
}

func partnerFromRecord(rec ledger.Record) *Partner {
	return &Partner{
		ID:           rec.Int("id"),
		Name:         rec.Str("name"),
		Email:        rec.Str("email"),
		Phone:        rec.Str("phone"),
		IsCompany:    rec.Bool("is_company"),
		CustomerRank: rec.Int("customer_rank"),
		SupplierRank: rec.Int("supplier_rank"),
	}
}
