package core

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"time"

	"ledger-gateway/internal/ledger"
)

// accountTypeRanges maps each account type to the numeric code range new
// accounts are minted in, mirroring common chart-of-accounts layout.
var accountTypeRanges = map[string][2]int{
	"asset_current":     {1000, 1999},
	"asset_non_current": {1000, 1999},
	"asset_cash":        {1000, 1999},
	"asset_receivable":  {1000, 1999},
	"liability_current": {2000, 2999},
	"liability_payable": {2000, 2999},
	"equity":            {3000, 3999},
	"income":            {4000, 4999},
	"income_other":      {4000, 4999},
	"expense":           {5000, 7999},
	"expense_direct_cost": {5000, 7999},
}

// DeriveAccountCode produces a deterministic numeric code for a new account:
// the name hashed into the type's code range. The same name always yields the
// same code, so re-runs converge on one account. taken reports whether a code
// is already in use; on collision the code falls back to a timestamp-based
// value in the same range.
func DeriveAccountCode(name, accountType string, taken func(code string) bool) string {
	rng, ok := accountTypeRanges[accountType]
	if !ok {
		rng = [2]int{8000, 8999}
	}
	span := rng[1] - rng[0] + 1

	h := fnv.New32a()
	h.Write([]byte(name))
	code := fmt.Sprintf("%d", rng[0]+int(h.Sum32())%span)
	if taken == nil || !taken(code) {
		return code
	}

	return fmt.Sprintf("%d", rng[0]+int(time.Now().UnixNano()%int64(span)))
}

// CreateAccount mints a new chart-of-accounts record and verifies it is
// readable before returning. The remote system can lag between create and
// read visibility, so the verification re-reads with bounded exponential
// backoff; this is the only retry loop in the system.
func (r *AccountResolver) CreateAccount(ctx context.Context, name, accountType string, companyID int) (*LedgerAccount, error) {
	if name == "" {
		return nil, &ValidationError{Field: "account", Message: "account name is required"}
	}
	if accountType == "" {
		accountType = "expense"
	}

	code := DeriveAccountCode(name, accountType, func(c string) bool {
		n, err := r.rpc.SearchCount(ctx, "account.account",
			[]ledger.Condition{ledger.Eq("code", c), ledger.Eq("company_id", companyID)})
		return err == nil && n > 0
	})

	values := map[string]any{
		"name":         name,
		"code":         code,
		"account_type": accountType,
	}
	if companyID != 0 {
		values["company_id"] = companyID
	}
	id, err := r.rpc.Create(ctx, "account.account", values)
	if err != nil {
		return nil, remoteErr("create account", err)
	}
	log.Printf("created account %d %s %q (type %s)", id, code, name, accountType)

	// Verify the record reads back before handing it to a journal entry.
	delay := 200 * time.Millisecond
	for attempt := 0; attempt < 4; attempt++ {
		records, err := r.rpc.Read(ctx, "account.account", []int{id}, accountFields)
		if err == nil && len(records) > 0 {
			acc := accountFromRecord(records[0])
			return &acc, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	// Visible or not, the record exists; return what we know.
	log.Printf("account %d not yet readable after create, continuing", id)
	return &LedgerAccount{ID: id, Code: code, Name: name, Type: accountType, CompanyID: companyID, Active: true}, nil
}
