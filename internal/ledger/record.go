package ledger

import (
	"github.com/shopspring/decimal"
)

// Record is one row returned by the remote ledger. Values keep the wire
// representation: numbers are float64, many-to-one references are [id, name]
// pairs, and absent values are false rather than null.
type Record map[string]any

// Int returns the field as an int, or 0 when absent or not numeric.
func (r Record) Int(field string) int {
	switch v := r[field].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Str returns the field as a string. The ledger encodes empty optional fields
// as boolean false, which maps to "".
func (r Record) Str(field string) string {
	if s, ok := r[field].(string); ok {
		return s
	}
	return ""
}

// Bool returns the field as a bool.
func (r Record) Bool(field string) bool {
	b, _ := r[field].(bool)
	return b
}

// Decimal returns the field as a decimal, or zero when absent.
func (r Record) Decimal(field string) decimal.Decimal {
	switch v := r[field].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// Many2One unpacks an [id, name] reference pair. Returns (0, "") when the
// field is unset (false on the wire).
func (r Record) Many2One(field string) (int, string) {
	pair, ok := r[field].([]any)
	if !ok || len(pair) < 2 {
		return 0, ""
	}
	id := 0
	if f, ok := pair[0].(float64); ok {
		id = int(f)
	}
	name, _ := pair[1].(string)
	return id, name
}
