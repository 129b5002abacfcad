package ledger

// Condition is one term of a search filter. Conditions in a domain are
// combined with AND; callers needing OR semantics issue separate searches.
type Condition struct {
	Field string
	Op    string
	Value any
}

// Eq matches records whose field equals value.
func Eq(field string, value any) Condition { return Condition{Field: field, Op: "=", Value: value} }

// Neq matches records whose field does not equal value.
func Neq(field string, value any) Condition { return Condition{Field: field, Op: "!=", Value: value} }

// ILike matches records whose field contains value, case-insensitively.
func ILike(field string, value string) Condition {
	return Condition{Field: field, Op: "ilike", Value: value}
}

// In matches records whose field is one of values.
func In(field string, values []int) Condition {
	return Condition{Field: field, Op: "in", Value: values}
}

// Gt matches records whose field is greater than value.
func Gt(field string, value any) Condition { return Condition{Field: field, Op: ">", Value: value} }

func marshalDomain(domain []Condition) []any {
	out := make([]any, 0, len(domain))
	for _, c := range domain {
		out = append(out, []any{c.Field, c.Op, c.Value})
	}
	return out
}
