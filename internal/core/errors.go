package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"ledger-gateway/internal/ledger"
)

// ValidationError reports malformed or incomplete caller input. It is always
// surfaced immediately and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ReferenceNotFoundError reports an account, partner, tax, or journal that
// could not be resolved. Kind and Term identify what was searched so the
// caller can correct the input.
type ReferenceNotFoundError struct {
	Kind  string // "account", "partner", "tax", "tax tag", "journal", "company"
	Term  string
	Field string // request field the term came from, when known
}

func (e *ReferenceNotFoundError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s %q (%s) not found", e.Kind, e.Term, e.Field)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Term)
}

// ImbalanceError reports that debits do not equal credits and auto-balancing
// was unavailable or declined. It carries the full numeric breakdown for
// manual reconciliation.
type ImbalanceError struct {
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Difference  decimal.Decimal
	Lines       []LineItem
}

func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("entry is not balanced: debits %s, credits %s, difference %s",
		e.TotalDebit.StringFixed(2), e.TotalCredit.StringFixed(2), e.Difference.StringFixed(2))
}

// RemoteFault wraps a failure reported by the ledger, LLM, or storage system
// itself. The remote diagnostic text is preserved verbatim.
type RemoteFault struct {
	Op  string
	Err error
}

func (e *RemoteFault) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *RemoteFault) Unwrap() error { return e.Err }

// PartialPostFailure means the document was created in the ledger but the
// draft-to-posted transition failed. The created ID is reported so recovery
// can be manual; deletion is deliberately not attempted.
type PartialPostFailure struct {
	DocumentID int
	State      string
	Err        error
}

func (e *PartialPostFailure) Error() string {
	return fmt.Sprintf("document %d created but not posted (state %q): %v", e.DocumentID, e.State, e.Err)
}

func (e *PartialPostFailure) Unwrap() error { return e.Err }

// remoteErr classifies an error from the ledger client. Faults reported by
// the remote system become RemoteFault; everything else passes through.
func remoteErr(op string, err error) error {
	var fault *ledger.Fault
	if errors.As(err, &fault) {
		return &RemoteFault{Op: op, Err: fault}
	}
	return &RemoteFault{Op: op, Err: err}
}
