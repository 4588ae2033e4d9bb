// Package engine implements the installment-schedule and cash-ledger
// computations: schedule generation, outstanding-balance derivation,
// settlement and undo, mid-term adjustment, and monthly ledger aggregation.
//
// Every function here is a pure, synchronous transformation over in-memory
// values. Nothing in this package touches the database; callers persist the
// returned values inside a single transaction so that mutations stay atomic.
package engine

import (
	"errors"
	"fmt"

	"recordbook_app_echo/internal/models"
)

// ErrInstallmentTooSmall is returned by the schedule generator when the
// installment amount does not cover a period's fee portion, which would
// produce a negative principal portion (negative amortization).
var ErrInstallmentTooSmall = errors.New("installment amount does not cover the period fee")

// ValidationError reports an input that fails range or shape checks. It is
// always raised before any state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidStateError reports an operation that is not legal for the record's
// current status, e.g. undoing a settlement twice or adjusting a settled
// record.
type InvalidStateError struct {
	Op     string
	Status models.RecordStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s is not allowed while record status is %s", e.Op, e.Status)
}
