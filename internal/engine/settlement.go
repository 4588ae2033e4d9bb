package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"recordbook_app_echo/internal/models"
)

// SettlementResult carries the record as it should be persisted after an
// early settlement together with the payoff breakdown for the receipt.
type SettlementResult struct {
	Record       models.Record
	Outstanding  decimal.Decimal
	FeeAmount    decimal.Decimal
	PayoffAmount decimal.Decimal
}

// Settle closes a record early: the payoff is the outstanding principal plus
// a one-off settlement fee percentage, every pending installment is
// cancelled, and a snapshot of the payoff terms is attached so the operation
// can be undone later. The input record is not mutated.
func Settle(r models.Record, feePercent decimal.Decimal, now time.Time) (SettlementResult, error) {
	if feePercent.IsNegative() {
		return SettlementResult{}, &ValidationError{Field: "feePercent", Reason: "must not be negative"}
	}
	outstanding, err := Outstanding(r)
	if err != nil {
		return SettlementResult{}, &InvalidStateError{Op: "settlement", Status: r.Status}
	}
	if !outstanding.IsPositive() {
		return SettlementResult{}, &InvalidStateError{Op: "settlement", Status: r.Status}
	}

	feeAmount := roundMoney(outstanding.Mul(feePercent).Div(oneHundred))
	payoff := outstanding.Add(feeAmount)

	out := cloneRecord(r)
	for i := range out.Installments {
		if out.Installments[i].Status == models.InstallmentStatusPending {
			out.Installments[i].Status = models.InstallmentStatusCancelled
		}
	}
	out.Status = models.RecordStatusSettled
	out.Settlement = &models.SettlementSnapshot{
		RecordID:             r.ID,
		Date:                 now,
		OutstandingPrincipal: outstanding,
		FeePercent:           feePercent,
		TotalPaid:            payoff,
	}
	return SettlementResult{
		Record:       out,
		Outstanding:  outstanding,
		FeeAmount:    feeAmount,
		PayoffAmount: payoff,
	}, nil
}

// UndoSettlement reverses an early settlement: cancelled installments flip
// back to pending, the snapshot is discarded and the record returns to
// active. Paid installments are untouched, so settle followed by undo is an
// exact round trip.
func UndoSettlement(r models.Record) (models.Record, error) {
	if r.Status != models.RecordStatusSettled {
		return models.Record{}, &InvalidStateError{Op: "undo settlement", Status: r.Status}
	}
	out := cloneRecord(r)
	for i := range out.Installments {
		if out.Installments[i].Status == models.InstallmentStatusCancelled {
			out.Installments[i].Status = models.InstallmentStatusPending
		}
	}
	out.Settlement = nil
	out.Status = models.RecordStatusActive
	return out, nil
}

// NormalizeStatus repairs a record whose status has drifted from its
// installment rows: an active or overdue record with no open installments
// becomes settled, and a settled record that still has pending installments
// reverts to active with its stale settlement snapshot cleared. The second
// return reports whether anything changed, so callers only persist real
// repairs. Applying NormalizeStatus twice is a no-op.
func NormalizeStatus(r models.Record) (models.Record, bool) {
	switch {
	case (r.Status == models.RecordStatusActive || r.Status == models.RecordStatusOverdue) &&
		len(r.Installments) > 0 && r.AllInstallmentsClosed():
		out := cloneRecord(r)
		out.Status = models.RecordStatusSettled
		return out, true
	case r.Status == models.RecordStatusSettled && !r.AllInstallmentsClosed():
		out := cloneRecord(r)
		out.Status = models.RecordStatusActive
		out.Settlement = nil
		return out, true
	}
	return r, false
}

func cloneRecord(r models.Record) models.Record {
	out := r
	out.Installments = make([]models.Installment, len(r.Installments))
	copy(out.Installments, r.Installments)
	out.AdjustmentEvents = make([]models.AdjustmentEvent, len(r.AdjustmentEvents))
	copy(out.AdjustmentEvents, r.AdjustmentEvents)
	if r.Settlement != nil {
		snap := *r.Settlement
		out.Settlement = &snap
	}
	return out
}
