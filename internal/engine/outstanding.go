package engine

import (
	"sort"

	"github.com/shopspring/decimal"

	"recordbook_app_echo/internal/models"
)

// Outstanding derives the remaining principal of a record from its
// materialized schedule: the closing balance of the last paid installment in
// the current amortization segment, or the full principal when nothing in
// the segment has been paid yet. Overdue counts as a late sub-state of
// Active, so settlement math stays available for delinquent records.
func Outstanding(r models.Record) (decimal.Decimal, error) {
	if r.Status != models.RecordStatusActive && r.Status != models.RecordStatusOverdue {
		return decimal.Zero, &InvalidStateError{Op: "outstanding balance", Status: r.Status}
	}
	balance := r.Principal
	for _, inst := range CurrentSegment(r) {
		if inst.Status == models.InstallmentStatusPaid {
			balance = inst.ClosingBalance
		}
	}
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return balance, nil
}

// CurrentSegment returns the installments produced by the most recent
// schedule generation, ordered by installment number: the whole schedule for
// a never-adjusted record, or the trailing new-tenure rows after an
// adjustment. Paid rows preserved from before an adjustment carry balances
// of the old amortization and must not feed the outstanding derivation.
func CurrentSegment(r models.Record) []models.Installment {
	insts := sortedByNumber(r.Installments)
	if len(r.AdjustmentEvents) == 0 {
		return insts
	}
	last := r.AdjustmentEvents[len(r.AdjustmentEvents)-1]
	if last.NewTenureMonths <= 0 || last.NewTenureMonths >= len(insts) {
		return insts
	}
	return insts[len(insts)-last.NewTenureMonths:]
}

func sortedByNumber(insts []models.Installment) []models.Installment {
	out := make([]models.Installment, len(insts))
	copy(out, insts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].InstallmentNumber < out[j].InstallmentNumber
	})
	return out
}
