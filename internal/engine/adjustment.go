package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"recordbook_app_echo/internal/models"
)

// AdjustParams describe a mid-term restructuring: fresh principal added on
// top of the outstanding balance and a new repayment plan for the combined
// amount.
type AdjustParams struct {
	AddedPrincipal       decimal.Decimal
	NewTenureMonths      int
	FeeRatePercent       decimal.Decimal // annual rate for the new plan
	ServiceChargePercent decimal.Decimal // charged on the added principal only
	Now                  time.Time
}

// AdjustResult carries the record as it should be persisted after an
// adjustment, the event describing it, and the pending rows that were
// replaced (so callers can delete them in the same transaction that inserts
// the new tail).
type AdjustResult struct {
	Record            models.Record
	Event             models.AdjustmentEvent
	ReplacedPending   []models.Installment
	NewInstallments   []models.Installment
	NewPrincipal      decimal.Decimal
	OutstandingBefore decimal.Decimal
	ServiceCharge     decimal.Decimal
}

// Adjust restructures an active record: the outstanding balance plus the
// added principal is re-amortized over a new tenure at a (possibly new)
// rate. Paid installments keep their original rows and numbering as
// immutable history; the pending tail is discarded and regenerated, with
// numbering continuing after the paid rows. The input record is not mutated.
func Adjust(r models.Record, p AdjustParams) (AdjustResult, error) {
	if !p.AddedPrincipal.IsPositive() {
		return AdjustResult{}, &ValidationError{Field: "addedPrincipal", Reason: "must be greater than zero"}
	}
	if p.NewTenureMonths < 1 {
		return AdjustResult{}, &ValidationError{Field: "newTenureMonths", Reason: "must be at least 1"}
	}
	if p.FeeRatePercent.IsNegative() {
		return AdjustResult{}, &ValidationError{Field: "feeRatePercent", Reason: "must not be negative"}
	}
	if p.ServiceChargePercent.IsNegative() {
		return AdjustResult{}, &ValidationError{Field: "serviceChargePercent", Reason: "must not be negative"}
	}
	outstanding, err := Outstanding(r)
	if err != nil {
		return AdjustResult{}, &InvalidStateError{Op: "adjustment", Status: r.Status}
	}
	// Nothing to restructure against a paid-off balance.
	if !outstanding.IsPositive() {
		return AdjustResult{}, &InvalidStateError{Op: "adjustment", Status: r.Status}
	}

	newPrincipal := outstanding.Add(p.AddedPrincipal)
	newInstallment := PriceInstallment(newPrincipal, p.FeeRatePercent, p.NewTenureMonths)
	serviceCharge := ServiceCharge(p.AddedPrincipal, p.ServiceChargePercent)

	paid := make([]models.Installment, 0, len(r.Installments))
	replaced := make([]models.Installment, 0, len(r.Installments))
	for _, inst := range sortedByNumber(r.Installments) {
		if inst.Status == models.InstallmentStatusPaid {
			paid = append(paid, inst)
		} else {
			replaced = append(replaced, inst)
		}
	}

	tail, err := GenerateSchedule(ScheduleParams{
		Principal:         newPrincipal,
		FeeRatePercent:    p.FeeRatePercent,
		InstallmentAmount: newInstallment,
		TenureMonths:      p.NewTenureMonths,
		FirstDueDate:      firstDueAfter(p.Now, r.InstallmentDueDay),
		StartNumber:       len(paid) + 1,
	})
	if err != nil {
		return AdjustResult{}, err
	}
	for i := range tail {
		tail[i].RecordID = r.ID
	}

	event := models.AdjustmentEvent{
		RecordID:             r.ID,
		Date:                 p.Now,
		AddedPrincipal:       p.AddedPrincipal,
		OutstandingBefore:    outstanding,
		NewInstallmentAmount: newInstallment,
		NewTenureMonths:      p.NewTenureMonths,
		ServiceCharge:        serviceCharge,
	}

	out := cloneRecord(r)
	out.Installments = append(paid, tail...)
	out.AdjustmentEvents = append(out.AdjustmentEvents, event)
	out.Principal = newPrincipal
	out.FeeRatePercent = p.FeeRatePercent
	out.InstallmentAmount = newInstallment
	out.TenureMonths = len(paid) + p.NewTenureMonths
	out.ServiceCharge = r.ServiceCharge.Add(serviceCharge)
	out.Status = models.RecordStatusActive

	return AdjustResult{
		Record:            out,
		Event:             event,
		ReplacedPending:   replaced,
		NewInstallments:   tail,
		NewPrincipal:      newPrincipal,
		OutstandingBefore: outstanding,
		ServiceCharge:     serviceCharge,
	}, nil
}

// firstDueAfter places the first due date of a new plan on the record's due
// day in the month after the adjustment. Due days are stored in the 1..28
// range so every month has the day.
func firstDueAfter(now time.Time, dueDay int) time.Time {
	if dueDay < 1 || dueDay > 28 {
		dueDay = 1
	}
	return time.Date(now.Year(), now.Month()+1, dueDay, 0, 0, 0, 0, now.Location())
}
