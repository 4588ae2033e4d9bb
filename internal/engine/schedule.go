package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"recordbook_app_echo/internal/models"
)

// perAnnumDivisor converts an annual percentage rate applied to a balance
// into a monthly fee: balance * rate / (12 months * 100 percent).
var perAnnumDivisor = decimal.NewFromInt(1200)

var (
	oneHundred = decimal.NewFromInt(100)
	twelve     = decimal.NewFromInt(12)
)

// roundMoney rounds to whole currency units, half away from zero.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// MonthlyFee computes the fee portion charged on a balance for one period.
func MonthlyFee(balance, annualRatePercent decimal.Decimal) decimal.Decimal {
	return roundMoney(balance.Mul(annualRatePercent).Div(perAnnumDivisor))
}

// FlatFee prices the total fee for a record at creation or adjustment time:
// principal * rate% prorated over the tenure in years.
func FlatFee(principal, annualRatePercent decimal.Decimal, tenureMonths int) decimal.Decimal {
	months := decimal.NewFromInt(int64(tenureMonths))
	return roundMoney(principal.Mul(annualRatePercent).Div(oneHundred).Mul(months).Div(twelve))
}

// PriceInstallment derives the flat monthly installment for a principal:
// (principal + flat fee) spread evenly over the tenure, rounded to whole
// units.
func PriceInstallment(principal, annualRatePercent decimal.Decimal, tenureMonths int) decimal.Decimal {
	total := principal.Add(FlatFee(principal, annualRatePercent, tenureMonths))
	return roundMoney(total.Div(decimal.NewFromInt(int64(tenureMonths))))
}

// ServiceCharge computes the one-off setup charge on an amount.
func ServiceCharge(amount, percent decimal.Decimal) decimal.Decimal {
	return roundMoney(amount.Mul(percent).Div(oneHundred))
}

// AddMonthsClamped shifts t forward by the given number of months, clamping
// the day-of-month to the last day of the target month. A Jan 31 anchor
// yields Feb 29 in a leap year and Mar 31 after that, rather than skipping
// short months.
func AddMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

// ScheduleParams are the inputs to one amortization run.
type ScheduleParams struct {
	Principal         decimal.Decimal
	FeeRatePercent    decimal.Decimal // annual, e.g. 12 for 12% p.a.
	InstallmentAmount decimal.Decimal
	TenureMonths      int
	FirstDueDate      time.Time
	// StartNumber is the installment number of the first generated row:
	// 1 for a fresh record, paid-count+1 when regenerating after an
	// adjustment.
	StartNumber int
}

// GenerateSchedule builds the pending installment rows for one amortization
// run using a declining-balance split: each period's fee portion is computed
// on the opening balance and the remainder of the flat installment amount
// retires principal. The final period's principal portion is capped at the
// remaining balance so the schedule never closes below zero and the principal
// portions telescope to exactly the amount repaid.
func GenerateSchedule(p ScheduleParams) ([]models.Installment, error) {
	if !p.Principal.IsPositive() {
		return nil, &ValidationError{Field: "principal", Reason: "must be greater than zero"}
	}
	if p.TenureMonths < 1 {
		return nil, &ValidationError{Field: "tenureMonths", Reason: "must be at least 1"}
	}
	if !p.InstallmentAmount.IsPositive() {
		return nil, &ValidationError{Field: "installmentAmount", Reason: "must be greater than zero"}
	}
	if p.FeeRatePercent.IsNegative() {
		return nil, &ValidationError{Field: "feeRatePercent", Reason: "must not be negative"}
	}
	if p.FirstDueDate.IsZero() {
		return nil, &ValidationError{Field: "firstDueDate", Reason: "must be set"}
	}
	startNumber := p.StartNumber
	if startNumber < 1 {
		startNumber = 1
	}

	balance := p.Principal
	schedule := make([]models.Installment, 0, p.TenureMonths)
	for i := 0; i < p.TenureMonths; i++ {
		feePortion := MonthlyFee(balance, p.FeeRatePercent)
		principalPortion := p.InstallmentAmount.Sub(feePortion)
		if !principalPortion.IsPositive() {
			return nil, ErrInstallmentTooSmall
		}
		if principalPortion.GreaterThan(balance) {
			principalPortion = balance
		}
		closing := balance.Sub(principalPortion)
		schedule = append(schedule, models.Installment{
			InstallmentNumber: startNumber + i,
			DueDate:           AddMonthsClamped(p.FirstDueDate, i),
			Amount:            p.InstallmentAmount,
			FeePortion:        feePortion,
			PrincipalPortion:  principalPortion,
			OpeningBalance:    balance,
			ClosingBalance:    closing,
			Status:            models.InstallmentStatusPending,
		})
		balance = closing
	}
	return schedule, nil
}
