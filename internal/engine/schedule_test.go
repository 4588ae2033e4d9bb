package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"recordbook_app_echo/internal/models"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenerateScheduleDecliningBalance(t *testing.T) {
	schedule, err := GenerateSchedule(ScheduleParams{
		Principal:         dec(120000),
		FeeRatePercent:    dec(12),
		InstallmentAmount: dec(10660),
		TenureMonths:      12,
		FirstDueDate:      day(2024, time.February, 1),
	})
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}
	if len(schedule) != 12 {
		t.Fatalf("len(schedule) = %d, want 12", len(schedule))
	}

	first := schedule[0]
	if !first.FeePortion.Equal(dec(1200)) {
		t.Errorf("period 1 fee portion = %s, want 1200", first.FeePortion)
	}
	if !first.PrincipalPortion.Equal(dec(9460)) {
		t.Errorf("period 1 principal portion = %s, want 9460", first.PrincipalPortion)
	}
	if !first.ClosingBalance.Equal(dec(110540)) {
		t.Errorf("period 1 closing balance = %s, want 110540", first.ClosingBalance)
	}

	for i, inst := range schedule {
		if inst.InstallmentNumber != i+1 {
			t.Errorf("installment %d number = %d, want %d", i, inst.InstallmentNumber, i+1)
		}
		if inst.Status != models.InstallmentStatusPending {
			t.Errorf("installment %d status = %s, want Pending", i+1, inst.Status)
		}
		wantDue := day(2024, time.February+time.Month(i), 1)
		if !inst.DueDate.Equal(wantDue) {
			t.Errorf("installment %d due date = %s, want %s", i+1, inst.DueDate, wantDue)
		}
		if !inst.Amount.Equal(dec(10660)) {
			t.Errorf("installment %d amount = %s, want 10660", i+1, inst.Amount)
		}
	}
}

func TestGenerateSchedulePrincipalSum(t *testing.T) {
	principal := dec(120000)
	schedule, err := GenerateSchedule(ScheduleParams{
		Principal:         principal,
		FeeRatePercent:    dec(12),
		InstallmentAmount: dec(10662),
		TenureMonths:      12,
		FirstDueDate:      day(2024, time.February, 1),
	})
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}

	sum := decimal.Zero
	for _, inst := range schedule {
		sum = sum.Add(inst.PrincipalPortion)
	}
	if !sum.Equal(principal) {
		t.Errorf("sum of principal portions = %s, want %s", sum, principal)
	}
	if last := schedule[len(schedule)-1]; !last.ClosingBalance.IsZero() {
		t.Errorf("final closing balance = %s, want 0", last.ClosingBalance)
	}
}

func TestGenerateScheduleEndOfMonthClamp(t *testing.T) {
	schedule, err := GenerateSchedule(ScheduleParams{
		Principal:         dec(30000),
		FeeRatePercent:    dec(12),
		InstallmentAmount: dec(10300),
		TenureMonths:      3,
		FirstDueDate:      day(2024, time.January, 31),
	})
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}

	want := []time.Time{
		day(2024, time.January, 31),
		day(2024, time.February, 29), // leap year
		day(2024, time.March, 31),
	}
	for i, inst := range schedule {
		if !inst.DueDate.Equal(want[i]) {
			t.Errorf("installment %d due date = %s, want %s", i+1, inst.DueDate, want[i])
		}
	}
}

func TestGenerateScheduleStartNumber(t *testing.T) {
	schedule, err := GenerateSchedule(ScheduleParams{
		Principal:         dec(60000),
		FeeRatePercent:    dec(12),
		InstallmentAmount: dec(10700),
		TenureMonths:      6,
		FirstDueDate:      day(2024, time.July, 5),
		StartNumber:       5,
	})
	if err != nil {
		t.Fatalf("GenerateSchedule() error = %v", err)
	}
	for i, inst := range schedule {
		if inst.InstallmentNumber != 5+i {
			t.Errorf("installment %d number = %d, want %d", i, inst.InstallmentNumber, 5+i)
		}
	}
}

func TestGenerateScheduleInstallmentTooSmall(t *testing.T) {
	// fee for period 1 is 2000, which the installment does not exceed
	_, err := GenerateSchedule(ScheduleParams{
		Principal:         dec(100000),
		FeeRatePercent:    dec(24),
		InstallmentAmount: dec(2000),
		TenureMonths:      12,
		FirstDueDate:      day(2024, time.March, 1),
	})
	if !errors.Is(err, ErrInstallmentTooSmall) {
		t.Fatalf("GenerateSchedule() error = %v, want ErrInstallmentTooSmall", err)
	}
}

func TestGenerateScheduleValidation(t *testing.T) {
	valid := ScheduleParams{
		Principal:         dec(120000),
		FeeRatePercent:    dec(12),
		InstallmentAmount: dec(10660),
		TenureMonths:      12,
		FirstDueDate:      day(2024, time.February, 1),
	}

	tests := []struct {
		name   string
		mutate func(*ScheduleParams)
		field  string
	}{
		{"zero principal", func(p *ScheduleParams) { p.Principal = decimal.Zero }, "principal"},
		{"negative principal", func(p *ScheduleParams) { p.Principal = dec(-100) }, "principal"},
		{"zero tenure", func(p *ScheduleParams) { p.TenureMonths = 0 }, "tenureMonths"},
		{"zero installment", func(p *ScheduleParams) { p.InstallmentAmount = decimal.Zero }, "installmentAmount"},
		{"negative rate", func(p *ScheduleParams) { p.FeeRatePercent = dec(-1) }, "feeRatePercent"},
		{"zero first due date", func(p *ScheduleParams) { p.FirstDueDate = time.Time{} }, "firstDueDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := valid
			tt.mutate(&params)
			_, err := GenerateSchedule(params)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("GenerateSchedule() error = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("ValidationError.Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name   string
		base   time.Time
		months int
		want   time.Time
	}{
		{"regular month", day(2024, time.March, 5), 1, day(2024, time.April, 5)},
		{"day 31 into april", day(2024, time.March, 31), 1, day(2024, time.April, 30)},
		{"day 30 into february", day(2023, time.December, 30), 2, day(2024, time.February, 29)},
		{"non leap february", day(2023, time.January, 29), 1, day(2023, time.February, 28)},
		{"year rollover", day(2024, time.November, 15), 3, day(2025, time.February, 15)},
		{"zero months", day(2024, time.June, 10), 0, day(2024, time.June, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AddMonthsClamped(tt.base, tt.months); !got.Equal(tt.want) {
				t.Errorf("AddMonthsClamped(%s, %d) = %s, want %s", tt.base, tt.months, got, tt.want)
			}
		})
	}
}

func TestPriceInstallment(t *testing.T) {
	// 120000 at 12% p.a. over 12 months: flat fee 14400, total 134400
	got := PriceInstallment(dec(120000), dec(12), 12)
	if !got.Equal(dec(11200)) {
		t.Errorf("PriceInstallment() = %s, want 11200", got)
	}
}

func TestFlatFee(t *testing.T) {
	// 101588 at 12% p.a. over 6 months
	got := FlatFee(dec(101588), dec(12), 6)
	if !got.Equal(dec(6095)) {
		t.Errorf("FlatFee() = %s, want 6095", got)
	}
}
