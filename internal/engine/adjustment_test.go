package engine

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"recordbook_app_echo/internal/models"
)

func TestAdjustRestructuresSchedule(t *testing.T) {
	record := activeRecord(t, 4)

	result, err := Adjust(record, AdjustParams{
		AddedPrincipal:       dec(20000),
		NewTenureMonths:      6,
		FeeRatePercent:       dec(12),
		ServiceChargePercent: dec(2),
		Now:                  day(2024, time.June, 10),
	})
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}

	if !result.OutstandingBefore.Equal(dec(81588)) {
		t.Errorf("OutstandingBefore = %s, want 81588", result.OutstandingBefore)
	}
	if !result.NewPrincipal.Equal(dec(101588)) {
		t.Errorf("NewPrincipal = %s, want 101588", result.NewPrincipal)
	}
	if !result.ServiceCharge.Equal(dec(400)) {
		t.Errorf("ServiceCharge = %s, want 400", result.ServiceCharge)
	}

	adjusted := result.Record
	if len(adjusted.Installments) != 10 {
		t.Fatalf("installment count = %d, want 10 (4 paid + 6 new)", len(adjusted.Installments))
	}
	if adjusted.TenureMonths != 10 {
		t.Errorf("TenureMonths = %d, want 10", adjusted.TenureMonths)
	}
	if !adjusted.Principal.Equal(dec(101588)) {
		t.Errorf("Principal = %s, want 101588", adjusted.Principal)
	}
	// (101588 + flat fee 6095) / 6, rounded
	if !adjusted.InstallmentAmount.Equal(dec(17947)) {
		t.Errorf("InstallmentAmount = %s, want 17947", adjusted.InstallmentAmount)
	}
}

func TestAdjustPreservesPaidHistory(t *testing.T) {
	record := activeRecord(t, 4)
	paidBefore := record.PaidInstallments()

	result, err := Adjust(record, AdjustParams{
		AddedPrincipal:       dec(20000),
		NewTenureMonths:      6,
		FeeRatePercent:       dec(12),
		ServiceChargePercent: dec(2),
		Now:                  day(2024, time.June, 10),
	})
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}

	paidAfter := result.Record.PaidInstallments()
	if len(paidAfter) != len(paidBefore) {
		t.Fatalf("paid count after adjust = %d, want %d", len(paidAfter), len(paidBefore))
	}
	for i := range paidBefore {
		if !reflect.DeepEqual(paidBefore[i], paidAfter[i]) {
			t.Errorf("paid installment %d changed across adjustment", paidBefore[i].InstallmentNumber)
		}
	}
}

func TestAdjustNewTailNumberingAndDates(t *testing.T) {
	record := activeRecord(t, 4)

	result, err := Adjust(record, AdjustParams{
		AddedPrincipal:       dec(20000),
		NewTenureMonths:      6,
		FeeRatePercent:       dec(12),
		ServiceChargePercent: dec(2),
		Now:                  day(2024, time.June, 10),
	})
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}

	tail := result.NewInstallments
	if len(tail) != 6 {
		t.Fatalf("new tail length = %d, want 6", len(tail))
	}
	for i, inst := range tail {
		if inst.InstallmentNumber != 5+i {
			t.Errorf("tail installment %d number = %d, want %d", i, inst.InstallmentNumber, 5+i)
		}
		if inst.Status != models.InstallmentStatusPending {
			t.Errorf("tail installment %d status = %s, want Pending", inst.InstallmentNumber, inst.Status)
		}
		wantDue := day(2024, time.July+time.Month(i), 1)
		if !inst.DueDate.Equal(wantDue) {
			t.Errorf("tail installment %d due date = %s, want %s", inst.InstallmentNumber, inst.DueDate, wantDue)
		}
	}
	// the discarded pending rows are reported for transactional cleanup
	if len(result.ReplacedPending) != 8 {
		t.Errorf("replaced pending count = %d, want 8", len(result.ReplacedPending))
	}
}

func TestAdjustAppendsEvent(t *testing.T) {
	record := activeRecord(t, 4)
	adjustedAt := day(2024, time.June, 10)

	result, err := Adjust(record, AdjustParams{
		AddedPrincipal:       dec(20000),
		NewTenureMonths:      6,
		FeeRatePercent:       dec(12),
		ServiceChargePercent: dec(2),
		Now:                  adjustedAt,
	})
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}

	events := result.Record.AdjustmentEvents
	if len(events) != 1 {
		t.Fatalf("event count = %d, want 1", len(events))
	}
	ev := events[0]
	if !ev.Date.Equal(adjustedAt) {
		t.Errorf("event date = %s, want %s", ev.Date, adjustedAt)
	}
	if !ev.AddedPrincipal.Equal(dec(20000)) ||
		!ev.OutstandingBefore.Equal(dec(81588)) ||
		!ev.NewInstallmentAmount.Equal(dec(17947)) ||
		ev.NewTenureMonths != 6 ||
		!ev.ServiceCharge.Equal(dec(400)) {
		t.Errorf("event = %+v, want added 20000, outstanding 81588, installment 17947, tenure 6, charge 400", ev)
	}

	if !result.Record.ServiceCharge.Equal(record.ServiceCharge.Add(dec(400))) {
		t.Errorf("record service charge = %s, want prior + 400", result.Record.ServiceCharge)
	}
}

func TestAdjustRejectsInvalidInput(t *testing.T) {
	valid := AdjustParams{
		AddedPrincipal:       dec(20000),
		NewTenureMonths:      6,
		FeeRatePercent:       dec(12),
		ServiceChargePercent: dec(2),
		Now:                  day(2024, time.June, 10),
	}

	tests := []struct {
		name   string
		mutate func(*AdjustParams)
	}{
		{"zero added principal", func(p *AdjustParams) { p.AddedPrincipal = decimal.Zero }},
		{"negative added principal", func(p *AdjustParams) { p.AddedPrincipal = dec(-500) }},
		{"zero tenure", func(p *AdjustParams) { p.NewTenureMonths = 0 }},
		{"negative rate", func(p *AdjustParams) { p.FeeRatePercent = dec(-1) }},
		{"negative service charge percent", func(p *AdjustParams) { p.ServiceChargePercent = dec(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := activeRecord(t, 4)
			params := valid
			tt.mutate(&params)
			_, err := Adjust(record, params)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Adjust() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestAdjustRejectsWrongStatus(t *testing.T) {
	params := AdjustParams{
		AddedPrincipal:       dec(20000),
		NewTenureMonths:      6,
		FeeRatePercent:       dec(12),
		ServiceChargePercent: dec(2),
		Now:                  day(2024, time.June, 10),
	}
	for _, status := range []models.RecordStatus{models.RecordStatusDraft, models.RecordStatusSettled} {
		record := activeRecord(t, 4)
		record.Status = status
		_, err := Adjust(record, params)
		var serr *InvalidStateError
		if !errors.As(err, &serr) {
			t.Errorf("Adjust() with status %s: error = %v, want InvalidStateError", status, err)
		}
	}
}

func TestAdjustDoesNotMutateInput(t *testing.T) {
	record := activeRecord(t, 4)
	before := cloneRecord(record)

	if _, err := Adjust(record, AdjustParams{
		AddedPrincipal:       dec(20000),
		NewTenureMonths:      6,
		FeeRatePercent:       dec(12),
		ServiceChargePercent: dec(2),
		Now:                  day(2024, time.June, 10),
	}); err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	if !reflect.DeepEqual(record, before) {
		t.Error("Adjust() mutated its input record")
	}
}
