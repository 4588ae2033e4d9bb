package engine

import (
	"errors"
	"testing"
	"time"

	"recordbook_app_echo/internal/models"
)

// activeRecord builds an Active record with a freshly generated 12-month
// schedule and the given number of leading installments marked Paid.
func activeRecord(t *testing.T, paidCount int) models.Record {
	t.Helper()
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
	for i := 0; i < paidCount; i++ {
		paidOn := schedule[i].DueDate
		schedule[i].Status = models.InstallmentStatusPaid
		schedule[i].PaymentDate = &paidOn
	}
	return models.Record{
		ID:                1,
		Principal:         dec(120000),
		FeeRatePercent:    dec(12),
		TenureMonths:      12,
		InstallmentAmount: dec(10660),
		Status:            models.RecordStatusActive,
		InstallmentDueDay: 1,
		StartDate:         day(2024, time.January, 15),
		Installments:      schedule,
	}
}

func TestOutstandingNothingPaid(t *testing.T) {
	record := activeRecord(t, 0)
	got, err := Outstanding(record)
	if err != nil {
		t.Fatalf("Outstanding() error = %v", err)
	}
	if !got.Equal(dec(120000)) {
		t.Errorf("Outstanding() = %s, want 120000", got)
	}
}

func TestOutstandingAfterPayments(t *testing.T) {
	record := activeRecord(t, 4)
	got, err := Outstanding(record)
	if err != nil {
		t.Fatalf("Outstanding() error = %v", err)
	}
	// closing balance of installment 4 in the declining-balance schedule
	if !got.Equal(dec(81588)) {
		t.Errorf("Outstanding() = %s, want 81588", got)
	}
}

func TestOutstandingOverdueRecord(t *testing.T) {
	record := activeRecord(t, 2)
	record.Status = models.RecordStatusOverdue
	got, err := Outstanding(record)
	if err != nil {
		t.Fatalf("Outstanding() error = %v", err)
	}
	if !got.Equal(dec(100985)) {
		t.Errorf("Outstanding() = %s, want 100985", got)
	}
}

func TestOutstandingInvalidStatus(t *testing.T) {
	for _, status := range []models.RecordStatus{models.RecordStatusDraft, models.RecordStatusSettled} {
		record := activeRecord(t, 0)
		record.Status = status
		_, err := Outstanding(record)
		var serr *InvalidStateError
		if !errors.As(err, &serr) {
			t.Errorf("Outstanding() with status %s: error = %v, want InvalidStateError", status, err)
		}
	}
}

func TestOutstandingUnorderedInstallments(t *testing.T) {
	record := activeRecord(t, 4)
	// reverse the slice; derivation must not depend on storage order
	for i, j := 0, len(record.Installments)-1; i < j; i, j = i+1, j-1 {
		record.Installments[i], record.Installments[j] = record.Installments[j], record.Installments[i]
	}
	got, err := Outstanding(record)
	if err != nil {
		t.Fatalf("Outstanding() error = %v", err)
	}
	if !got.Equal(dec(81588)) {
		t.Errorf("Outstanding() = %s, want 81588", got)
	}
}

func TestOutstandingUsesSegmentAfterAdjustment(t *testing.T) {
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

	// nothing in the new segment is paid yet, so the full new principal is
	// outstanding even though four old rows are Paid
	got, err := Outstanding(result.Record)
	if err != nil {
		t.Fatalf("Outstanding() error = %v", err)
	}
	if !got.Equal(dec(101588)) {
		t.Errorf("Outstanding() after adjustment = %s, want 101588", got)
	}

	// paying the first new installment moves the balance to its closing
	adjusted := result.Record
	for i := range adjusted.Installments {
		if adjusted.Installments[i].InstallmentNumber == 5 {
			paidOn := adjusted.Installments[i].DueDate
			adjusted.Installments[i].Status = models.InstallmentStatusPaid
			adjusted.Installments[i].PaymentDate = &paidOn
		}
	}
	got, err = Outstanding(adjusted)
	if err != nil {
		t.Fatalf("Outstanding() error = %v", err)
	}
	if !got.Equal(dec(84657)) {
		t.Errorf("Outstanding() after first new payment = %s, want 84657", got)
	}
}
