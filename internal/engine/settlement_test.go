package engine

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"recordbook_app_echo/internal/models"
)

func TestSettlePayoff(t *testing.T) {
	record := activeRecord(t, 0)
	record.Principal = dec(50000)
	for i := range record.Installments {
		record.Installments[i].Status = models.InstallmentStatusPending
	}

	result, err := Settle(record, dec(2), day(2024, time.June, 15))
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if !result.Outstanding.Equal(dec(50000)) {
		t.Errorf("Outstanding = %s, want 50000", result.Outstanding)
	}
	if !result.FeeAmount.Equal(dec(1000)) {
		t.Errorf("FeeAmount = %s, want 1000", result.FeeAmount)
	}
	if !result.PayoffAmount.Equal(dec(51000)) {
		t.Errorf("PayoffAmount = %s, want 51000", result.PayoffAmount)
	}

	settled := result.Record
	if settled.Status != models.RecordStatusSettled {
		t.Errorf("status = %s, want Settled", settled.Status)
	}
	for _, inst := range settled.Installments {
		if inst.Status == models.InstallmentStatusPending {
			t.Errorf("installment %d still Pending after settlement", inst.InstallmentNumber)
		}
	}
	snap := settled.Settlement
	if snap == nil {
		t.Fatal("settlement snapshot missing")
	}
	if !snap.OutstandingPrincipal.Equal(dec(50000)) || !snap.FeePercent.Equal(dec(2)) || !snap.TotalPaid.Equal(dec(51000)) {
		t.Errorf("snapshot = %+v, want outstanding 50000, fee 2%%, total 51000", snap)
	}
	if !snap.Date.Equal(day(2024, time.June, 15)) {
		t.Errorf("snapshot date = %s, want 2024-06-15", snap.Date)
	}
}

func TestSettleDoesNotMutateInput(t *testing.T) {
	record := activeRecord(t, 2)
	before := cloneRecord(record)

	if _, err := Settle(record, dec(2), day(2024, time.June, 15)); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if !reflect.DeepEqual(record, before) {
		t.Error("Settle() mutated its input record")
	}
}

func TestSettleUndoRoundTrip(t *testing.T) {
	record := activeRecord(t, 4)

	result, err := Settle(record, dec(2), day(2024, time.June, 15))
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	restored, err := UndoSettlement(result.Record)
	if err != nil {
		t.Fatalf("UndoSettlement() error = %v", err)
	}

	if restored.Status != models.RecordStatusActive {
		t.Errorf("status after undo = %s, want Active", restored.Status)
	}
	if restored.Settlement != nil {
		t.Error("settlement snapshot survived undo")
	}
	if len(restored.Installments) != len(record.Installments) {
		t.Fatalf("installment count after undo = %d, want %d", len(restored.Installments), len(record.Installments))
	}
	for i, got := range restored.Installments {
		want := record.Installments[i]
		if got.Status != want.Status {
			t.Errorf("installment %d status = %s, want %s", want.InstallmentNumber, got.Status, want.Status)
		}
		if !got.Amount.Equal(want.Amount) || !got.DueDate.Equal(want.DueDate) {
			t.Errorf("installment %d amount/dueDate changed across settle+undo", want.InstallmentNumber)
		}
	}
}

func TestUndoSettlementInvalidStates(t *testing.T) {
	record := activeRecord(t, 0)

	_, err := UndoSettlement(record)
	var serr *InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("UndoSettlement() on Active record: error = %v, want InvalidStateError", err)
	}

	result, err := Settle(record, dec(2), day(2024, time.June, 15))
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	restored, err := UndoSettlement(result.Record)
	if err != nil {
		t.Fatalf("UndoSettlement() error = %v", err)
	}
	if _, err := UndoSettlement(restored); !errors.As(err, &serr) {
		t.Fatalf("second UndoSettlement(): error = %v, want InvalidStateError", err)
	}
}

func TestSettleRejectsInvalidInput(t *testing.T) {
	record := activeRecord(t, 0)

	var verr *ValidationError
	if _, err := Settle(record, dec(-1), day(2024, time.June, 15)); !errors.As(err, &verr) {
		t.Errorf("Settle() with negative fee: error = %v, want ValidationError", err)
	}

	var serr *InvalidStateError
	record.Status = models.RecordStatusDraft
	if _, err := Settle(record, dec(2), day(2024, time.June, 15)); !errors.As(err, &serr) {
		t.Errorf("Settle() on Draft record: error = %v, want InvalidStateError", err)
	}
}

func TestNormalizeStatusSettlesFullyPaidRecord(t *testing.T) {
	record := activeRecord(t, 12)

	repaired, changed := NormalizeStatus(record)
	if !changed {
		t.Fatal("NormalizeStatus() reported no change for fully paid Active record")
	}
	if repaired.Status != models.RecordStatusSettled {
		t.Errorf("status = %s, want Settled", repaired.Status)
	}

	// idempotent
	again, changed := NormalizeStatus(repaired)
	if changed {
		t.Error("NormalizeStatus() changed an already-normalized record")
	}
	if again.Status != models.RecordStatusSettled {
		t.Errorf("status after second pass = %s, want Settled", again.Status)
	}
}

func TestNormalizeStatusRevertsHalfUndoneSettlement(t *testing.T) {
	record := activeRecord(t, 4)
	record.Status = models.RecordStatusSettled
	record.Settlement = &models.SettlementSnapshot{
		RecordID:  record.ID,
		Date:      day(2024, time.June, 15),
		TotalPaid: dec(80000),
	}

	repaired, changed := NormalizeStatus(record)
	if !changed {
		t.Fatal("NormalizeStatus() reported no change for Settled record with pending installments")
	}
	if repaired.Status != models.RecordStatusActive {
		t.Errorf("status = %s, want Active", repaired.Status)
	}
	if repaired.Settlement != nil {
		t.Error("stale settlement snapshot survived status repair")
	}
}

func TestNormalizeStatusLeavesConsistentRecordsAlone(t *testing.T) {
	for _, tc := range []struct {
		name   string
		record models.Record
	}{
		{"active with pending", activeRecord(t, 4)},
		{"draft without schedule", models.Record{Status: models.RecordStatusDraft}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, changed := NormalizeStatus(tc.record); changed {
				t.Error("NormalizeStatus() modified a consistent record")
			}
		})
	}
}
