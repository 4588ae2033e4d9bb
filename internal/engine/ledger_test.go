package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"recordbook_app_echo/internal/models"
)

func TestBucketByMonthSingleMonth(t *testing.T) {
	entries := []LedgerEntry{
		{Date: day(2024, time.May, 5), Particulars: "Office rent", Direction: EntryDebit, Category: CategoryExpense, Amount: dec(500)},
		{Date: day(2024, time.May, 20), Particulars: "Installment #3", Direction: EntryCredit, Category: CategoryInstallment, Amount: dec(2000)},
	}

	months := bucketByMonth(entries, decimal.Zero)
	if len(months) != 1 {
		t.Fatalf("month count = %d, want 1", len(months))
	}
	m := months[0]
	if !m.Month.Equal(day(2024, time.May, 1)) {
		t.Errorf("month = %s, want 2024-05-01", m.Month)
	}
	if !m.OpeningBalance.IsZero() {
		t.Errorf("opening balance = %s, want 0", m.OpeningBalance)
	}
	if !m.ClosingBalance.Equal(dec(1500)) {
		t.Errorf("closing balance = %s, want 1500", m.ClosingBalance)
	}
	// entries are presented newest-first
	if len(m.Entries) != 2 || !m.Entries[0].Date.After(m.Entries[1].Date) {
		t.Errorf("entries not in reverse-chronological order: %+v", m.Entries)
	}
}

func TestBucketByMonthRunningBalance(t *testing.T) {
	entries := []LedgerEntry{
		{Date: day(2024, time.January, 10), Direction: EntryCredit, Amount: dec(10000)},
		{Date: day(2024, time.January, 25), Direction: EntryDebit, Amount: dec(4000)},
		// February has no activity but carries a balance
		{Date: day(2024, time.March, 3), Direction: EntryDebit, Amount: dec(1000)},
	}

	months := bucketByMonth(entries, dec(500))
	if len(months) != 3 {
		t.Fatalf("month count = %d, want 3 (quiet month with balance still emitted)", len(months))
	}

	jan, feb, mar := months[0], months[1], months[2]
	if !jan.OpeningBalance.Equal(dec(500)) || !jan.ClosingBalance.Equal(dec(6500)) {
		t.Errorf("january balances = %s -> %s, want 500 -> 6500", jan.OpeningBalance, jan.ClosingBalance)
	}
	if len(feb.Entries) != 0 {
		t.Errorf("february entry count = %d, want 0", len(feb.Entries))
	}
	if !feb.OpeningBalance.Equal(dec(6500)) || !feb.ClosingBalance.Equal(dec(6500)) {
		t.Errorf("february balances = %s -> %s, want 6500 -> 6500", feb.OpeningBalance, feb.ClosingBalance)
	}
	if !mar.OpeningBalance.Equal(dec(6500)) || !mar.ClosingBalance.Equal(dec(5500)) {
		t.Errorf("march balances = %s -> %s, want 6500 -> 5500", mar.OpeningBalance, mar.ClosingBalance)
	}
}

func TestBucketByMonthOmitsQuietZeroMonths(t *testing.T) {
	entries := []LedgerEntry{
		{Date: day(2024, time.January, 10), Direction: EntryCredit, Amount: dec(500)},
		{Date: day(2024, time.January, 20), Direction: EntryDebit, Amount: dec(500)},
		{Date: day(2024, time.March, 3), Direction: EntryCredit, Amount: dec(100)},
	}

	months := bucketByMonth(entries, decimal.Zero)
	if len(months) != 2 {
		t.Fatalf("month count = %d, want 2 (quiet zero-balance month omitted)", len(months))
	}
	if !months[0].Month.Equal(day(2024, time.January, 1)) || !months[1].Month.Equal(day(2024, time.March, 1)) {
		t.Errorf("months = %s, %s; want january and march", months[0].Month, months[1].Month)
	}
}

func TestBuildLedgerEmptyInput(t *testing.T) {
	if got := BuildLedger(LedgerInput{OpeningBalance: dec(1000)}); got != nil {
		t.Errorf("BuildLedger() with no entries = %+v, want nil", got)
	}
}

func TestExtractEntriesPartnerAndExpense(t *testing.T) {
	in := LedgerInput{
		PartnerTransactions: []models.PartnerTransaction{
			{PartnerName: "Andi", Type: models.PartnerTransactionInvestment, Date: day(2024, time.April, 1), Amount: dec(50000)},
			{PartnerName: "Andi", Type: models.PartnerTransactionWithdrawal, Date: day(2024, time.April, 20), Amount: dec(10000)},
		},
		Expenses: []models.Expense{
			{Date: day(2024, time.April, 10), Narration: "Stamp duty", Amount: dec(250)},
		},
	}

	entries := ExtractEntries(in)
	if len(entries) != 3 {
		t.Fatalf("entry count = %d, want 3", len(entries))
	}
	if entries[0].Direction != EntryCredit || entries[0].Category != CategoryPartner {
		t.Errorf("investment mapped to %s/%s, want Credit/Partner", entries[0].Direction, entries[0].Category)
	}
	if entries[1].Direction != EntryDebit || entries[1].Category != CategoryPartner {
		t.Errorf("withdrawal mapped to %s/%s, want Debit/Partner", entries[1].Direction, entries[1].Category)
	}
	if entries[2].Direction != EntryDebit || entries[2].Category != CategoryExpense {
		t.Errorf("expense mapped to %s/%s, want Debit/Expense", entries[2].Direction, entries[2].Category)
	}
}

func TestExtractEntriesManualInversion(t *testing.T) {
	recordID := uint(9)
	in := LedgerInput{
		ManualEntries: []models.JournalEntry{
			{
				RecordID:  &recordID,
				Date:      day(2024, time.May, 2),
				Narration: "Top-up correction",
				Lines: []models.JournalLine{
					{Type: models.JournalLineCredit, Account: models.CashBankAccount, Amount: dec(19600)},
					{Type: models.JournalLineCredit, Account: "Service Income", Amount: dec(400)},
					{Type: models.JournalLineDebit, Account: "Credit Outstanding", Amount: dec(20000)},
				},
			},
		},
	}

	entries := ExtractEntries(in)
	if len(entries) != 1 {
		t.Fatalf("entry count = %d, want 1 (only the cash leg feeds the ledger)", len(entries))
	}
	e := entries[0]
	// a journal Credit against cash means cash went out
	if e.Direction != EntryDebit {
		t.Errorf("direction = %s, want Debit", e.Direction)
	}
	if e.Category != CategoryRecordDisbursal {
		t.Errorf("category = %s, want RecordDisbursal for record-linked entry", e.Category)
	}
	if !e.Amount.Equal(dec(19600)) {
		t.Errorf("amount = %s, want 19600", e.Amount)
	}
	if e.SourceRecordID == nil || *e.SourceRecordID != recordID {
		t.Errorf("source record id = %v, want %d", e.SourceRecordID, recordID)
	}
}

func TestExtractEntriesRecordLifecycle(t *testing.T) {
	record := activeRecord(t, 2)
	record.ServiceCharge = dec(2400)

	entries := ExtractEntries(LedgerInput{Records: []models.Record{record}})

	var disbursal, fee, installments []LedgerEntry
	for _, e := range entries {
		switch e.Category {
		case CategoryRecordDisbursal:
			disbursal = append(disbursal, e)
		case CategoryFee:
			fee = append(fee, e)
		case CategoryInstallment:
			installments = append(installments, e)
		}
	}

	if len(disbursal) != 1 {
		t.Fatalf("disbursal entries = %d, want 1", len(disbursal))
	}
	if disbursal[0].Direction != EntryDebit || !disbursal[0].Amount.Equal(dec(120000)) {
		t.Errorf("disbursal = %s %s, want Debit 120000", disbursal[0].Direction, disbursal[0].Amount)
	}
	if !disbursal[0].Date.Equal(record.StartDate) {
		t.Errorf("disbursal date = %s, want record start date %s", disbursal[0].Date, record.StartDate)
	}

	if len(fee) != 1 || fee[0].Direction != EntryCredit || !fee[0].Amount.Equal(dec(2400)) {
		t.Errorf("fee entries = %+v, want one Credit of 2400", fee)
	}

	if len(installments) != 2 {
		t.Fatalf("installment entries = %d, want 2 paid", len(installments))
	}
	for _, e := range installments {
		if e.Direction != EntryCredit || !e.Amount.Equal(dec(10660)) {
			t.Errorf("installment entry = %s %s, want Credit 10660", e.Direction, e.Amount)
		}
	}
}

func TestExtractEntriesSettlement(t *testing.T) {
	record := activeRecord(t, 4)
	result, err := Settle(record, dec(2), day(2024, time.June, 15))
	if err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	entries := ExtractEntries(LedgerInput{Records: []models.Record{result.Record}})
	var settlements []LedgerEntry
	for _, e := range entries {
		if e.Category == CategorySettlement {
			settlements = append(settlements, e)
		}
	}
	if len(settlements) != 1 {
		t.Fatalf("settlement entries = %d, want 1", len(settlements))
	}
	got := settlements[0]
	if got.Direction != EntryCredit || !got.Amount.Equal(result.PayoffAmount) {
		t.Errorf("settlement entry = %s %s, want Credit %s", got.Direction, got.Amount, result.PayoffAmount)
	}
	if !got.Date.Equal(day(2024, time.June, 15)) {
		t.Errorf("settlement date = %s, want 2024-06-15", got.Date)
	}
}

func TestExtractEntriesAdjustmentTopUpAndDedup(t *testing.T) {
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
	adjusted := result.Record

	// without a manual correction the top-up and its fee are synthesized
	entries := ExtractEntries(LedgerInput{Records: []models.Record{adjusted}})
	if got := countTopUps(entries, dec(20000)); got != 1 {
		t.Errorf("top-up entries without manual correction = %d, want 1", got)
	}

	// a manual entry for the same record on the same day suppresses them
	manual := models.JournalEntry{
		RecordID: &adjusted.ID,
		Date:     day(2024, time.June, 10),
		Lines: []models.JournalLine{
			{Type: models.JournalLineCredit, Account: models.CashBankAccount, Amount: dec(19600)},
		},
	}
	entries = ExtractEntries(LedgerInput{
		Records:       []models.Record{adjusted},
		ManualEntries: []models.JournalEntry{manual},
	})
	if got := countTopUps(entries, dec(20000)); got != 0 {
		t.Errorf("top-up entries with manual correction = %d, want 0", got)
	}

	// a manual entry on a different day does not suppress
	manual.Date = day(2024, time.June, 11)
	entries = ExtractEntries(LedgerInput{
		Records:       []models.Record{adjusted},
		ManualEntries: []models.JournalEntry{manual},
	})
	if got := countTopUps(entries, dec(20000)); got != 1 {
		t.Errorf("top-up entries with off-day manual correction = %d, want 1", got)
	}
}

func countTopUps(entries []LedgerEntry, amount decimal.Decimal) int {
	n := 0
	for _, e := range entries {
		if e.Category == CategoryRecordDisbursal && e.Direction == EntryDebit && e.Amount.Equal(amount) {
			n++
		}
	}
	return n
}

func TestBuildLedgerSkipsMalformedRecords(t *testing.T) {
	bad := activeRecord(t, 2)
	bad.StartDate = time.Time{}
	good := activeRecord(t, 0)

	entries := ExtractEntries(LedgerInput{Records: []models.Record{bad, good}})
	for _, e := range entries {
		if e.Category == CategoryInstallment {
			t.Errorf("entry extracted from record with no start date: %+v", e)
		}
	}
	// the well-formed record still produced its disbursal
	if got := countTopUps(entries, dec(120000)); got != 1 {
		t.Errorf("disbursal entries from well-formed record = %d, want 1", got)
	}
}

func TestBuildLedgerDeterministic(t *testing.T) {
	record := activeRecord(t, 3)
	record.ServiceCharge = dec(2400)
	in := LedgerInput{
		Records: []models.Record{record},
		PartnerTransactions: []models.PartnerTransaction{
			{PartnerName: "Budi", Type: models.PartnerTransactionInvestment, Date: day(2024, time.January, 2), Amount: dec(200000)},
		},
		Expenses: []models.Expense{
			{Date: day(2024, time.March, 9), Narration: "Ledger book", Amount: dec(50)},
		},
		OpeningBalance: dec(1000),
	}

	first := BuildLedger(in)
	second := BuildLedger(in)
	if !reflect.DeepEqual(first, second) {
		t.Error("BuildLedger() is not deterministic for identical inputs")
	}
}
