package engine

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"recordbook_app_echo/internal/models"
)

// EntryDirection is the side of a ledger entry against the cash balance.
type EntryDirection string

const (
	EntryCredit EntryDirection = "Credit"
	EntryDebit  EntryDirection = "Debit"
)

// EntryCategory labels the origin of a ledger entry.
type EntryCategory string

const (
	CategoryRecordDisbursal EntryCategory = "RecordDisbursal"
	CategoryInstallment     EntryCategory = "Installment"
	CategoryPartner         EntryCategory = "Partner"
	CategoryExpense         EntryCategory = "Expense"
	CategoryFee             EntryCategory = "Fee"
	CategorySettlement      EntryCategory = "Settlement"
)

// LedgerEntry is one atomic credit or debit against the aggregate cash
// balance, derived from a record event, partner transaction, expense, or
// manual journal correction. Entries are computed on demand and never
// persisted.
type LedgerEntry struct {
	Date           time.Time       `json:"date"`
	Particulars    string          `json:"particulars"`
	Direction      EntryDirection  `json:"direction"`
	Category       EntryCategory   `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	SourceRecordID *uint           `json:"sourceRecordId,omitempty"`
}

// MonthlyLedger is one calendar-month bucket with opening and closing
// running balances. The closing balance is accumulated chronologically, but
// Entries are ordered newest-first for presentation.
type MonthlyLedger struct {
	Month          time.Time       `json:"month"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	Entries        []LedgerEntry   `json:"entries"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
}

// LedgerInput is everything the aggregation folds over. OpeningBalance is
// the persisted company-level seed for the very first month, not something
// the engine derives.
type LedgerInput struct {
	Records             []models.Record
	PartnerTransactions []models.PartnerTransaction
	Expenses            []models.Expense
	ManualEntries       []models.JournalEntry
	OpeningBalance      decimal.Decimal
}

// BuildLedger merges record lifecycle events, partner transactions,
// expenses, and manual journal corrections into month-bucketed ledgers with
// running balances. Deterministic for identical inputs; malformed records
// are skipped with a logged warning so one bad historical row cannot block
// the whole view.
func BuildLedger(in LedgerInput) []MonthlyLedger {
	entries := ExtractEntries(in)
	return bucketByMonth(entries, in.OpeningBalance)
}

// ExtractEntries flattens every input source into ledger entries, unsorted.
func ExtractEntries(in LedgerInput) []LedgerEntry {
	var entries []LedgerEntry

	for _, tx := range in.PartnerTransactions {
		dir := EntryCredit
		if tx.Type == models.PartnerTransactionWithdrawal {
			dir = EntryDebit
		}
		entries = append(entries, LedgerEntry{
			Date:        tx.Date,
			Particulars: partnerParticulars(tx),
			Direction:   dir,
			Category:    CategoryPartner,
			Amount:      tx.Amount,
		})
	}

	for _, exp := range in.Expenses {
		entries = append(entries, LedgerEntry{
			Date:        exp.Date,
			Particulars: exp.Narration,
			Direction:   EntryDebit,
			Category:    CategoryExpense,
			Amount:      exp.Amount,
		})
	}

	for _, je := range in.ManualEntries {
		entries = append(entries, manualEntryLines(je)...)
	}

	for _, r := range in.Records {
		recEntries, err := recordEntries(r, in.ManualEntries)
		if err != nil {
			log.Printf("WARN: ledger aggregation skipping record %d: %v", r.ID, err)
			continue
		}
		entries = append(entries, recEntries...)
	}

	return entries
}

// manualEntryLines turns the cash/bank legs of a manual journal entry into
// ledger entries. The stated direction is inverted: a journal "Credit"
// against cash means cash went out, which is a ledger debit. Non-cash legs
// (income, receivable) do not touch the cash balance and are ignored.
func manualEntryLines(je models.JournalEntry) []LedgerEntry {
	var out []LedgerEntry
	for _, line := range je.Lines {
		if line.Account != models.CashBankAccount {
			continue
		}
		dir := EntryDebit
		if line.Type == models.JournalLineDebit {
			dir = EntryCredit
		}
		category := CategoryFee
		if je.RecordID != nil {
			category = CategoryRecordDisbursal
		}
		particulars := je.Narration
		if particulars == "" {
			particulars = line.Account
		}
		out = append(out, LedgerEntry{
			Date:           je.Date,
			Particulars:    particulars,
			Direction:      dir,
			Category:       category,
			Amount:         line.Amount,
			SourceRecordID: je.RecordID,
		})
	}
	return out
}

// recordEntries extracts the cash movements implied by one record's
// lifecycle: the inception disbursal, setup and adjustment fees, adjustment
// top-ups (unless a manual correction already covers them), paid
// installments, and the settlement payoff.
func recordEntries(r models.Record, manual []models.JournalEntry) ([]LedgerEntry, error) {
	if r.StartDate.IsZero() {
		return nil, fmt.Errorf("missing start date")
	}
	if r.Principal.IsNegative() {
		return nil, fmt.Errorf("negative principal %s", r.Principal)
	}

	recordID := r.ID
	var out []LedgerEntry

	addedTotal := decimal.Zero
	adjustmentCharges := decimal.Zero
	for _, ev := range r.AdjustmentEvents {
		addedTotal = addedTotal.Add(ev.AddedPrincipal)
		adjustmentCharges = adjustmentCharges.Add(ev.ServiceCharge)
	}

	// Amount actually disbursed at inception; later top-ups are entered
	// per adjustment event below.
	disbursed := r.Principal.Sub(addedTotal)
	if disbursed.IsPositive() {
		out = append(out, LedgerEntry{
			Date:           r.StartDate,
			Particulars:    recordParticulars("Disbursal", r),
			Direction:      EntryDebit,
			Category:       CategoryRecordDisbursal,
			Amount:         disbursed,
			SourceRecordID: &recordID,
		})
	}

	if initialCharge := r.ServiceCharge.Sub(adjustmentCharges); initialCharge.IsPositive() {
		out = append(out, LedgerEntry{
			Date:           r.StartDate,
			Particulars:    recordParticulars("Service charge", r),
			Direction:      EntryCredit,
			Category:       CategoryFee,
			Amount:         initialCharge,
			SourceRecordID: &recordID,
		})
	}

	for _, ev := range r.AdjustmentEvents {
		if hasManualCorrection(manual, r.ID, ev.Date) {
			continue
		}
		out = append(out, LedgerEntry{
			Date:           ev.Date,
			Particulars:    recordParticulars("Additional disbursal", r),
			Direction:      EntryDebit,
			Category:       CategoryRecordDisbursal,
			Amount:         ev.AddedPrincipal,
			SourceRecordID: &recordID,
		})
		if ev.ServiceCharge.IsPositive() {
			out = append(out, LedgerEntry{
				Date:           ev.Date,
				Particulars:    recordParticulars("Adjustment service charge", r),
				Direction:      EntryCredit,
				Category:       CategoryFee,
				Amount:         ev.ServiceCharge,
				SourceRecordID: &recordID,
			})
		}
	}

	for _, inst := range r.Installments {
		if inst.Status != models.InstallmentStatusPaid || inst.PaymentDate == nil {
			continue
		}
		out = append(out, LedgerEntry{
			Date:           *inst.PaymentDate,
			Particulars:    recordParticulars(fmt.Sprintf("Installment #%d", inst.InstallmentNumber), r),
			Direction:      EntryCredit,
			Category:       CategoryInstallment,
			Amount:         inst.PaidAmount(),
			SourceRecordID: &recordID,
		})
	}

	if r.Settlement != nil {
		out = append(out, LedgerEntry{
			Date:           r.Settlement.Date,
			Particulars:    recordParticulars("Settlement", r),
			Direction:      EntryCredit,
			Category:       CategorySettlement,
			Amount:         r.Settlement.TotalPaid,
			SourceRecordID: &recordID,
		})
	}

	return out, nil
}

// hasManualCorrection reports whether a manual journal entry already covers
// an adjustment event: same record, same calendar day. Matching on the
// record reference plus the date keeps a manually re-entered top-up from
// being counted twice.
func hasManualCorrection(manual []models.JournalEntry, recordID uint, date time.Time) bool {
	day := date.Format("2006-01-02")
	for _, je := range manual {
		if je.RecordID == nil || *je.RecordID != recordID {
			continue
		}
		if je.Date.Format("2006-01-02") == day {
			return true
		}
	}
	return false
}

func bucketByMonth(entries []LedgerEntry, openingBalance decimal.Decimal) []MonthlyLedger {
	if len(entries) == 0 {
		return nil
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})

	first := startOfMonth(entries[0].Date)
	last := startOfMonth(entries[len(entries)-1].Date)

	var out []MonthlyLedger
	running := openingBalance
	idx := 0
	for month := first; !month.After(last); month = month.AddDate(0, 1, 0) {
		next := month.AddDate(0, 1, 0)
		opening := running
		var monthEntries []LedgerEntry
		for idx < len(entries) && entries[idx].Date.Before(next) {
			e := entries[idx]
			idx++
			monthEntries = append(monthEntries, e)
			if e.Direction == EntryCredit {
				running = running.Add(e.Amount)
			} else {
				running = running.Sub(e.Amount)
			}
		}
		// Quiet months are only worth showing while a balance is carried.
		if len(monthEntries) == 0 && running.IsZero() {
			continue
		}
		out = append(out, MonthlyLedger{
			Month:          month,
			OpeningBalance: opening,
			Entries:        reverseEntries(monthEntries),
			ClosingBalance: running,
		})
	}
	return out
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func reverseEntries(entries []LedgerEntry) []LedgerEntry {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries
}

func partnerParticulars(tx models.PartnerTransaction) string {
	label := "Partner investment"
	if tx.Type == models.PartnerTransactionWithdrawal {
		label = "Partner withdrawal"
	}
	if tx.PartnerName != "" {
		return fmt.Sprintf("%s - %s", label, tx.PartnerName)
	}
	return label
}

func recordParticulars(label string, r models.Record) string {
	if r.Customer.Name != "" {
		return fmt.Sprintf("%s - %s", label, r.Customer.Name)
	}
	return fmt.Sprintf("%s - record #%d", label, r.ID)
}
