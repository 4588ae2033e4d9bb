package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// JournalLineType is the stated direction of a journal line against its
// own account. Note that for the cash/bank account the ledger view inverts
// this: a Credit against cash means cash left the drawer.
type JournalLineType string

const (
	JournalLineCredit JournalLineType = "Credit"
	JournalLineDebit  JournalLineType = "Debit"
)

// CashBankAccount is the sub-account name whose lines feed the cash ledger.
const CashBankAccount = "Cash / Bank"

// JournalEntry is a manual double-entry correction booked by the operator,
// typically alongside a record adjustment. RecordID links it to the record
// it corrects so the ledger aggregator can suppress the synthetic top-up
// entry it would otherwise emit for the same day.
type JournalEntry struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	CompanyID uint      `gorm:"index" json:"company_id"`
	RecordID  *uint     `gorm:"index" json:"record_id,omitempty"`
	Date      time.Time `json:"date"`
	Narration string    `gorm:"type:text" json:"narration"`

	Lines []JournalLine `gorm:"foreignKey:JournalEntryID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
}

// JournalLine is one leg of a JournalEntry.
type JournalLine struct {
	ID             uint `gorm:"primarykey" json:"id"`
	JournalEntryID uint `gorm:"index" json:"journal_entry_id"`

	Type    JournalLineType `gorm:"type:varchar(10)" json:"type"`
	Account string          `gorm:"type:varchar(100)" json:"account"`
	Amount  decimal.Decimal `gorm:"type:decimal(15,2)" json:"amount"`
}
