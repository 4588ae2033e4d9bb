package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Expense is an operating cost paid out of the cash account. Always a
// ledger debit.
type Expense struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	CompanyID uint            `gorm:"index" json:"company_id"`
	Date      time.Time       `json:"date"`
	Narration string          `gorm:"type:text" json:"narration"`
	Amount    decimal.Decimal `gorm:"type:decimal(15,2)" json:"amount"`
}
