package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PartnerTransactionType distinguishes money a partner puts in from money
// they take out.
type PartnerTransactionType string

const (
	PartnerTransactionInvestment PartnerTransactionType = "investment"
	PartnerTransactionWithdrawal PartnerTransactionType = "withdrawal"
)

// PartnerTransaction is a capital movement by a business partner. It feeds
// the cash ledger as a credit (investment) or debit (withdrawal).
type PartnerTransaction struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	CompanyID   uint                   `gorm:"index" json:"company_id"`
	PartnerName string                 `gorm:"type:varchar(255)" json:"partner_name"`
	Type        PartnerTransactionType `gorm:"type:varchar(20)" json:"type"`
	Date        time.Time              `json:"date"`
	Amount      decimal.Decimal        `gorm:"type:decimal(15,2)" json:"amount"`
}
