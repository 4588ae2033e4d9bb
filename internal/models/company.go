package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Company is the tenant boundary. Every customer, record and finance
// document hangs off exactly one company.
type Company struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name     string `gorm:"type:varchar(255)" json:"name"`
	OwnerUID string `gorm:"type:varchar(128);uniqueIndex" json:"owner_uid"` // Firebase UID
	Address  string `gorm:"type:text" json:"address"`
	Phone    string `gorm:"type:varchar(50)" json:"phone"`

	// OpeningBalance seeds the cash ledger's very first month. It is a
	// persisted running seed, never derived by the ledger itself.
	OpeningBalance decimal.Decimal `gorm:"type:decimal(15,2)" json:"opening_balance"`

	// Defaults applied to new records when the request omits them.
	DefaultFeeRatePercent       decimal.Decimal `gorm:"type:decimal(6,2)" json:"default_fee_rate_percent"`
	DefaultServiceChargePercent decimal.Decimal `gorm:"type:decimal(6,2)" json:"default_service_charge_percent"`
	DefaultDueDay               int             `gorm:"default:1" json:"default_due_day"` // 1..28

	// Relationships
	Customers []Customer `gorm:"foreignKey:CompanyID" json:"customers,omitempty"`
	Records   []Record   `gorm:"foreignKey:CompanyID" json:"records,omitempty"`
}
