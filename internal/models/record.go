package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecordStatus is the lifecycle state of a record.
type RecordStatus string

const (
	RecordStatusDraft   RecordStatus = "Draft"
	RecordStatusActive  RecordStatus = "Active"
	RecordStatusSettled RecordStatus = "Settled"
	RecordStatusOverdue RecordStatus = "Overdue"
)

// InstallmentStatus is the state of a single scheduled installment.
type InstallmentStatus string

const (
	InstallmentStatusPending   InstallmentStatus = "Pending"
	InstallmentStatusPaid      InstallmentStatus = "Paid"
	InstallmentStatusCancelled InstallmentStatus = "Cancelled"
)

// Record is a principal-plus-fee obligation between the company and a
// customer. It is created as a Draft without a schedule, activated into
// Active with a generated schedule, and closed either by paying every
// installment or by settlement.
type Record struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	CompanyID  uint `gorm:"index" json:"company_id"`
	CustomerID uint `gorm:"index" json:"customer_id"`

	// ShareToken is the opaque token used in public customer-portal and
	// payment-link URLs.
	ShareToken string `gorm:"type:varchar(36);uniqueIndex" json:"share_token"`

	Principal         decimal.Decimal `gorm:"type:decimal(15,2)" json:"principal"`
	FeeRatePercent    decimal.Decimal `gorm:"type:decimal(6,2)" json:"fee_rate_percent"` // annual
	TenureMonths      int             `json:"tenure_months"`
	InstallmentAmount decimal.Decimal `gorm:"type:decimal(15,2)" json:"installment_amount"`
	ServiceCharge     decimal.Decimal `gorm:"type:decimal(15,2)" json:"service_charge"`

	Status            RecordStatus `gorm:"type:varchar(20);default:'Draft'" json:"status"`
	InstallmentDueDay int          `json:"installment_due_day"` // 1..28

	// StartDate is the disbursal/commencement date the ledger uses for the
	// initial debit entry. ActivationDate is when the schedule was generated.
	StartDate      time.Time  `json:"start_date"`
	ActivationDate *time.Time `json:"activation_date,omitempty"`

	Notes string `gorm:"type:text" json:"notes"`

	// Relationships
	Customer         Customer            `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Installments     []Installment       `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE" json:"installments,omitempty"`
	AdjustmentEvents []AdjustmentEvent   `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE" json:"adjustment_events,omitempty"`
	Settlement       *SettlementSnapshot `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE" json:"settlement,omitempty"`
}

// Installment is one scheduled due payment within a record's schedule.
// The amortization columns (fee/principal portions, opening/closing balance)
// are materialized at generation time; a Paid installment is immutable.
type Installment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RecordID          uint      `gorm:"index:idx_installments_record_number,priority:1" json:"record_id"`
	InstallmentNumber int       `gorm:"index:idx_installments_record_number,priority:2" json:"installment_number"`
	DueDate           time.Time `json:"due_date"`

	Amount           decimal.Decimal `gorm:"type:decimal(15,2)" json:"amount"`
	FeePortion       decimal.Decimal `gorm:"type:decimal(15,2)" json:"fee_portion"`
	PrincipalPortion decimal.Decimal `gorm:"type:decimal(15,2)" json:"principal_portion"`
	OpeningBalance   decimal.Decimal `gorm:"type:decimal(15,2)" json:"opening_balance"`
	ClosingBalance   decimal.Decimal `gorm:"type:decimal(15,2)" json:"closing_balance"`

	Status        InstallmentStatus   `gorm:"type:varchar(20);default:'Pending'" json:"status"`
	PaymentDate   *time.Time          `json:"payment_date,omitempty"`
	AmountPaid    decimal.NullDecimal `gorm:"type:decimal(15,2)" json:"amount_paid,omitempty"`
	PaymentMethod string              `gorm:"type:varchar(50)" json:"payment_method"`
	Remark        string              `gorm:"type:text" json:"remark"`
}

// PaidAmount returns the amount actually collected for a paid installment,
// falling back to the scheduled amount when no override was recorded.
func (i Installment) PaidAmount() decimal.Decimal {
	if i.AmountPaid.Valid {
		return i.AmountPaid.Decimal
	}
	return i.Amount
}

// AdjustmentEvent is the append-only audit row written by the adjustment
// engine when principal is added mid-term. Rows are never edited or removed.
type AdjustmentEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	RecordID             uint            `gorm:"index" json:"record_id"`
	Date                 time.Time       `json:"date"`
	AddedPrincipal       decimal.Decimal `gorm:"type:decimal(15,2)" json:"added_principal"`
	OutstandingBefore    decimal.Decimal `gorm:"type:decimal(15,2)" json:"outstanding_before"`
	NewInstallmentAmount decimal.Decimal `gorm:"type:decimal(15,2)" json:"new_installment_amount"`
	NewTenureMonths      int             `json:"new_tenure_months"`
	ServiceCharge        decimal.Decimal `gorm:"type:decimal(15,2)" json:"service_charge"`
}

// SettlementSnapshot captures the foreclosure payoff. Present exactly when
// the record status is Settled; cleared atomically on undo.
type SettlementSnapshot struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	RecordID             uint            `gorm:"uniqueIndex" json:"record_id"`
	Date                 time.Time       `json:"date"`
	OutstandingPrincipal decimal.Decimal `gorm:"type:decimal(15,2)" json:"outstanding_principal"`
	FeePercent           decimal.Decimal `gorm:"type:decimal(6,2)" json:"fee_percent"`
	TotalPaid            decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_paid"`
}

// PaidInstallments returns the Paid rows in schedule order.
func (r Record) PaidInstallments() []Installment {
	var paid []Installment
	for _, inst := range r.Installments {
		if inst.Status == InstallmentStatusPaid {
			paid = append(paid, inst)
		}
	}
	return paid
}

// PaidCount returns how many installments have been paid.
func (r Record) PaidCount() int {
	n := 0
	for _, inst := range r.Installments {
		if inst.Status == InstallmentStatusPaid {
			n++
		}
	}
	return n
}

// AllInstallmentsClosed reports whether every installment is Paid or
// Cancelled. An empty schedule is not considered closed.
func (r Record) AllInstallmentsClosed() bool {
	if len(r.Installments) == 0 {
		return false
	}
	for _, inst := range r.Installments {
		if inst.Status != InstallmentStatusPaid && inst.Status != InstallmentStatusCancelled {
			return false
		}
	}
	return true
}

// FirstPending returns the earliest Pending installment, or nil.
func (r Record) FirstPending() *Installment {
	for idx := range r.Installments {
		if r.Installments[idx].Status == InstallmentStatusPending {
			return &r.Installments[idx]
		}
	}
	return nil
}
