package models

import (
	"time"

	"gorm.io/gorm"
)

// ReminderChannel selects how due-date reminders reach a customer.
type ReminderChannel string

const (
	ReminderChannelWhatsapp ReminderChannel = "whatsapp"
	ReminderChannelEmail    ReminderChannel = "email"
	ReminderChannelNone     ReminderChannel = "none"
)

// Customer is the counterparty of a record.
type Customer struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	CompanyID uint   `gorm:"index" json:"company_id"`
	Name      string `gorm:"type:varchar(255)" json:"name"`
	Phone     string `gorm:"type:varchar(50)" json:"phone"`
	Email     string `gorm:"type:varchar(255)" json:"email"`
	Address   string `gorm:"type:text" json:"address"`
	City      string `gorm:"type:varchar(100)" json:"city"`

	ReminderChannel ReminderChannel `gorm:"type:varchar(20);default:'whatsapp'" json:"reminder_channel"`

	// Guarantor details, optional.
	GuarantorName     string `gorm:"type:varchar(255)" json:"guarantor_name"`
	GuarantorPhone    string `gorm:"type:varchar(50)" json:"guarantor_phone"`
	GuarantorRelation string `gorm:"type:varchar(100)" json:"guarantor_relation"`

	// Relationships
	Records []Record `gorm:"foreignKey:CustomerID" json:"records,omitempty"`
}
