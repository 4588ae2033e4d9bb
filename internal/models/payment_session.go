package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type PaymentGateway string

const (
	PaymentGatewayMidtrans PaymentGateway = "midtrans"
	PaymentGatewayManual   PaymentGateway = "manual"
)

// PaymentSession tracks a gateway checkout session opened for a single
// installment. Only one active session per installment is allowed; stale
// sessions are deactivated when the gateway reports them dead.
type PaymentSession struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	RecordID          uint            `gorm:"index" json:"record_id"`
	InstallmentNumber int             `json:"installment_number"`
	PaymentGateway    PaymentGateway  `gorm:"type:varchar(50);not null" json:"payment_gateway"`
	OrderID           string          `gorm:"type:varchar(100);index" json:"order_id"`
	IsActive          bool            `gorm:"default:true" json:"is_active"`
	RequestMetadata   json.RawMessage `gorm:"type:jsonb" json:"request_metadata"`
	ResponseMetadata  json.RawMessage `gorm:"type:jsonb" json:"response_metadata"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

// PaymentCallbackHistory stores every raw gateway notification for audit.
type PaymentCallbackHistory struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	PaymentGateway PaymentGateway  `gorm:"type:varchar(50);not null" json:"payment_gateway"`
	OrderID        string          `gorm:"type:varchar(100);index" json:"order_id"`
	Metadata       json.RawMessage `gorm:"type:jsonb" json:"metadata"`
	CreatedAt      time.Time       `json:"created_at"`
}
