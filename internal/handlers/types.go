package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"recordbook_app_echo/internal/models"
)

// CreateCustomerRequest is the body for creating or updating a customer.
type CreateCustomerRequest struct {
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	Address           string `json:"address"`
	City              string `json:"city"`
	ReminderChannel   string `json:"reminder_channel"`
	GuarantorName     string `json:"guarantor_name"`
	GuarantorPhone    string `json:"guarantor_phone"`
	GuarantorRelation string `json:"guarantor_relation"`
}

// CreateRecordRequest is the body for creating a draft record.
type CreateRecordRequest struct {
	CustomerID           uint            `json:"customer_id"`
	Principal            decimal.Decimal `json:"principal"`
	FeeRatePercent       decimal.Decimal `json:"fee_rate_percent"`
	TenureMonths         int             `json:"tenure_months"`
	ServiceChargePercent decimal.Decimal `json:"service_charge_percent"`
	StartDate            string          `json:"start_date"` // YYYY-MM-DD
	Notes                string          `json:"notes"`
}

// ActivateRecordRequest is the body for activating a draft.
type ActivateRecordRequest struct {
	DueDay         int    `json:"due_day"` // 1..28, company default when 0
	ActivationDate string `json:"activation_date"`
}

// PayInstallmentRequest is the body for marking an installment paid.
type PayInstallmentRequest struct {
	InstallmentNumber int                 `json:"installment_number"`
	PaymentDate       string              `json:"payment_date"`
	AmountPaid        decimal.NullDecimal `json:"amount_paid"`
	PaymentMethod     string              `json:"payment_method"`
	Remark            string              `json:"remark"`
}

// SettleRecordRequest is the body for early settlement.
type SettleRecordRequest struct {
	FeePercent decimal.Decimal `json:"fee_percent"`
	Date       string          `json:"date"`
}

// AdjustRecordRequest is the body for a mid-term restructuring.
type AdjustRecordRequest struct {
	AddedPrincipal       decimal.Decimal `json:"added_principal"`
	NewTenureMonths      int             `json:"new_tenure_months"`
	FeeRatePercent       decimal.Decimal `json:"fee_rate_percent"`
	ServiceChargePercent decimal.Decimal `json:"service_charge_percent"`
	Date                 string          `json:"date"`
}

// PartnerTransactionRequest is the body for recording partner capital moves.
type PartnerTransactionRequest struct {
	PartnerName string          `json:"partner_name"`
	Type        string          `json:"type"` // investment | withdrawal
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
}

// ExpenseRequest is the body for recording an expense.
type ExpenseRequest struct {
	Date      string          `json:"date"`
	Narration string          `json:"narration"`
	Amount    decimal.Decimal `json:"amount"`
}

// JournalEntryRequest is the body for a manual double-entry correction.
type JournalEntryRequest struct {
	RecordID  *uint              `json:"record_id,omitempty"`
	Date      string             `json:"date"`
	Narration string             `json:"narration"`
	Lines     []JournalLineInput `json:"lines"`
}

// JournalLineInput is one leg of a JournalEntryRequest.
type JournalLineInput struct {
	Type    string          `json:"type"` // Credit | Debit
	Account string          `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
}

// Helper to safely get string from context
func getStringFromContext(c echo.Context, key string) string {
	val := c.Get(key)
	if val == nil {
		return ""
	}
	strVal, ok := val.(string)
	if !ok {
		return ""
	}
	return strVal
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// timeFromInput parses a YYYY-MM-DD value, falling back to now when empty.
func timeFromInput(value string) (time.Time, error) {
	if value == "" {
		return time.Now().Truncate(24 * time.Hour), nil
	}
	return time.Parse("2006-01-02", value)
}

// resolveCompany loads the authenticated user's company, creating one on
// first login so every request operates inside a tenant.
func resolveCompany(c echo.Context, db *gorm.DB) (*models.Company, error) {
	uid := getStringFromContext(c, "userUID")
	if uid == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}

	var company models.Company
	err := db.Where("owner_uid = ?", uid).First(&company).Error
	if err == gorm.ErrRecordNotFound {
		company = models.Company{
			Name:                  getStringFromContext(c, "userName"),
			OwnerUID:              uid,
			OpeningBalance:        decimal.Zero,
			DefaultFeeRatePercent: decimal.NewFromInt(12),
			DefaultDueDay:         1,
		}
		if createErr := db.Create(&company).Error; createErr != nil {
			return nil, createErr
		}
		return &company, nil
	}
	if err != nil {
		return nil, err
	}
	return &company, nil
}
