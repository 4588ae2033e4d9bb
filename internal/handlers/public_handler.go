package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"recordbook_app_echo/internal/engine"
	"recordbook_app_echo/internal/models"
	"recordbook_app_echo/internal/services"
)

// PublicHandler serves the customer-facing share-link endpoints. Everything
// here is keyed by a record's opaque share token, never by database ids.
type PublicHandler struct {
	db             *gorm.DB
	cache          *services.RedisCache
	midtransClient *services.MidtransService
	paymentService *services.PaymentService
}

func NewPublicHandler(db *gorm.DB, cache *services.RedisCache, midtransClient *services.MidtransService, paymentService *services.PaymentService) *PublicHandler {
	if midtransClient == nil {
		// Initialize Midtrans if not provided (fallback)
		midtransClient = services.NewMidtransService()
	}
	return &PublicHandler{db: db, cache: cache, midtransClient: midtransClient, paymentService: paymentService}
}

func (h *PublicHandler) loadRecordByToken(token string) (*models.Record, error) {
	var record models.Record
	err := h.db.
		Preload("Customer").
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_number asc")
		}).
		Preload("AdjustmentEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("date asc")
		}).
		Preload("Settlement").
		Where("share_token = ?", token).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ShowRecord returns the shared record view for a customer
func (h *PublicHandler) ShowRecord(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid share token")
	}

	record, err := h.loadRecordByToken(token)
	if err != nil {
		log.Printf("Failed to find record with share token %s: %v", token, err)
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}

	response := map[string]interface{}{
		"customer_name":      record.Customer.Name,
		"status":             record.Status,
		"principal":          record.Principal,
		"installment_amount": record.InstallmentAmount,
		"tenure_months":      record.TenureMonths,
		"installments":       record.Installments,
		"settlement":         record.Settlement,
	}
	if record.Status == models.RecordStatusActive || record.Status == models.RecordStatusOverdue {
		if outstanding, err := engine.Outstanding(*record); err == nil {
			response["outstanding"] = outstanding
		}
	}
	return c.JSON(http.StatusOK, response)
}

// InitiatePayment creates a Snap checkout for the next pending installment
func (h *PublicHandler) InitiatePayment(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid share token")
	}

	record, err := h.loadRecordByToken(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	if record.Status != models.RecordStatusActive && record.Status != models.RecordStatusOverdue {
		return echo.NewHTTPError(http.StatusBadRequest, "record has no payable installments")
	}
	next := record.FirstPending()
	if next == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "record has no payable installments")
	}

	forceNew := c.QueryParam("force_new") == "true"
	callbackURL := getEnv("APP_URL", "http://localhost:8080") + "/p/records/" + token

	result, err := h.paymentService.InitiatePayment(record, next, forceNew, callbackURL)
	if err != nil {
		if err.Error() == "payment already made" {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Payment is already made. Please check the status."})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to initiate payment: "+err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"token":              result.Token,
		"redirect_url":       result.RedirectURL,
		"installment_number": next.InstallmentNumber,
	})
}

// CheckActiveSession reports whether a checkout is open for the next
// pending installment
func (h *PublicHandler) CheckActiveSession(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid share token")
	}

	record, err := h.loadRecordByToken(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	next := record.FirstPending()
	if next == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"active": false})
	}

	session, err := h.paymentService.CheckActiveSession(record.ID, next.InstallmentNumber)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to check session: "+err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"active": session != nil})
}

// midtransNotification is the subset of the gateway webhook body we act on.
type midtransNotification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	FraudStatus       string `json:"fraud_status"`
}

// HandlePaymentNotification receives Midtrans webhooks, verifies them and
// marks the paid installment
func (h *PublicHandler) HandlePaymentNotification(c echo.Context) error {
	var notification midtransNotification
	if err := c.Bind(&notification); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification body")
	}
	if notification.OrderID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing order id")
	}

	// Store the raw callback for audit before acting on it.
	rawBytes, _ := json.Marshal(notification)
	h.db.Create(&models.PaymentCallbackHistory{
		PaymentGateway: models.PaymentGatewayMidtrans,
		OrderID:        notification.OrderID,
		Metadata:       rawBytes,
	})

	if !h.midtransClient.VerifySignature(notification.OrderID, notification.StatusCode, notification.GrossAmount, notification.SignatureKey) {
		return echo.NewHTTPError(http.StatusForbidden, "invalid signature")
	}

	// Never trust the webhook body's status alone; confirm with the gateway.
	statusResp, err := h.midtransClient.CheckTransaction(notification.OrderID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "failed to verify transaction status")
	}
	paid := statusResp.TransactionStatus == "settlement" ||
		(statusResp.TransactionStatus == "capture" && statusResp.FraudStatus == "accept")
	if !paid {
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	session, err := h.paymentService.FindSessionByOrderID(notification.OrderID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown order id")
	}

	paidAt := time.Now()
	if t, parseErr := time.Parse("2006-01-02 15:04:05", statusResp.SettlementTime); parseErr == nil {
		paidAt = t
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		var installment models.Installment
		if err := tx.Where("record_id = ? AND installment_number = ?", session.RecordID, session.InstallmentNumber).
			First(&installment).Error; err != nil {
			return err
		}
		if installment.Status == models.InstallmentStatusPaid {
			return nil // webhook retry, nothing to do
		}
		if err := tx.Model(&installment).Updates(map[string]interface{}{
			"status":         models.InstallmentStatusPaid,
			"payment_date":   paidAt,
			"payment_method": statusResp.PaymentType,
			"remark":         "paid via payment link",
		}).Error; err != nil {
			return err
		}

		session.IsActive = false
		if err := tx.Save(session).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&models.Installment{}).
			Where("record_id = ? AND status = ?", session.RecordID, models.InstallmentStatusPending).
			Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 {
			return tx.Model(&models.Record{}).Where("id = ?", session.RecordID).
				Update("status", models.RecordStatusSettled).Error
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Drop cached finance views for the owning company.
	var record models.Record
	if err := h.db.First(&record, session.RecordID).Error; err == nil {
		ctx := c.Request().Context()
		_ = h.cache.Delete(ctx, fmt.Sprintf("ledger:%d", record.CompanyID), fmt.Sprintf("dashboard:%d", record.CompanyID))
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "processed"})
}
