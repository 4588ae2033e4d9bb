package services

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"recordbook_app_echo/internal/models"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

type PaymentService struct {
	db             *gorm.DB
	midtransClient *MidtransService
}

func NewPaymentService(db *gorm.DB, midtransClient *MidtransService) *PaymentService {
	return &PaymentService{
		db:             db,
		midtransClient: midtransClient,
	}
}

// CheckActiveSession checks if there is an active checkout session for the
// given installment. Returns the session if active, otherwise nil.
func (s *PaymentService) CheckActiveSession(recordID uint, installmentNumber int) (*models.PaymentSession, error) {
	var existingSession models.PaymentSession
	err := s.db.Where("record_id = ? AND installment_number = ? AND is_active = ?", recordID, installmentNumber, true).
		Order("created_at desc").First(&existingSession).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil // No active session
		}
		return nil, err
	}
	return &existingSession, nil
}

// FindSessionByOrderID looks up a checkout session by its gateway order id.
func (s *PaymentService) FindSessionByOrderID(orderID string) (*models.PaymentSession, error) {
	var session models.PaymentSession
	if err := s.db.Where("order_id = ?", orderID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// InitiatePaymentResult holds the result of an initiation attempt
type InitiatePaymentResult struct {
	Token       string
	RedirectURL string
	IsExisting  bool
}

// InitiatePayment starts or resumes a gateway checkout for one installment of
// a record. An existing pending session is reused unless forceNew is set.
func (s *PaymentService) InitiatePayment(record *models.Record, installment *models.Installment, forceNew bool, callbackURL string) (*InitiatePaymentResult, error) {
	if installment.Status != models.InstallmentStatusPending {
		return nil, fmt.Errorf("installment %d is not payable", installment.InstallmentNumber)
	}

	// 1. Check for existing active session
	existingSession, err := s.CheckActiveSession(record.ID, installment.InstallmentNumber)
	if err != nil {
		return nil, err
	}

	if existingSession != nil {
		// active session exists, check status with Midtrans
		statusResp, err := s.midtransClient.CheckTransaction(existingSession.OrderID)
		if err == nil {
			// Case 1: Payment already successful
			if statusResp.TransactionStatus == "settlement" || statusResp.TransactionStatus == "capture" {
				return nil, fmt.Errorf("payment already made")
			}

			// Case 2: Payment failed/expired/canceled
			if statusResp.TransactionStatus == "deny" || statusResp.TransactionStatus == "expire" || statusResp.TransactionStatus == "cancel" || statusResp.TransactionStatus == "failure" {
				// Deactivate local session
				existingSession.IsActive = false
				s.db.Save(existingSession)
				// Proceed to create new
			} else {
				// Case 3: Payment is Pending
				if forceNew {
					// Cancel at Midtrans
					s.midtransClient.CancelTransaction(existingSession.OrderID)
					existingSession.IsActive = false
					s.db.Save(existingSession)
					// Proceed to create new
				} else {
					// Reuse existing
					var midtransResp snap.Response
					if err := json.Unmarshal(existingSession.ResponseMetadata, &midtransResp); err == nil {
						return &InitiatePaymentResult{
							Token:       midtransResp.Token,
							RedirectURL: midtransResp.RedirectURL,
							IsExisting:  true,
						}, nil
					}
					// If unmarshal fails, treat as broken
					existingSession.IsActive = false
					s.db.Save(existingSession)
				}
			}
		} else {
			// Check failed, assume session is invalid/broken locally
			existingSession.IsActive = false
			s.db.Save(existingSession)
		}
	}

	// 2. Create New Transaction
	orderID := fmt.Sprintf("installment-%d-%d-%d", record.ID, installment.InstallmentNumber, time.Now().Unix())
	amount := installment.Amount.IntPart()

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: record.Customer.Name,
			Email: record.Customer.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    fmt.Sprintf("record-%d", record.ID),
				Name:  fmt.Sprintf("Installment %d of %d", installment.InstallmentNumber, record.TenureMonths),
				Price: amount,
				Qty:   1,
			},
		},
		Callbacks: &snap.Callbacks{
			Finish: callbackURL,
		},
	}

	resp, err := s.midtransClient.CreateTransaction(orderID, amount, req)
	if err != nil {
		return nil, err
	}

	// 3. Create Session Record
	reqBytes, _ := json.Marshal(req)
	respBytes, _ := json.Marshal(resp)

	session := models.PaymentSession{
		RecordID:          record.ID,
		InstallmentNumber: installment.InstallmentNumber,
		PaymentGateway:    models.PaymentGatewayMidtrans,
		OrderID:           orderID,
		IsActive:          true,
		RequestMetadata:   reqBytes,
		ResponseMetadata:  respBytes,
	}
	s.db.Create(&session)

	return &InitiatePaymentResult{
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
		IsExisting:  false,
	}, nil
}
