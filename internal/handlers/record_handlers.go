package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"recordbook_app_echo/internal/engine"
	"recordbook_app_echo/internal/models"
	"recordbook_app_echo/internal/services"
)

type RecordHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

func NewRecordHandler(db *gorm.DB, cache *services.RedisCache) *RecordHandler {
	return &RecordHandler{db: db, cache: cache}
}

// loadRecord fetches one record of the company with its schedule ordered by
// installment number, adjustment history and settlement snapshot.
func (h *RecordHandler) loadRecord(c echo.Context, companyID uint) (*models.Record, error) {
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
		Where("company_id = ?", companyID).
		First(&record, c.Param("id")).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// invalidateFinanceCache drops the cached ledger and dashboard views after
// any mutation that moves money.
func (h *RecordHandler) invalidateFinanceCache(c echo.Context, companyID uint) {
	ctx := c.Request().Context()
	_ = h.cache.Delete(ctx, fmt.Sprintf("ledger:%d", companyID), fmt.Sprintf("dashboard:%d", companyID))
}

// ListRecords returns all records of the company
func (h *RecordHandler) ListRecords(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}

	query := h.db.Preload("Customer").Where("company_id = ?", company.ID)
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if customerID := c.QueryParam("customer_id"); customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}

	var records []models.Record
	if err := query.Order("created_at desc").Find(&records).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// GetRecord returns one record, repairing drifted status on read
func (h *RecordHandler) GetRecord(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}
	record, err := h.loadRecord(c, company.ID)
	if err != nil {
		return err
	}

	repaired, changed := engine.NormalizeStatus(*record)
	if changed {
		err := h.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Record{}).Where("id = ?", record.ID).
				Update("status", repaired.Status).Error; err != nil {
				return err
			}
			if record.Settlement != nil && repaired.Settlement == nil {
				return tx.Delete(&models.SettlementSnapshot{}, record.Settlement.ID).Error
			}
			return nil
		})
		if err != nil {
			return err
		}
		record = &repaired
	}

	response := map[string]interface{}{"record": record}
	if record.Status == models.RecordStatusActive || record.Status == models.RecordStatusOverdue {
		if outstanding, err := engine.Outstanding(*record); err == nil {
			response["outstanding"] = outstanding
		}
	}
	return c.JSON(http.StatusOK, response)
}

// CreateRecord creates a draft record with flat-fee pricing
func (h *RecordHandler) CreateRecord(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}

	var req CreateRecordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if !req.Principal.IsPositive() {
		return &engine.ValidationError{Field: "principal", Reason: "must be greater than zero"}
	}
	if req.TenureMonths < 1 {
		return &engine.ValidationError{Field: "tenure_months", Reason: "must be at least 1"}
	}

	var customer models.Customer
	if err := h.db.Where("company_id = ?", company.ID).First(&customer, req.CustomerID).Error; err != nil {
		return err
	}

	feeRate := req.FeeRatePercent
	if feeRate.IsZero() {
		feeRate = company.DefaultFeeRatePercent
	}
	if feeRate.IsNegative() {
		return &engine.ValidationError{Field: "fee_rate_percent", Reason: "must not be negative"}
	}
	chargePercent := req.ServiceChargePercent
	if chargePercent.IsZero() {
		chargePercent = company.DefaultServiceChargePercent
	}

	startDate, err := timeFromInput(req.StartDate)
	if err != nil {
		return &engine.ValidationError{Field: "start_date", Reason: "must be YYYY-MM-DD"}
	}

	record := models.Record{
		CompanyID:         company.ID,
		CustomerID:        customer.ID,
		ShareToken:        uuid.NewString(),
		Principal:         req.Principal,
		FeeRatePercent:    feeRate,
		TenureMonths:      req.TenureMonths,
		InstallmentAmount: engine.PriceInstallment(req.Principal, feeRate, req.TenureMonths),
		ServiceCharge:     engine.ServiceCharge(req.Principal, chargePercent),
		Status:            models.RecordStatusDraft,
		StartDate:         startDate,
		Notes:             req.Notes,
	}
	if err := h.db.Create(&record).Error; err != nil {
		return err
	}
	h.invalidateFinanceCache(c, company.ID)
	return c.JSON(http.StatusCreated, record)
}

// UpdateRecord re-prices a record; drafts only, activation freezes terms
func (h *RecordHandler) UpdateRecord(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}
	record, err := h.loadRecord(c, company.ID)
	if err != nil {
		return err
	}
	if record.Status != models.RecordStatusDraft {
		return &engine.InvalidStateError{Op: "update", Status: record.Status}
	}

	var req CreateRecordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if !req.Principal.IsPositive() {
		return &engine.ValidationError{Field: "principal", Reason: "must be greater than zero"}
	}
	if req.TenureMonths < 1 {
		return &engine.ValidationError{Field: "tenure_months", Reason: "must be at least 1"}
	}

	feeRate := req.FeeRatePercent
	if feeRate.IsZero() {
		feeRate = company.DefaultFeeRatePercent
	}
	startDate, err := timeFromInput(req.StartDate)
	if err != nil {
		return &engine.ValidationError{Field: "start_date", Reason: "must be YYYY-MM-DD"}
	}

	record.Principal = req.Principal
	record.FeeRatePercent = feeRate
	record.TenureMonths = req.TenureMonths
	record.InstallmentAmount = engine.PriceInstallment(req.Principal, feeRate, req.TenureMonths)
	record.ServiceCharge = engine.ServiceCharge(req.Principal, req.ServiceChargePercent)
	record.StartDate = startDate
	record.Notes = req.Notes
	if req.CustomerID != 0 {
		record.CustomerID = req.CustomerID
	}

	if err := h.db.Save(record).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

// DeleteRecord removes a draft; activated records are immutable history
func (h *RecordHandler) DeleteRecord(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}
	record, err := h.loadRecord(c, company.ID)
	if err != nil {
		return err
	}
	if record.Status != models.RecordStatusDraft {
		return &engine.InvalidStateError{Op: "delete", Status: record.Status}
	}
	if err := h.db.Delete(record).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// ActivateRecord generates the schedule and moves a draft to Active
func (h *RecordHandler) ActivateRecord(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}
	record, err := h.loadRecord(c, company.ID)
	if err != nil {
		return err
	}
	if record.Status != models.RecordStatusDraft {
		return &engine.InvalidStateError{Op: "activation", Status: record.Status}
	}

	var req ActivateRecordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	dueDay := req.DueDay
	if dueDay == 0 {
		dueDay = company.DefaultDueDay
	}
	if dueDay < 1 || dueDay > 28 {
		return &engine.ValidationError{Field: "due_day", Reason: "must be between 1 and 28"}
	}
	activationDate, err := timeFromInput(req.ActivationDate)
	if err != nil {
		return &engine.ValidationError{Field: "activation_date", Reason: "must be YYYY-MM-DD"}
	}

	firstDue := time.Date(activationDate.Year(), activationDate.Month()+1, dueDay, 0, 0, 0, 0, activationDate.Location())
	schedule, err := engine.GenerateSchedule(engine.ScheduleParams{
		Principal:         record.Principal,
		FeeRatePercent:    record.FeeRatePercent,
		InstallmentAmount: record.InstallmentAmount,
		TenureMonths:      record.TenureMonths,
		FirstDueDate:      firstDue,
		StartNumber:       1,
	})
	if err != nil {
		return err
	}
	for i := range schedule {
		schedule[i].RecordID = record.ID
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&schedule).Error; err != nil {
			return err
		}
		return tx.Model(&models.Record{}).Where("id = ?", record.ID).Updates(map[string]interface{}{
			"status":              models.RecordStatusActive,
			"installment_due_day": dueDay,
			"activation_date":     activationDate,
		}).Error
	})
	if err != nil {
		return err
	}

	h.invalidateFinanceCache(c, company.ID)
	record.Status = models.RecordStatusActive
	record.InstallmentDueDay = dueDay
	record.ActivationDate = &activationDate
	record.Installments = schedule
	return c.JSON(http.StatusOK, record)
}

// PayInstallment marks the next pending installment as paid
func (h *RecordHandler) PayInstallment(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}
	record, err := h.loadRecord(c, company.ID)
	if err != nil {
		return err
	}
	if record.Status != models.RecordStatusActive && record.Status != models.RecordStatusOverdue {
		return &engine.InvalidStateError{Op: "payment", Status: record.Status}
	}

	var req PayInstallmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	next := record.FirstPending()
	if next == nil {
		return &engine.InvalidStateError{Op: "payment", Status: record.Status}
	}
	// Payments land strictly in schedule order so paid rows always form a
	// contiguous head and the balance derivation stays meaningful.
	if req.InstallmentNumber != 0 && req.InstallmentNumber != next.InstallmentNumber {
		return &engine.ValidationError{
			Field:  "installment_number",
			Reason: fmt.Sprintf("installment %d is due next", next.InstallmentNumber),
		}
	}

	paymentDate, err := timeFromInput(req.PaymentDate)
	if err != nil {
		return &engine.ValidationError{Field: "payment_date", Reason: "must be YYYY-MM-DD"}
	}
	if req.AmountPaid.Valid && !req.AmountPaid.Decimal.IsPositive() {
		return &engine.ValidationError{Field: "amount_paid", Reason: "must be greater than zero"}
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":         models.InstallmentStatusPaid,
			"payment_date":   paymentDate,
			"amount_paid":    req.AmountPaid,
			"payment_method": req.PaymentMethod,
			"remark":         req.Remark,
		}
		if err := tx.Model(&models.Installment{}).Where("id = ?", next.ID).Updates(updates).Error; err != nil {
			return err
		}

		// Last payment closes the record.
		var remaining int64
		if err := tx.Model(&models.Installment{}).
			Where("record_id = ? AND status = ? AND id <> ?", record.ID, models.InstallmentStatusPending, next.ID).
			Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 {
			return tx.Model(&models.Record{}).Where("id = ?", record.ID).
				Update("status", models.RecordStatusSettled).Error
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.invalidateFinanceCache(c, company.ID)
	updated, err := h.loadRecord(c, company.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// SettleRecord forecloses a record early
func (h *RecordHandler) SettleRecord(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}
	record, err := h.loadRecord(c, company.ID)
	if err != nil {
		return err
	}

	var req SettleRecordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	settledAt, err := timeFromInput(req.Date)
	if err != nil {
		return &engine.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}

	result, err := engine.Settle(*record, req.FeePercent, settledAt)
	if err != nil {
		return err
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Installment{}).
			Where("record_id = ? AND status = ?", record.ID, models.InstallmentStatusPending).
			Update("status", models.InstallmentStatusCancelled).Error; err != nil {
			return err
		}
		if err := tx.Create(result.Record.Settlement).Error; err != nil {
			return err
		}
		return tx.Model(&models.Record{}).Where("id = ?", record.ID).
			Update("status", models.RecordStatusSettled).Error
	})
	if err != nil {
		return err
	}

	h.invalidateFinanceCache(c, company.ID)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"outstanding":   result.Outstanding,
		"fee_amount":    result.FeeAmount,
		"payoff_amount": result.PayoffAmount,
		"record":        result.Record,
	})
}

// UndoSettlement reverses an early settlement
func (h *RecordHandler) UndoSettlement(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}
	record, err := h.loadRecord(c, company.ID)
	if err != nil {
		return err
	}

	restored, err := engine.UndoSettlement(*record)
	if err != nil {
		return err
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Installment{}).
			Where("record_id = ? AND status = ?", record.ID, models.InstallmentStatusCancelled).
			Update("status", models.InstallmentStatusPending).Error; err != nil {
			return err
		}
		if record.Settlement != nil {
			if err := tx.Delete(&models.SettlementSnapshot{}, record.Settlement.ID).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Record{}).Where("id = ?", record.ID).
			Update("status", models.RecordStatusActive).Error
	})
	if err != nil {
		return err
	}

	h.invalidateFinanceCache(c, company.ID)
	return c.JSON(http.StatusOK, restored)
}

// AdjustRecord restructures an active record with added principal
func (h *RecordHandler) AdjustRecord(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}
	record, err := h.loadRecord(c, company.ID)
	if err != nil {
		return err
	}

	var req AdjustRecordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	adjustedAt, err := timeFromInput(req.Date)
	if err != nil {
		return &engine.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	chargePercent := req.ServiceChargePercent
	if chargePercent.IsZero() {
		chargePercent = company.DefaultServiceChargePercent
	}

	result, err := engine.Adjust(*record, engine.AdjustParams{
		AddedPrincipal:       req.AddedPrincipal,
		NewTenureMonths:      req.NewTenureMonths,
		FeeRatePercent:       req.FeeRatePercent,
		ServiceChargePercent: chargePercent,
		Now:                  adjustedAt,
	})
	if err != nil {
		return err
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		// Replace the pending tail with the regenerated schedule.
		if len(result.ReplacedPending) > 0 {
			ids := make([]uint, 0, len(result.ReplacedPending))
			for _, inst := range result.ReplacedPending {
				ids = append(ids, inst.ID)
			}
			if err := tx.Unscoped().Delete(&models.Installment{}, ids).Error; err != nil {
				return err
			}
		}
		newRows := result.NewInstallments
		if err := tx.Create(&newRows).Error; err != nil {
			return err
		}
		event := result.Event
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Record{}).Where("id = ?", record.ID).Updates(map[string]interface{}{
			"principal":          result.Record.Principal,
			"fee_rate_percent":   result.Record.FeeRatePercent,
			"installment_amount": result.Record.InstallmentAmount,
			"tenure_months":      result.Record.TenureMonths,
			"service_charge":     result.Record.ServiceCharge,
			"status":             models.RecordStatusActive,
		}).Error; err != nil {
			return err
		}

		// Book the cash legs of the top-up as a journal entry; the ledger
		// suppresses its synthetic top-up entry when this exists.
		journal := models.JournalEntry{
			CompanyID: company.ID,
			RecordID:  &record.ID,
			Date:      adjustedAt,
			Narration: fmt.Sprintf("Principal top-up for %s", record.Customer.Name),
			Lines: []models.JournalLine{
				{Type: models.JournalLineDebit, Account: "Credit Outstanding", Amount: req.AddedPrincipal},
				{Type: models.JournalLineCredit, Account: models.CashBankAccount, Amount: req.AddedPrincipal.Sub(result.ServiceCharge)},
				{Type: models.JournalLineCredit, Account: "Service Income", Amount: result.ServiceCharge},
			},
		}
		return tx.Create(&journal).Error
	})
	if err != nil {
		return err
	}

	h.invalidateFinanceCache(c, company.ID)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"outstanding_before": result.OutstandingBefore,
		"new_principal":      result.NewPrincipal,
		"service_charge":     result.ServiceCharge,
		"event":              result.Event,
		"record":             result.Record,
	})
}
