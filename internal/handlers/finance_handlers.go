package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"recordbook_app_echo/internal/engine"
	"recordbook_app_echo/internal/models"
	"recordbook_app_echo/internal/services"
)

type FinanceHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

func NewFinanceHandler(db *gorm.DB, cache *services.RedisCache) *FinanceHandler {
	return &FinanceHandler{db: db, cache: cache}
}

// GetLedger returns the month-bucketed cash ledger of the company. The
// aggregation folds over every record, partner transaction, expense and
// manual journal entry; the result is cached until the next mutation.
func (h *FinanceHandler) GetLedger(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}

	cacheKey := fmt.Sprintf("ledger:%d", company.ID)
	ledger, err := services.GetOrSet(h.cache, c.Request().Context(), cacheKey, 5*time.Minute,
		func() ([]engine.MonthlyLedger, error) {
			return h.buildLedger(company)
		})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"opening_balance": company.OpeningBalance,
		"months":          ledger,
	})
}

func (h *FinanceHandler) buildLedger(company *models.Company) ([]engine.MonthlyLedger, error) {
	var records []models.Record
	err := h.db.
		Preload("Customer").
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_number asc")
		}).
		Preload("AdjustmentEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("date asc")
		}).
		Preload("Settlement").
		Where("company_id = ? AND status <> ?", company.ID, models.RecordStatusDraft).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	var partnerTxs []models.PartnerTransaction
	if err := h.db.Where("company_id = ?", company.ID).Find(&partnerTxs).Error; err != nil {
		return nil, err
	}
	var expenses []models.Expense
	if err := h.db.Where("company_id = ?", company.ID).Find(&expenses).Error; err != nil {
		return nil, err
	}
	var manualEntries []models.JournalEntry
	if err := h.db.Preload("Lines").Where("company_id = ?", company.ID).Find(&manualEntries).Error; err != nil {
		return nil, err
	}

	return engine.BuildLedger(engine.LedgerInput{
		Records:             records,
		PartnerTransactions: partnerTxs,
		Expenses:            expenses,
		ManualEntries:       manualEntries,
		OpeningBalance:      company.OpeningBalance,
	}), nil
}

func (h *FinanceHandler) invalidateLedger(c echo.Context, companyID uint) {
	ctx := c.Request().Context()
	_ = h.cache.Delete(ctx, fmt.Sprintf("ledger:%d", companyID), fmt.Sprintf("dashboard:%d", companyID))
}

// ListPartnerTransactions returns the company's partner capital movements
func (h *FinanceHandler) ListPartnerTransactions(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}
	var txs []models.PartnerTransaction
	if err := h.db.Where("company_id = ?", company.ID).Order("date desc").Find(&txs).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, txs)
}

// CreatePartnerTransaction records a partner investment or withdrawal
func (h *FinanceHandler) CreatePartnerTransaction(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}

	var req PartnerTransactionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	txType := models.PartnerTransactionType(req.Type)
	if txType != models.PartnerTransactionInvestment && txType != models.PartnerTransactionWithdrawal {
		return &engine.ValidationError{Field: "type", Reason: "must be investment or withdrawal"}
	}
	if !req.Amount.IsPositive() {
		return &engine.ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	date, err := timeFromInput(req.Date)
	if err != nil {
		return &engine.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}

	tx := models.PartnerTransaction{
		CompanyID:   company.ID,
		PartnerName: req.PartnerName,
		Type:        txType,
		Date:        date,
		Amount:      req.Amount,
	}
	if err := h.db.Create(&tx).Error; err != nil {
		return err
	}
	h.invalidateLedger(c, company.ID)
	return c.JSON(http.StatusCreated, tx)
}

// DeletePartnerTransaction removes a partner transaction
func (h *FinanceHandler) DeletePartnerTransaction(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}
	var tx models.PartnerTransaction
	if err := h.db.Where("company_id = ?", company.ID).First(&tx, c.Param("id")).Error; err != nil {
		return err
	}
	if err := h.db.Delete(&tx).Error; err != nil {
		return err
	}
	h.invalidateLedger(c, company.ID)
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// ListExpenses returns the company's expenses
func (h *FinanceHandler) ListExpenses(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}
	var expenses []models.Expense
	if err := h.db.Where("company_id = ?", company.ID).Order("date desc").Find(&expenses).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, expenses)
}

// CreateExpense records an operating expense
func (h *FinanceHandler) CreateExpense(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}

	var req ExpenseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if !req.Amount.IsPositive() {
		return &engine.ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	date, err := timeFromInput(req.Date)
	if err != nil {
		return &engine.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}

	expense := models.Expense{
		CompanyID: company.ID,
		Date:      date,
		Narration: req.Narration,
		Amount:    req.Amount,
	}
	if err := h.db.Create(&expense).Error; err != nil {
		return err
	}
	h.invalidateLedger(c, company.ID)
	return c.JSON(http.StatusCreated, expense)
}

// DeleteExpense removes an expense
func (h *FinanceHandler) DeleteExpense(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}
	var expense models.Expense
	if err := h.db.Where("company_id = ?", company.ID).First(&expense, c.Param("id")).Error; err != nil {
		return err
	}
	if err := h.db.Delete(&expense).Error; err != nil {
		return err
	}
	h.invalidateLedger(c, company.ID)
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// ListJournalEntries returns the company's manual corrections
func (h *FinanceHandler) ListJournalEntries(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}
	var entries []models.JournalEntry
	if err := h.db.Preload("Lines").Where("company_id = ?", company.ID).
		Order("date desc").Find(&entries).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// CreateJournalEntry books a manual double-entry correction
func (h *FinanceHandler) CreateJournalEntry(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}

	var req JournalEntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Lines) == 0 {
		return &engine.ValidationError{Field: "lines", Reason: "at least one line is required"}
	}
	date, err := timeFromInput(req.Date)
	if err != nil {
		return &engine.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}

	lines := make([]models.JournalLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lineType := models.JournalLineType(line.Type)
		if lineType != models.JournalLineCredit && lineType != models.JournalLineDebit {
			return &engine.ValidationError{Field: "lines", Reason: "line type must be Credit or Debit"}
		}
		if !line.Amount.IsPositive() {
			return &engine.ValidationError{Field: "lines", Reason: "line amount must be greater than zero"}
		}
		lines = append(lines, models.JournalLine{
			Type:    lineType,
			Account: line.Account,
			Amount:  line.Amount,
		})
	}

	if req.RecordID != nil {
		var record models.Record
		if err := h.db.Where("company_id = ?", company.ID).First(&record, *req.RecordID).Error; err != nil {
			return err
		}
	}

	entry := models.JournalEntry{
		CompanyID: company.ID,
		RecordID:  req.RecordID,
		Date:      date,
		Narration: req.Narration,
		Lines:     lines,
	}
	if err := h.db.Create(&entry).Error; err != nil {
		return err
	}
	h.invalidateLedger(c, company.ID)
	return c.JSON(http.StatusCreated, entry)
}

// DeleteJournalEntry removes a manual correction and its lines
func (h *FinanceHandler) DeleteJournalEntry(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}
	var entry models.JournalEntry
	if err := h.db.Where("company_id = ?", company.ID).First(&entry, c.Param("id")).Error; err != nil {
		return err
	}
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("journal_entry_id = ?", entry.ID).Delete(&models.JournalLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entry).Error
	})
	if err != nil {
		return err
	}
	h.invalidateLedger(c, company.ID)
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// UpdateOpeningBalance sets the company's ledger seed balance
func (h *FinanceHandler) UpdateOpeningBalance(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}

	var req struct {
		OpeningBalance decimal.Decimal `json:"opening_balance"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.db.Model(&models.Company{}).Where("id = ?", company.ID).
		Update("opening_balance", req.OpeningBalance).Error; err != nil {
		return err
	}
	h.invalidateLedger(c, company.ID)
	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}
