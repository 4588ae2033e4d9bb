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

// DashboardHandler serves the portfolio summary
type DashboardHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(db *gorm.DB, cache *services.RedisCache) *DashboardHandler {
	return &DashboardHandler{db: db, cache: cache}
}

type dashboardStats struct {
	TotalCustomers     int64           `json:"total_customers"`
	ActiveRecords      int64           `json:"active_records"`
	OverdueRecords     int64           `json:"overdue_records"`
	SettledRecords     int64           `json:"settled_records"`
	TotalOutstanding   decimal.Decimal `json:"total_outstanding"`
	CollectedThisMonth decimal.Decimal `json:"collected_this_month"`
}

// Dashboard returns the company's portfolio summary
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}

	cacheKey := fmt.Sprintf("dashboard:%d", company.ID)
	stats, err := services.GetOrSet(h.cache, c.Request().Context(), cacheKey, time.Minute,
		func() (dashboardStats, error) {
			return h.collectStats(company.ID)
		})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *DashboardHandler) collectStats(companyID uint) (dashboardStats, error) {
	var stats dashboardStats

	h.db.Model(&models.Customer{}).Where("company_id = ?", companyID).Count(&stats.TotalCustomers)
	h.db.Model(&models.Record{}).Where("company_id = ? AND status = ?", companyID, models.RecordStatusActive).Count(&stats.ActiveRecords)
	h.db.Model(&models.Record{}).Where("company_id = ? AND status = ?", companyID, models.RecordStatusOverdue).Count(&stats.OverdueRecords)
	h.db.Model(&models.Record{}).Where("company_id = ? AND status = ?", companyID, models.RecordStatusSettled).Count(&stats.SettledRecords)

	var openRecords []models.Record
	err := h.db.
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_number asc")
		}).
		Preload("AdjustmentEvents", func(db *gorm.DB) *gorm.DB {
			return db.Order("date asc")
		}).
		Where("company_id = ? AND status IN ?", companyID,
			[]models.RecordStatus{models.RecordStatusActive, models.RecordStatusOverdue}).
		Find(&openRecords).Error
	if err != nil {
		return stats, err
	}

	total := decimal.Zero
	for _, record := range openRecords {
		outstanding, err := engine.Outstanding(record)
		if err != nil {
			continue
		}
		total = total.Add(outstanding)
	}
	stats.TotalOutstanding = total

	monthStart := time.Now().AddDate(0, 0, 1-time.Now().Day()).Truncate(24 * time.Hour)
	var paidThisMonth []models.Installment
	err = h.db.
		Joins("JOIN records ON records.id = installments.record_id").
		Where("records.company_id = ? AND installments.status = ? AND installments.payment_date >= ?",
			companyID, models.InstallmentStatusPaid, monthStart).
		Find(&paidThisMonth).Error
	if err != nil {
		return stats, err
	}
	collected := decimal.Zero
	for _, inst := range paidThisMonth {
		collected = collected.Add(inst.PaidAmount())
	}
	stats.CollectedThisMonth = collected

	return stats, nil
}
