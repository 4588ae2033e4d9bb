package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"recordbook_app_echo/internal/models"
	"recordbook_app_echo/internal/services"
)

type CustomerHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

func NewCustomerHandler(db *gorm.DB, cache *services.RedisCache) *CustomerHandler {
	return &CustomerHandler{db: db, cache: cache}
}

// ListCustomers returns all customers of the company
func (h *CustomerHandler) ListCustomers(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}

	var customers []models.Customer
	if err := h.db.Where("company_id = ?", company.ID).Order("name asc").Find(&customers).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customers)
}

// GetCustomer returns one customer with their records
func (h *CustomerHandler) GetCustomer(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}

	var customer models.Customer
	if err := h.db.Preload("Records").
		Where("company_id = ?", company.ID).First(&customer, c.Param("id")).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customer)
}

// CreateCustomer creates a new customer
func (h *CustomerHandler) CreateCustomer(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}

	var req CreateCustomerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	customer := models.Customer{
		CompanyID:         company.ID,
		Name:              req.Name,
		Phone:             req.Phone,
		Email:             req.Email,
		Address:           req.Address,
		City:              req.City,
		ReminderChannel:   reminderChannelFromInput(req.ReminderChannel),
		GuarantorName:     req.GuarantorName,
		GuarantorPhone:    req.GuarantorPhone,
		GuarantorRelation: req.GuarantorRelation,
	}
	if err := h.db.Create(&customer).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, customer)
}

// UpdateCustomer updates an existing customer
func (h *CustomerHandler) UpdateCustomer(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}

	var customer models.Customer
	if err := h.db.Where("company_id = ?", company.ID).First(&customer, c.Param("id")).Error; err != nil {
		return err
	}

	var req CreateCustomerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	customer.Name = req.Name
	customer.Phone = req.Phone
	customer.Email = req.Email
	customer.Address = req.Address
	customer.City = req.City
	customer.ReminderChannel = reminderChannelFromInput(req.ReminderChannel)
	customer.GuarantorName = req.GuarantorName
	customer.GuarantorPhone = req.GuarantorPhone
	customer.GuarantorRelation = req.GuarantorRelation

	if err := h.db.Save(&customer).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customer)
}

// DeleteCustomer soft-deletes a customer without open records
func (h *CustomerHandler) DeleteCustomer(c echo.Context) error {
	company, err := resolveCompany(c, h.db)
	if err != nil {
		return err
	}

	var customer models.Customer
	if err := h.db.Where("company_id = ?", company.ID).First(&customer, c.Param("id")).Error; err != nil {
		return err
	}

	var openRecords int64
	h.db.Model(&models.Record{}).
		Where("customer_id = ? AND status IN ?", customer.ID,
			[]models.RecordStatus{models.RecordStatusActive, models.RecordStatusOverdue}).
		Count(&openRecords)
	if openRecords > 0 {
		return echo.NewHTTPError(http.StatusConflict, "customer has open records")
	}

	if err := h.db.Delete(&customer).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

func reminderChannelFromInput(value string) models.ReminderChannel {
	switch models.ReminderChannel(value) {
	case models.ReminderChannelEmail:
		return models.ReminderChannelEmail
	case models.ReminderChannelNone:
		return models.ReminderChannelNone
	default:
		return models.ReminderChannelWhatsapp
	}
}
