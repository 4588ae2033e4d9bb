package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"recordbook_app_echo/internal/models"
	"recordbook_app_echo/internal/services"
)

// SendDueReminderTaskDef notifies customers about installments coming due.
// The channel (WhatsApp via the WAHA gateway, or plain email) follows each
// customer's reminder preference.
type SendDueReminderTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *SendDueReminderTaskDef) TaskID() string {
	return "send_due_reminder"
}

// reminderMessage renders the text sent to one customer.
func reminderMessage(customer models.Customer, record models.Record, inst models.Installment) string {
	return fmt.Sprintf(
		"Hello %s, this is a reminder that installment %d of %d (amount %s) is due on %s. "+
			"You can pay through your payment link. Thank you.",
		customer.Name,
		inst.InstallmentNumber,
		record.TenureMonths,
		inst.Amount.StringFixed(0),
		inst.DueDate.Format("2 January 2006"),
	)
}

// HandleExecution sends reminders for installments due within the window
func (t *SendDueReminderTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	// Days of lead time before the due date; defaults to 3.
	leadDays := 3
	if v, ok := task.Arguments["lead_days"].(float64); ok && v > 0 {
		leadDays = int(v)
	}

	now := time.Now()
	windowEnd := now.AddDate(0, 0, leadDays)

	var dueSoon []models.Installment
	err := db.WithContext(ctx).
		Joins("JOIN records ON records.id = installments.record_id").
		Where("installments.status = ? AND installments.due_date BETWEEN ? AND ?",
			models.InstallmentStatusPending, now, windowEnd).
		Where("records.status IN ?", []models.RecordStatus{models.RecordStatusActive, models.RecordStatusOverdue}).
		Find(&dueSoon).Error
	if err != nil {
		return nil, err
	}

	if len(dueSoon) == 0 {
		return map[string]interface{}{"status": "success", "total": 0}, nil
	}

	wahaService := services.NewWahaService()
	emailService := services.NewEmailService()

	total := len(dueSoon)
	successCount := 0
	skippedCount := 0
	failureCount := 0
	var failures []string

	for _, inst := range dueSoon {
		var record models.Record
		if err := db.Preload("Customer").First(&record, inst.RecordID).Error; err != nil {
			log.Printf("[Task: send_due_reminder] failed to load record %d: %v", inst.RecordID, err)
			failureCount++
			failures = append(failures, fmt.Sprintf("record %d: %v", inst.RecordID, err))
			continue
		}
		customer := record.Customer
		message := reminderMessage(customer, record, inst)

		var sendErr error
		switch customer.ReminderChannel {
		case models.ReminderChannelWhatsapp:
			if customer.Phone == "" {
				log.Printf("[Task: send_due_reminder] skipping %s: no phone number", customer.Name)
				skippedCount++
				continue
			}
			sendErr = wahaService.SendMessage(ctx, customer.Phone, message)
		case models.ReminderChannelEmail:
			if customer.Email == "" {
				log.Printf("[Task: send_due_reminder] skipping %s: no email address", customer.Name)
				skippedCount++
				continue
			}
			sendErr = emailService.SendEmail([]string{customer.Email}, "Installment due reminder", message)
		default:
			skippedCount++
			continue
		}

		if sendErr != nil {
			log.Printf("[Task: send_due_reminder] failed to notify %s: %v", customer.Name, sendErr)
			failureCount++
			failures = append(failures, fmt.Sprintf("%s: %v", customer.Name, sendErr))
		} else {
			successCount++
		}
	}

	result := map[string]interface{}{
		"status":  "success",
		"total":   total,
		"success": successCount,
		"skipped": skippedCount,
		"failure": failureCount,
	}
	if failureCount > 0 {
		result["errors"] = failures
		if failureCount == total {
			return result, fmt.Errorf("all %d reminders failed", total)
		}
	}
	return result, nil
}

// SendDueReminderTask is the singleton instance of SendDueReminderTaskDef
var SendDueReminderTask = &SendDueReminderTaskDef{}
