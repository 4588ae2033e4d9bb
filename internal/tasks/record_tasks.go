package tasks

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"recordbook_app_echo/internal/models"
)

// MarkOverdueTaskDef sweeps active records and flags the ones with an unpaid
// installment past its due date. It also flips records back to Active when
// the late installment has since been paid, so the flag is self-healing.
type MarkOverdueTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *MarkOverdueTaskDef) TaskID() string {
	return "mark_overdue"
}

// HandleExecution runs one overdue sweep
func (t *MarkOverdueTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	now := time.Now()

	// Grace period in days before a late installment flags the record.
	graceDays := 0
	if v, ok := task.Arguments["grace_days"].(float64); ok && v > 0 {
		graceDays = int(v)
	}
	cutoff := now.AddDate(0, 0, -graceDays)

	flagged := 0
	cleared := 0

	var openRecords []models.Record
	err := db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_number asc")
		}).
		Where("status IN ?", []models.RecordStatus{models.RecordStatusActive, models.RecordStatusOverdue}).
		Find(&openRecords).Error
	if err != nil {
		return nil, err
	}

	for _, record := range openRecords {
		late := false
		for _, inst := range record.Installments {
			if inst.Status == models.InstallmentStatusPending && inst.DueDate.Before(cutoff) {
				late = true
				break
			}
		}

		switch {
		case late && record.Status == models.RecordStatusActive:
			if err := db.Model(&models.Record{}).Where("id = ?", record.ID).
				Update("status", models.RecordStatusOverdue).Error; err != nil {
				log.Printf("[Task: mark_overdue] failed to flag record %d: %v", record.ID, err)
				continue
			}
			flagged++
		case !late && record.Status == models.RecordStatusOverdue:
			if err := db.Model(&models.Record{}).Where("id = ?", record.ID).
				Update("status", models.RecordStatusActive).Error; err != nil {
				log.Printf("[Task: mark_overdue] failed to clear record %d: %v", record.ID, err)
				continue
			}
			cleared++
		}
	}

	log.Printf("[Task: mark_overdue] swept %d open records: %d flagged, %d cleared", len(openRecords), flagged, cleared)

	return map[string]interface{}{
		"status":  "success",
		"swept":   len(openRecords),
		"flagged": flagged,
		"cleared": cleared,
	}, nil
}

// MarkOverdueTask is the singleton instance of MarkOverdueTaskDef
var MarkOverdueTask = &MarkOverdueTaskDef{}
