package tasks

import (
	"context"
	"log"

	"gorm.io/gorm"

	"recordbook_app_echo/internal/models"
)

// LogInfoTaskDef is a diagnostic task: it logs its message argument and
// succeeds. Useful for verifying the worker loop and retry bookkeeping.
type LogInfoTaskDef struct{}

func (t *LogInfoTaskDef) TaskID() string {
	return "log_info"
}

func (t *LogInfoTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	message, ok := task.Arguments["message"].(string)
	if !ok || message == "" {
		message = "(no message)"
	}
	log.Printf("[Task: log_info] task %d: %s", task.ID, message)

	return map[string]interface{}{
		"status":  "success",
		"message": message,
	}, nil
}

// LogInfoTask is the singleton instance of LogInfoTaskDef
var LogInfoTask = &LogInfoTaskDef{}
