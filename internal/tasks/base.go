package tasks

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"recordbook_app_echo/internal/models"
)

// NewScheduledTask builds a ScheduledTask row ready for insertion. The task
// name must be registered, and recurring tasks must carry a parseable RRULE.
func NewScheduledTask(taskName string, args map[string]interface{}, due time.Time, taskType models.ScheduledTaskType, recurringInterval *string, maxAttempt int) (*models.ScheduledTask, error) {
	if _, ok := GetHandler(taskName); !ok {
		return nil, fmt.Errorf("unknown task name %q", taskName)
	}
	if maxAttempt < 1 {
		return nil, fmt.Errorf("max attempt must be at least 1")
	}

	switch taskType {
	case models.ScheduledTaskTypeOneTime:
		if recurringInterval != nil && *recurringInterval != "" {
			return nil, fmt.Errorf("onetime task cannot have a recurring interval")
		}
	case models.ScheduledTaskTypeRecurring:
		if recurringInterval == nil || *recurringInterval == "" {
			return nil, fmt.Errorf("recurring task requires a recurring interval")
		}
		if _, err := rrule.StrToRRule(*recurringInterval); err != nil {
			return nil, fmt.Errorf("invalid recurring interval: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}

	if args == nil {
		args = map[string]interface{}{}
	}

	return &models.ScheduledTask{
		TaskName:          taskName,
		Arguments:         args,
		Due:               due,
		RecurringInterval: recurringInterval,
		Status:            models.ScheduledTaskStatusActive,
		TaskType:          taskType,
		MaxAttempt:        maxAttempt,
	}, nil
}
