package tasks

// DefineTasks registers all available tasks
func DefineTasks() {
	// Register general tasks
	RegisterHandler(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)

	// Register record lifecycle tasks
	RegisterHandler(MarkOverdueTask.TaskID(), MarkOverdueTask.HandleExecution)

	// Register notification tasks
	RegisterHandler(SendDueReminderTask.TaskID(), SendDueReminderTask.HandleExecution)
}
