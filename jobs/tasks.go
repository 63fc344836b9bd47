package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRecurringProcess materializes due recurring definitions.
	TaskRecurringProcess = "recurring:process"
	// TaskBillReminders scans bills entering their reminder window.
	TaskBillReminders = "bills:remind"
	// TaskProjectionRefresh reconciles actuals and regenerates the
	// rolling projection window.
	TaskProjectionRefresh = "projection:refresh"
)

// RecurringProcessPayload scopes a process run. An empty owner id
// processes every owner with due definitions.
type RecurringProcessPayload struct {
	OwnerID string `json:"owner_id"`
}

// ProjectionRefreshPayload scopes a refresh run. An empty owner id
// covers every owner with active definitions.
type ProjectionRefreshPayload struct {
	OwnerID    string `json:"owner_id"`
	WindowDays int    `json:"window_days"`
}

// NewRecurringProcessTask constructs an Asynq task.
func NewRecurringProcessTask(payload RecurringProcessPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecurringProcess, data), nil
}

// NewBillRemindersTask constructs an Asynq task. The scan has no
// parameters; the payload stays empty.
func NewBillRemindersTask() *asynq.Task {
	return asynq.NewTask(TaskBillReminders, nil)
}

// NewProjectionRefreshTask constructs an Asynq task.
func NewProjectionRefreshTask(payload ProjectionRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProjectionRefresh, data), nil
}
