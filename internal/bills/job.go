package bills

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/centbook/centbook/internal/shared"
	"github.com/centbook/centbook/jobs"
)

// ReminderJob runs the scheduled reminder scan.
type ReminderJob struct {
	service *Service
	metrics *jobs.Metrics
	logger  *slog.Logger
}

// NewReminderJob constructs a job handler.
func NewReminderJob(service *Service, metrics *jobs.Metrics, logger *slog.Logger) *ReminderJob {
	return &ReminderJob{service: service, metrics: metrics, logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *ReminderJob) Handle(ctx context.Context, task *asynq.Task) error {
	tracker := j.metrics.Track("bill_reminders")
	result, err := j.service.ScanReminders(ctx, shared.Today())
	if err != nil {
		j.logger.Error("bill reminder scan", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.Info("bill reminder scan done",
		slog.Int("delivered", result.Processed),
		slog.Int("failures", len(result.Failures)))
	return tracker.End(nil)
}
