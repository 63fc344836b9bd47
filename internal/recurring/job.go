package recurring

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/centbook/centbook/jobs"
)

// ProcessJob runs scheduled materialization of due definitions.
type ProcessJob struct {
	service *Service
	metrics *jobs.Metrics
	logger  *slog.Logger
}

// NewProcessJob constructs a job handler.
func NewProcessJob(service *Service, metrics *jobs.Metrics, logger *slog.Logger) *ProcessJob {
	return &ProcessJob{service: service, metrics: metrics, logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract. An empty owner id in
// the payload processes every owner with due definitions.
func (j *ProcessJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload jobs.RecurringProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.metrics.Track("recurring_process")

	var err error
	var result = struct {
		processed int
		failures  int
	}{}
	if payload.OwnerID == "" {
		batch, runErr := j.service.ProcessAllDue(ctx)
		result.processed, result.failures, err = batch.Processed, len(batch.Failures), runErr
	} else {
		batch, runErr := j.service.Process(ctx, payload.OwnerID)
		result.processed, result.failures, err = batch.Processed, len(batch.Failures), runErr
	}
	if err != nil {
		j.logger.Error("recurring process job", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.Info("recurring process job done",
		slog.Int("materialized", result.processed),
		slog.Int("failures", result.failures))
	return tracker.End(nil)
}
