package projection

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/centbook/centbook/internal/shared"
	"github.com/centbook/centbook/jobs"
)

// RefreshJob regenerates a rolling projection window and reconciles
// yesterday's actuals from the ledger.
type RefreshJob struct {
	engine  *Engine
	owners  OwnerSource
	metrics *jobs.Metrics
	logger  *slog.Logger
}

// OwnerSource lists the owners whose projections a refresh run covers.
type OwnerSource interface {
	ListActiveOwners(ctx context.Context) ([]string, error)
}

// NewRefreshJob constructs a job handler.
func NewRefreshJob(engine *Engine, owners OwnerSource, metrics *jobs.Metrics, logger *slog.Logger) *RefreshJob {
	return &RefreshJob{engine: engine, owners: owners, metrics: metrics, logger: logger}
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *RefreshJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload jobs.ProjectionRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowDays < 1 {
		payload.WindowDays = 30
	}
	tracker := j.metrics.Track("projection_refresh")

	ownerIDs := []string{payload.OwnerID}
	if payload.OwnerID == "" {
		var err error
		ownerIDs, err = j.owners.ListActiveOwners(ctx)
		if err != nil {
			j.logger.Error("list owners for projection refresh", slog.Any("error", err))
			return tracker.End(err)
		}
	}

	today := shared.Today()
	yesterday := today.AddDate(0, 0, -1)
	var failed int
	for _, ownerID := range ownerIDs {
		if _, err := j.engine.UpdateActualsFromLedger(ctx, ownerID, yesterday); err != nil {
			j.logger.Error("reconcile actuals", slog.String("owner_id", ownerID), slog.Any("error", err))
			failed++
			continue
		}
		if _, err := j.engine.GenerateProjections(ctx, ownerID, today, today.AddDate(0, 0, payload.WindowDays-1), true); err != nil {
			j.logger.Error("refresh projections", slog.String("owner_id", ownerID), slog.Any("error", err))
			failed++
		}
	}
	j.logger.Info("projection refresh done",
		slog.Int("owners", len(ownerIDs)), slog.Int("failed", failed))
	return tracker.End(nil)
}
