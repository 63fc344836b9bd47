package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/centbook/centbook/internal/app"
	"github.com/centbook/centbook/internal/bills"
	"github.com/centbook/centbook/internal/ledger"
	"github.com/centbook/centbook/internal/platform/cache"
	"github.com/centbook/centbook/internal/platform/db"
	"github.com/centbook/centbook/internal/projection"
	"github.com/centbook/centbook/internal/recurring"
	"github.com/centbook/centbook/internal/shared"
	"github.com/centbook/centbook/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobs.NewMetrics(nil)

	ledgerRepo := ledger.NewRepository(pool)

	locker := shared.NewOwnerLocker(redisClient, cfg.LockTTL)
	recurringRepo := recurring.NewPGRepository(pool)
	recurringService := recurring.NewService(recurringRepo, locker, logger)
	processJob := recurring.NewProcessJob(recurringService, metrics, logger)

	billsRepo := bills.NewPGRepository(pool)
	billsService := bills.NewService(billsRepo, nil, logger)
	reminderJob := bills.NewReminderJob(billsService, metrics, logger)

	projectionRepo := projection.NewPGRepository(pool)
	projectionEngine := projection.NewEngine(projectionRepo, recurringRepo, ledgerRepo, logger)
	refreshJob := projection.NewRefreshJob(projectionEngine, recurringRepo, metrics, logger)

	processTask, err := jobs.NewRecurringProcessTask(jobs.RecurringProcessPayload{})
	if err != nil {
		logger.Error("build process task", slog.Any("error", err))
		os.Exit(1)
	}
	refreshTask, err := jobs.NewProjectionRefreshTask(jobs.ProjectionRefreshPayload{WindowDays: cfg.ProjectionWindowDays})
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRecurringProcess, Handler: processJob.Handle},
			{Type: jobs.TaskBillReminders, Handler: reminderJob.Handle},
			{Type: jobs.TaskProjectionRefresh, Handler: refreshJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 0 * * *", Task: processTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 1 * * *", Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 7 * * *", Task: jobs.NewBillRemindersTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
