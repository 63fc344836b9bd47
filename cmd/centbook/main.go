package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/centbook/centbook/internal/app"
	"github.com/centbook/centbook/internal/bills"
	"github.com/centbook/centbook/internal/health"
	"github.com/centbook/centbook/internal/ledger"
	"github.com/centbook/centbook/internal/observability"
	"github.com/centbook/centbook/internal/platform/cache"
	"github.com/centbook/centbook/internal/platform/db"
	"github.com/centbook/centbook/internal/projection"
	"github.com/centbook/centbook/internal/recurring"
	"github.com/centbook/centbook/internal/shared"
	"github.com/centbook/centbook/jobs"
)

func main() {
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
		logger.Warn("redis unavailable, running without locks and cache", slog.Any("error", err))
		redisClient = nil
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	ledgerRepo := ledger.NewRepository(pool)

	var locker *shared.OwnerLocker
	if redisClient != nil {
		locker = shared.NewOwnerLocker(redisClient, cfg.LockTTL)
	}
	recurringRepo := recurring.NewPGRepository(pool)
	recurringService := recurring.NewService(recurringRepo, locker, logger)
	recurringHandler := recurring.NewHandler(logger, recurringService)

	billsRepo := bills.NewPGRepository(pool)
	billsService := bills.NewService(billsRepo, nil, logger)
	billsHandler := bills.NewHandler(logger, billsService)

	projectionRepo := projection.NewPGRepository(pool)
	projectionEngine := projection.NewEngine(projectionRepo, recurringRepo, ledgerRepo, logger)
	forecastCache := projection.NewCache(redisClient, cfg.ForecastCacheTTL)
	forecaster := projection.NewForecaster(projectionEngine, forecastCache)
	projectionHandler := projection.NewHandler(logger, projectionEngine, forecaster)

	healthSource := health.NewPGSource(pool)
	healthService := health.NewService(ledgerRepo, recurringRepo, projectionEngine, healthSource, healthSource, healthSource, logger)
	healthHandler := health.NewHandler(logger, healthService)

	var jobHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		RecurringHandler:  recurringHandler,
		BillsHandler:      billsHandler,
		ProjectionHandler: projectionHandler,
		HealthHandler:     healthHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
