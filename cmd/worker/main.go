package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/leajer/leajer/internal/app"
	jobmetrics "github.com/leajer/leajer/internal/jobs"
	"github.com/leajer/leajer/internal/platform/cache"
	"github.com/leajer/leajer/internal/request"
	"github.com/leajer/leajer/internal/shared"
	"github.com/leajer/leajer/jobs"
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

	requestRepo := request.NewHTTPRepository(cfg.RequestAPIURL, logger)
	metrics := jobmetrics.NewMetrics(nil)
	exporter := jobs.NewExporter(requestRepo, cfg.RequestAPIToken, cfg.ExportDir, logger, metrics)

	sessionManager := shared.NewSessionManager(redisClient, "leajer_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	sweeper := jobs.NewSweeper(sessionManager, cfg.SessionMaxIdle, logger, metrics)

	nightlyExport, err := jobs.NewExportRequestsTask(jobs.ExportRequestsPayload{
		RequestedBy: "scheduler",
		Reason:      "nightly snapshot",
	})
	if err != nil {
		logger.Error("build export task", slog.Any("error", err))
		os.Exit(1)
	}
	nightlySweep, err := jobs.NewSweepSessionsTask(jobs.SweepSessionsPayload{Reason: "scheduled sweep"})
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeExportRequests, Handler: exporter.HandleExportRequestsTask},
			{Type: jobs.TaskTypeSweepSessions, Handler: sweeper.HandleSweepSessionsTask},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ExportCron, Task: nightlyExport},
			{Spec: cfg.SessionSweepCron, Task: nightlySweep},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exit", slog.Any("error", err))
		os.Exit(1)
	}
}
