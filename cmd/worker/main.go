package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/gescom-erp/gescom-erp/internal/app"
	jobmetrics "github.com/gescom-erp/gescom-erp/internal/jobs"
	"github.com/gescom-erp/gescom-erp/internal/ledger/periods"
	"github.com/gescom-erp/gescom-erp/internal/ledger/reports"
	"github.com/gescom-erp/gescom-erp/internal/platform/cache"
	"github.com/gescom-erp/gescom-erp/internal/platform/db"
	"github.com/gescom-erp/gescom-erp/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
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

	reportsRepo := reports.NewRepository(pool)
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	periodsService := periods.NewService(periods.NewRepository(pool))
	reportsService := reports.NewService(reportsRepo, reportsCache, periodsService)
	if err := reportsCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	snapshotTask, err := jobs.NewTBSnapshotTask(jobs.TBSnapshotPayload{
		StartDate: monthStart.Format("2006-01-02"),
		EndDate:   monthStart.AddDate(0, 1, -1).Format("2006-01-02"),
	})
	if err != nil {
		logger.Error("build snapshot task", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := jobmetrics.NewMetrics(nil)
	tracked := func(name string, h asynq.HandlerFunc) asynq.HandlerFunc {
		return func(ctx context.Context, t *asynq.Task) error {
			return metrics.Track(name).End(h(ctx, t))
		}
	}

	integrityHandler := func(ctx context.Context, t *asynq.Task) error {
		return jobs.RunGLIntegrityCheck(ctx, pool, logger)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeTBSnapshot, Handler: tracked("tb_snapshot", jobs.NewTBSnapshotHandler(reportsService, reportsRepo, logger))},
			{Type: jobs.TaskTypeCacheWarm, Handler: tracked("cache_warm", jobs.NewCacheWarmHandler(reportsService, logger))},
			{Type: jobs.TaskTypeIntegrity, Handler: tracked("gl_integrity", integrityHandler)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 2 * * *", Task: snapshotTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 2 * * *", Task: asynq.NewTask(jobs.TaskTypeIntegrity, nil), Options: []asynq.Option{asynq.MaxRetry(1)}},
			{Spec: "0 * * * *", Task: asynq.NewTask(jobs.TaskTypeCacheWarm, nil), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
