package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/brickline-erp/brickline/internal/app"
	"github.com/brickline-erp/brickline/internal/insights"
	"github.com/brickline-erp/brickline/internal/invoice"
	"github.com/brickline-erp/brickline/internal/observability"
	"github.com/brickline-erp/brickline/internal/order"
	"github.com/brickline-erp/brickline/internal/platform/cache"
	"github.com/brickline-erp/brickline/internal/platform/db"
	"github.com/brickline-erp/brickline/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

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

	metrics := observability.NewMetrics()

	viewCache := insights.NewCache(redisClient, cfg.InsightsCacheTTL)
	orderRepo := order.NewRepository(pool)
	invoiceRepo := invoice.NewRepository(pool)
	insightsSource := insights.NewSource(pool, orderRepo, invoiceRepo)
	insightsService := insights.NewService(insightsSource, viewCache)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	warmupJob := jobs.NewInsightsWarmupJob(insightsService, pool, logger, metrics)
	pendingJob := jobs.NewPendingActionScanJob(pool, insightsSource, jobClient, logger, metrics)

	warmupTask, err := jobs.NewInsightsWarmupTask(jobs.InsightsWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	pendingTask, err := jobs.NewPendingActionScanTask(jobs.PendingActionScanPayload{StaleAfterHours: 48})
	if err != nil {
		logger.Error("build pending scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInsightsWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskPendingActionScan, Handler: pendingJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 */6 * * *", Task: pendingTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
