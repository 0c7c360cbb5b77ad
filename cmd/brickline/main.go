package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/brickline-erp/brickline/internal/app"
	"github.com/brickline-erp/brickline/internal/auth"
	"github.com/brickline-erp/brickline/internal/insights"
	"github.com/brickline-erp/brickline/internal/invoice"
	"github.com/brickline-erp/brickline/internal/materials"
	"github.com/brickline-erp/brickline/internal/observability"
	"github.com/brickline-erp/brickline/internal/order"
	"github.com/brickline-erp/brickline/internal/platform/cache"
	"github.com/brickline-erp/brickline/internal/platform/db"
	"github.com/brickline-erp/brickline/internal/shared"
	"github.com/brickline-erp/brickline/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
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

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, redisClient, cfg.TokenTTL)
	authHandler := auth.NewHandler(logger, authService)

	viewCache := insights.NewCache(redisClient, cfg.InsightsCacheTTL)

	orderRepo := order.NewRepository(pool)
	orderService := order.NewService(orderRepo, auditLogger, idempotencyStore, viewCache).WithMetrics(metrics)
	orderHandler := order.NewHandler(logger, orderService)

	invoiceRepo := invoice.NewRepository(pool)
	invoiceService := invoice.NewService(invoiceRepo, orderRepo, auditLogger, viewCache)
	invoiceHandler := invoice.NewHandler(logger, invoiceService)

	materialsRepo := materials.NewRepository(pool)
	materialsService := materials.NewService(materialsRepo, auditLogger)
	materialsHandler := materials.NewHandler(logger, materialsService)

	insightsSource := insights.NewSource(pool, orderRepo, invoiceRepo)
	insightsService := insights.NewService(insightsSource, viewCache)
	insightsHandler := insights.NewHandler(logger, insightsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
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
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthService:      authService,
		AuthHandler:      authHandler,
		OrderHandler:     orderHandler,
		InvoiceHandler:   invoiceHandler,
		MaterialsHandler: materialsHandler,
		InsightsHandler:  insightsHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
