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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-photos/odyssey-photos/internal/app"
	jobmetrics "github.com/odyssey-photos/odyssey-photos/internal/jobs"
	"github.com/odyssey-photos/odyssey-photos/internal/platform/cache"
	"github.com/odyssey-photos/odyssey-photos/internal/platform/db"
	"github.com/odyssey-photos/odyssey-photos/jobs"
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
	slog.SetDefault(logger)

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

	services := app.NewServices(cfg, pool, redisClient, logger, prometheus.DefaultRegisterer)
	metrics := jobmetrics.NewMetrics(nil)

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	resyncJob := jobs.NewResyncJob(services.Syncer, logger, metrics)
	backfillJob := jobs.NewBackfillJob(services.UserRepo, services.Backfiller, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAlbumResync, Handler: resyncJob.Handle},
			{Type: jobs.TaskPrincipalBackfill, Handler: backfillJob.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
