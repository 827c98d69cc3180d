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

	"github.com/odyssey-photos/odyssey-photos/internal/access"
	albumshttp "github.com/odyssey-photos/odyssey-photos/internal/albums/http"
	"github.com/odyssey-photos/odyssey-photos/internal/app"
	"github.com/odyssey-photos/odyssey-photos/internal/observability"
	"github.com/odyssey-photos/odyssey-photos/internal/platform/cache"
	"github.com/odyssey-photos/odyssey-photos/internal/platform/db"
	"github.com/odyssey-photos/odyssey-photos/internal/shared"
	"github.com/odyssey-photos/odyssey-photos/internal/users"
	"github.com/odyssey-photos/odyssey-photos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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
	if cfg.DBAutoMigrate {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Error("ensure schema", slog.Any("error", err))
			os.Exit(1)
		}
	}

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
	services := app.NewServices(cfg, pool, redisClient, logger, metrics.Registerer())

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts, logger)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	var (
		syncRetrier     albumshttp.SyncRetrier
		backfillRetrier users.BackfillRetrier
	)
	if cfg.ResyncOnFailure {
		syncRetrier = jobClient
		backfillRetrier = jobClient
	}

	sessions := shared.NewSessionStore(redisClient, cfg.SessionCookie, cfg.SessionTTL)
	authz := access.Middleware{Albums: services.AlbumRepo, Authorizer: services.Authorizer, Logger: logger}

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		Sessions:     sessions,
		UsersHandler: users.NewHandler(logger, services.Users, backfillRetrier),
		AlbumHandler: albumshttp.NewHandler(logger, services.Albums, authz, services.Syncer, services.RoleRepo, syncRetrier),
		JobsHandler:  jobs.NewHandler(inspector, logger),
		Metrics:      metrics,
		Health: map[string]app.Pinger{
			"postgres": pool,
			"redis": app.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
