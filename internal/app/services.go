package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-photos/odyssey-photos/internal/access"
	"github.com/odyssey-photos/odyssey-photos/internal/albums"
	"github.com/odyssey-photos/odyssey-photos/internal/photos"
	"github.com/odyssey-photos/odyssey-photos/internal/roles"
	"github.com/odyssey-photos/odyssey-photos/internal/shared"
	"github.com/odyssey-photos/odyssey-photos/internal/users"
)

// Services is the domain object graph shared by the API server and the
// worker.
type Services struct {
	Albums     *albums.Service
	Users      *users.Service
	AlbumRepo  *albums.Repository
	UserRepo   *users.Repository
	RoleRepo   *roles.Repository
	PhotoRepo  *photos.Repository
	Syncer     *access.Syncer
	Backfiller *access.Backfiller
	Authorizer *access.Authorizer
}

// NewServices wires repositories, the access engine and the domain services.
// registerer may be nil to skip access metrics.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *slog.Logger, registerer prometheus.Registerer) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	albumRepo := albums.NewRepository(pool)
	userRepo := users.NewRepository(pool)
	roleRepo := roles.NewRepository(pool)
	photoRepo := photos.NewRepository(pool)

	var metrics *access.Metrics
	if registerer != nil {
		metrics = access.NewMetrics(registerer)
	}
	var once access.OnceGuard
	if redisClient != nil {
		once = shared.NewIdempotencyStore(redisClient, cfg.BackfillGuardTTL)
	}

	resolver := access.NewResolver(roleRepo, userRepo, logger, metrics)
	propagator := access.NewPropagator(albumRepo, photoRepo, logger)
	syncer := access.NewSyncer(albumRepo, roleRepo, photoRepo, resolver, propagator,
		access.SyncerOptions{PruneOnResync: cfg.RolePruneOnResync}, logger, metrics)
	backfiller := access.NewBackfiller(albumRepo, roleRepo, once, logger, metrics)

	return &Services{
		Albums:     albums.NewService(albumRepo, userRepo, photoRepo, syncer, logger, albums.Options{MaxMergeAttempts: cfg.MergeMaxAttempts}),
		Users:      users.NewService(userRepo, backfiller, logger),
		AlbumRepo:  albumRepo,
		UserRepo:   userRepo,
		RoleRepo:   roleRepo,
		PhotoRepo:  photoRepo,
		Syncer:     syncer,
		Backfiller: backfiller,
		Authorizer: access.NewAuthorizer(roleRepo),
	}
}
