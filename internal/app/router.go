package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	albumshttp "github.com/odyssey-photos/odyssey-photos/internal/albums/http"
	"github.com/odyssey-photos/odyssey-photos/internal/observability"
	"github.com/odyssey-photos/odyssey-photos/internal/platform/httpx"
	"github.com/odyssey-photos/odyssey-photos/internal/shared"
	"github.com/odyssey-photos/odyssey-photos/internal/users"
	"github.com/odyssey-photos/odyssey-photos/jobs"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	Sessions     *shared.SessionStore
	UsersHandler *users.Handler
	AlbumHandler *albumshttp.Handler
	JobsHandler  *jobs.Handler
	Metrics      *observability.Metrics
	Health       map[string]Pinger
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Sessions: params.Sessions,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", healthHandler(params.Health))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.AlbumHandler != nil {
		r.Route("/albums", params.AlbumHandler.MountRoutes)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	return r
}

func healthHandler(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				status[name] = "down"
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "up"
		}
		httpx.JSON(w, code, status)
	}
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}
