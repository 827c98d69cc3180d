package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/odyssey-photos/odyssey-photos/internal/observability"
	"github.com/odyssey-photos/odyssey-photos/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger   *slog.Logger
	Config   *Config
	Sessions *shared.SessionStore
	Metrics  *observability.Metrics
}

// MiddlewareStack installs the API middleware chain. The rate limiter runs
// after session resolution so authenticated callers are limited per
// principal and anonymous ones per IP.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !cfg.Config.IsProduction(),
	})

	timeout := 30 * time.Second
	perMinute := 120
	if cfg.Config != nil {
		if cfg.Config.AppRequestTimeout > 0 {
			timeout = cfg.Config.AppRequestTimeout
		}
		if cfg.Config.RateLimitPerMinute > 0 {
			perMinute = cfg.Config.RateLimitPerMinute
		}
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
	}
	if cfg.Sessions != nil {
		middlewares = append(middlewares, cfg.Sessions.Middleware(logger))
	}
	middlewares = append(middlewares, httprate.Limit(perMinute, time.Minute, httprate.WithKeyFuncs(principalOrIP)))
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	return middlewares
}

func principalOrIP(r *http.Request) (string, error) {
	if id, ok := shared.PrincipalFromContext(r.Context()); ok {
		return "principal:" + id, nil
	}
	return httprate.KeyByIP(r)
}
