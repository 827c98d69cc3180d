package access

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-photos/odyssey-photos/internal/albums"
	"github.com/odyssey-photos/odyssey-photos/internal/platform/httpx"
	"github.com/odyssey-photos/odyssey-photos/internal/shared"
)

type albumContextKey struct{}

// AlbumReader loads the album a request targets.
type AlbumReader interface {
	Get(ctx context.Context, id string) (albums.Album, error)
}

// Middleware wires album authorization into HTTP handlers.
type Middleware struct {
	Albums     AlbumReader
	Authorizer *Authorizer
	Logger     *slog.Logger
	// Param names the chi URL parameter holding the album id. Defaults to "id".
	Param string
}

// RequireAlbum loads the album named in the URL, checks the current principal
// holds need on it, and stores the loaded album in the request context.
func (m Middleware) RequireAlbum(need Need) func(http.Handler) http.Handler {
	param := m.Param
	if param == "" {
		param = "id"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principalID, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			album, err := m.Albums.Get(r.Context(), chi.URLParam(r, param))
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			if err := m.Authorizer.Authorize(r.Context(), principalID, album, need); err != nil {
				if !errors.Is(err, httpx.ErrForbidden) && m.Logger != nil {
					m.Logger.Error("album authorize", slog.String("album_id", album.ID), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithAlbum(r.Context(), album)))
		})
	}
}

// ContextWithAlbum stores an authorized album in context.
func ContextWithAlbum(ctx context.Context, album albums.Album) context.Context {
	return context.WithValue(ctx, albumContextKey{}, album)
}

// AlbumFromContext returns the album stored by RequireAlbum.
func AlbumFromContext(ctx context.Context) (albums.Album, bool) {
	album, ok := ctx.Value(albumContextKey{}).(albums.Album)
	return album, ok
}
