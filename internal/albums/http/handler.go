package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-photos/odyssey-photos/internal/access"
	"github.com/odyssey-photos/odyssey-photos/internal/acl"
	"github.com/odyssey-photos/odyssey-photos/internal/albums"
	"github.com/odyssey-photos/odyssey-photos/internal/photos"
	"github.com/odyssey-photos/odyssey-photos/internal/platform/httpx"
	"github.com/odyssey-photos/odyssey-photos/internal/roles"
	"github.com/odyssey-photos/odyssey-photos/internal/shared"
)

// Resyncer re-runs access synchronisation for an album.
type Resyncer interface {
	Resync(ctx context.Context, albumID string) error
}

// RoleReader loads derived roles for the access view.
type RoleReader interface {
	FindByNames(ctx context.Context, names []string) ([]roles.Role, error)
}

// SyncRetrier schedules a background resync after a failed post-commit sync.
type SyncRetrier interface {
	RetryResync(ctx context.Context, albumID string) error
}

// Handler wires album endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *albums.Service
	authz     access.Middleware
	resyncer  Resyncer
	roles     RoleReader
	retrier   SyncRetrier
	syncLimit func(http.Handler) http.Handler
}

// NewHandler constructs the album handler. retrier may be nil, in which case
// failed syncs are only reported.
func NewHandler(logger *slog.Logger, service *albums.Service, authz access.Middleware, resyncer Resyncer, roleReader RoleReader, retrier SyncRetrier) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	limiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		if id, ok := shared.PrincipalFromContext(r.Context()); ok {
			return id, nil
		}
		return httprate.KeyByIP(r)
	}))
	return &Handler{
		logger:    logger,
		service:   service,
		authz:     authz,
		resyncer:  resyncer,
		roles:     roleReader,
		retrier:   retrier,
		syncLimit: limiter,
	}
}

// MountRoutes registers album routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(shared.RequirePrincipal)
	r.Post("/", h.createAlbum)
	r.Route("/{id}", func(r chi.Router) {
		r.With(h.authz.RequireAlbum(access.NeedRead)).Get("/", h.getAlbum)
		r.With(h.authz.RequireAlbum(access.NeedWrite)).Patch("/", h.editAlbum)
		r.With(h.authz.RequireAlbum(access.NeedOwner)).Delete("/", h.deleteAlbum)
		r.With(h.authz.RequireAlbum(access.NeedWrite)).Post("/photos", h.addPhoto)
		r.With(h.authz.RequireAlbum(access.NeedRead)).Get("/access", h.getAccess)
		r.With(h.authz.RequireAlbum(access.NeedWrite), h.syncLimit).Post("/sync", h.resync)
	})
}

func (h *Handler) createAlbum(w http.ResponseWriter, r *http.Request) {
	principalID, _ := shared.PrincipalFromContext(r.Context())
	var in albums.CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	album, err := h.service.Create(r.Context(), principalID, in)
	if err != nil {
		h.respondWriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, album)
}

func (h *Handler) getAlbum(w http.ResponseWriter, r *http.Request) {
	album, _ := access.AlbumFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, album)
}

func (h *Handler) editAlbum(w http.ResponseWriter, r *http.Request) {
	var cs albums.ChangeSet
	if err := httpx.DecodeJSON(r, &cs); err != nil {
		httpx.RespondError(w, err)
		return
	}
	album, err := h.service.Edit(r.Context(), chi.URLParam(r, "id"), cs)
	if err != nil {
		h.respondWriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, album)
}

func (h *Handler) deleteAlbum(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.logger.Error("delete album", slog.String("album_id", chi.URLParam(r, "id")), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addPhotoRequest struct {
	ObjectKey string `json:"objectKey"`
}

type addPhotoResponse struct {
	Album albums.Album `json:"album"`
	Photo photos.Photo `json:"photo"`
}

func (h *Handler) addPhoto(w http.ResponseWriter, r *http.Request) {
	var req addPhotoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	album, photo, err := h.service.AddPhoto(r.Context(), chi.URLParam(r, "id"), req.ObjectKey)
	if err != nil {
		h.respondWriteError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, addPhotoResponse{Album: album, Photo: photo})
}

type accessView struct {
	AlbumID           string      `json:"albumId"`
	OwnerID           string      `json:"ownerId"`
	RolesBootstrapped bool        `json:"rolesBootstrapped"`
	ACL               []acl.Entry `json:"acl"`
	Roles             []roleView  `json:"roles"`
}

type roleView struct {
	Name      string      `json:"name"`
	Level     roles.Level `json:"level"`
	MemberIDs []string    `json:"memberIds"`
}

func (h *Handler) getAccess(w http.ResponseWriter, r *http.Request) {
	album, _ := access.AlbumFromContext(r.Context())
	found, err := h.roles.FindByNames(r.Context(), []string{roles.ReadRoleName(album.ID), roles.WriteRoleName(album.ID)})
	if err != nil {
		h.logger.Error("load album roles", slog.String("album_id", album.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	view := accessView{
		AlbumID:           album.ID,
		OwnerID:           album.OwnerID,
		RolesBootstrapped: album.RolesBootstrapped,
		ACL:               album.ACL.Entries(),
		Roles:             make([]roleView, 0, len(found)),
	}
	for _, role := range found {
		view.Roles = append(view.Roles, roleView{Name: role.Name, Level: role.Level, MemberIDs: role.MemberIDs})
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) resync(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "id")
	if err := h.resyncer.Resync(r.Context(), albumID); err != nil {
		h.logger.Error("resync album", slog.String("album_id", albumID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	album, err := h.service.Get(r.Context(), albumID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, album)
}

// respondWriteError reports a failed album write. A committed write whose
// access sync failed gets a retry scheduled and names the saved album.
func (h *Handler) respondWriteError(w http.ResponseWriter, r *http.Request, err error) {
	var syncErr *albums.SyncError
	if !errors.As(err, &syncErr) {
		httpx.RespondError(w, err)
		return
	}
	if h.retrier != nil {
		if rerr := h.retrier.RetryResync(r.Context(), syncErr.AlbumID); rerr != nil {
			h.logger.Error("schedule album resync", slog.String("album_id", syncErr.AlbumID), slog.Any("error", rerr))
		}
	}
	httpx.Problem(w, http.StatusInternalServerError, "Sync Pending", "album "+syncErr.AlbumID+" saved; access sync failed and will be retried")
}
