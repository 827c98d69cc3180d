package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-photos/odyssey-photos/internal/platform/httpx"
	"github.com/odyssey-photos/odyssey-photos/internal/shared"
)

// BackfillRetrier schedules a later backfill for a principal.
type BackfillRetrier interface {
	RetryBackfill(ctx context.Context, principalID string) error
}

// Handler manages user endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	retrier BackfillRetrier
}

// NewHandler builds Handler instance. retrier may be nil.
func NewHandler(logger *slog.Logger, service *Service, retrier BackfillRetrier) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, retrier: retrier}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.createUser)
	r.Group(func(r chi.Router) {
		r.Use(shared.RequirePrincipal)
		r.Get("/{id}", h.getUser)
	})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Create(r.Context(), in)
	if err != nil {
		var backfillErr *BackfillError
		if errors.As(err, &backfillErr) {
			h.scheduleRetry(r.Context(), backfillErr.PrincipalID)
			httpx.Problem(w, http.StatusInternalServerError, "Backfill Pending", "account "+backfillErr.PrincipalID+" created; shared access will be granted shortly")
			return
		}
		h.logger.Warn("create user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) scheduleRetry(ctx context.Context, principalID string) {
	if h.retrier == nil {
		return
	}
	if err := h.retrier.RetryBackfill(ctx, principalID); err != nil {
		h.logger.Error("schedule backfill retry", slog.String("principal_id", principalID), slog.Any("error", err))
	}
}
