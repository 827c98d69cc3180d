package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-photos/odyssey-photos/internal/jobs"
	"github.com/odyssey-photos/odyssey-photos/internal/platform/httpx"
)

// Resyncer re-runs access synchronisation for an album.
type Resyncer interface {
	Resync(ctx context.Context, albumID string) error
}

// ResyncJob handles TaskAlbumResync.
type ResyncJob struct {
	Syncer  Resyncer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewResyncJob constructs the job handler.
func NewResyncJob(syncer Resyncer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ResyncJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResyncJob{Syncer: syncer, Logger: logger, Metrics: metrics}
}

// Handle executes one resync. A deleted album is dropped without retry.
func (j *ResyncJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Syncer == nil {
		return errors.New("album resync: dependencies not configured")
	}
	var payload ResyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.AlbumID == "" {
		j.Metrics.Skip(TaskAlbumResync, "bad_payload")
		return fmt.Errorf("album resync: invalid payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskAlbumResync)
	err := j.Syncer.Resync(ctx, payload.AlbumID)
	if errors.Is(err, httpx.ErrNotFound) {
		j.Logger.Info("album gone, dropping resync", slog.String("album_id", payload.AlbumID))
		j.Metrics.Skip(TaskAlbumResync, "not_found")
		return fmt.Errorf("album resync %s: %v: %w", payload.AlbumID, err, asynq.SkipRetry)
	}
	if err != nil {
		j.Logger.Error("album resync", slog.String("album_id", payload.AlbumID), slog.Any("error", err))
		return tracker.End(err)
	}
	j.Logger.Info("album resync complete", slog.String("album_id", payload.AlbumID))
	return tracker.End(nil)
}
