package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueAccess carries access repair tasks.
	QueueAccess = "access"
	// QueueDefault is the fallback queue for everything else.
	QueueDefault = "default"

	// TaskAlbumResync re-runs role sync and ACL propagation for one album.
	TaskAlbumResync = "album:resync"
	// TaskPrincipalBackfill re-runs invite backfill for one principal.
	TaskPrincipalBackfill = "principal:backfill"

	defaultMaxRetry = 10
	dedupeWindow    = 30 * time.Second
)

// ResyncPayload names the album to resynchronise.
type ResyncPayload struct {
	AlbumID string `json:"album_id"`
}

// BackfillPayload names the principal to backfill.
type BackfillPayload struct {
	PrincipalID string `json:"principal_id"`
}

// NewResyncTask builds an album resync task. Identical requests within a
// short window collapse into one queued task.
func NewResyncTask(albumID string) (*asynq.Task, error) {
	if albumID == "" {
		return nil, errors.New("jobs: album id required")
	}
	body, err := json.Marshal(ResyncPayload{AlbumID: albumID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAlbumResync, body,
		asynq.Queue(QueueAccess),
		asynq.MaxRetry(defaultMaxRetry),
		asynq.Unique(dedupeWindow),
	), nil
}

// NewBackfillTask builds a principal backfill task.
func NewBackfillTask(principalID string) (*asynq.Task, error) {
	if principalID == "" {
		return nil, errors.New("jobs: principal id required")
	}
	body, err := json.Marshal(BackfillPayload{PrincipalID: principalID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPrincipalBackfill, body,
		asynq.Queue(QueueAccess),
		asynq.MaxRetry(defaultMaxRetry),
		asynq.Unique(dedupeWindow),
	), nil
}
