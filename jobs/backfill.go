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
	"github.com/odyssey-photos/odyssey-photos/internal/users"
)

// PrincipalReader loads the principal being backfilled.
type PrincipalReader interface {
	Get(ctx context.Context, id string) (users.Principal, error)
}

// Reconciler grants a principal its pending invites. It must be idempotent.
type Reconciler interface {
	Reconcile(ctx context.Context, p users.Principal) error
}

// BackfillJob handles TaskPrincipalBackfill.
type BackfillJob struct {
	Principals PrincipalReader
	Reconciler Reconciler
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewBackfillJob constructs the job handler.
func NewBackfillJob(principals PrincipalReader, reconciler Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *BackfillJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackfillJob{Principals: principals, Reconciler: reconciler, Logger: logger, Metrics: metrics}
}

// Handle executes one backfill. It bypasses the once-per-principal guard
// because it only runs when an earlier attempt failed or an operator asked.
func (j *BackfillJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Principals == nil || j.Reconciler == nil {
		return errors.New("principal backfill: dependencies not configured")
	}
	var payload BackfillPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.PrincipalID == "" {
		j.Metrics.Skip(TaskPrincipalBackfill, "bad_payload")
		return fmt.Errorf("principal backfill: invalid payload: %w", asynq.SkipRetry)
	}

	p, err := j.Principals.Get(ctx, payload.PrincipalID)
	if errors.Is(err, httpx.ErrNotFound) {
		j.Metrics.Skip(TaskPrincipalBackfill, "not_found")
		return fmt.Errorf("principal backfill %s: %v: %w", payload.PrincipalID, err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}

	tracker := j.Metrics.Track(TaskPrincipalBackfill)
	if err := j.Reconciler.Reconcile(ctx, p); err != nil {
		j.Logger.Error("principal backfill", slog.String("principal_id", p.ID), slog.Any("error", err))
		return tracker.End(err)
	}
	return tracker.End(nil)
}
