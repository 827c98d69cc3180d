package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/odyssey-photos/odyssey-photos/internal/platform/httpx"
)

// Worker wraps the Asynq server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// TaskHandler allows injecting Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
}

// NewWorker constructs a Worker instance. Access repair tasks are weighted
// ahead of the default queue.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if len(cfg.Handlers) == 0 {
		return nil, errors.New("worker: no task handlers")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueAccess:  6,
			QueueDefault: 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn("task failed",
				slog.String("task", task.Type()),
				slog.Int("retry", retried),
				slog.Int("max_retry", maxRetry),
				slog.Any("error", err))
		}),
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}
	return &Worker{server: srv, mux: mux, logger: logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{client: asynq.NewClient(redisOpts), logger: logger}
}

// EnqueueResync queues an album resync. A duplicate of a task still queued
// is reported as (nil, nil).
func (c *Client) EnqueueResync(ctx context.Context, albumID string) (*asynq.TaskInfo, error) {
	task, err := NewResyncTask(albumID)
	if err != nil {
		return nil, err
	}
	return c.enqueue(ctx, task)
}

// EnqueueBackfill queues a principal backfill.
func (c *Client) EnqueueBackfill(ctx context.Context, principalID string) (*asynq.TaskInfo, error) {
	task, err := NewBackfillTask(principalID)
	if err != nil {
		return nil, err
	}
	return c.enqueue(ctx, task)
}

// RetryResync schedules a resync after a failed post-commit sync.
func (c *Client) RetryResync(ctx context.Context, albumID string) error {
	_, err := c.EnqueueResync(ctx, albumID)
	return err
}

// RetryBackfill schedules a backfill after a failed account creation hook.
func (c *Client) RetryBackfill(ctx context.Context, principalID string) error {
	_, err := c.EnqueueBackfill(ctx, principalID)
	return err
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task) (*asynq.TaskInfo, error) {
	info, err := c.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		c.logger.Debug("task already queued", slog.String("task", task.Type()))
		return nil, nil
	}
	return info, err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// QueueInspector is the subset of asynq.Inspector the health endpoint reads.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector QueueInspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
}

type queueHealth struct {
	Queue    string `json:"queue"`
	Pending  int    `json:"pending"`
	Retry    int    `json:"retry"`
	Archived int    `json:"archived"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	out := make([]queueHealth, 0, 2)
	for _, queue := range []string{QueueAccess, QueueDefault} {
		qh := queueHealth{Queue: queue}
		if h.inspector != nil {
			info, err := h.inspector.GetQueueInfo(queue)
			if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
				h.logger.Warn("jobs health", slog.String("queue", queue), slog.Any("error", err))
				httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", err.Error())
				return
			}
			if info != nil {
				qh.Pending = info.Pending
				qh.Retry = info.Retry
				qh.Archived = info.Archived
			}
		}
		out = append(out, qh)
	}
	httpx.JSON(w, http.StatusOK, out)
}
