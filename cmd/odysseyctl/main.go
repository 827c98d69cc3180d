// odysseyctl is the operator CLI for access repair. It enqueues album resync
// and principal backfill tasks for the worker and reports queue depth.
//
// Usage:
//
//	odysseyctl resync --album ID
//	odysseyctl backfill --principal ID
//	odysseyctl queue
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/spf13/pflag"

	"github.com/odyssey-photos/odyssey-photos/internal/app"
	"github.com/odyssey-photos/odyssey-photos/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, dialQueue); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// queue is the task surface the commands drive.
type queue interface {
	EnqueueResync(ctx context.Context, albumID string) (*asynq.TaskInfo, error)
	EnqueueBackfill(ctx context.Context, principalID string) (*asynq.TaskInfo, error)
	Stats(ctx context.Context) ([]queueStats, error)
	Close() error
}

type queueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

func run(ctx context.Context, args []string, stdout io.Writer, dial func(redisAddr string) queue) error {
	if len(args) == 0 {
		printUsage(stdout)
		return errors.New("missing command")
	}
	command, rest := args[0], args[1:]

	var redisAddr, albumID, principalID string
	flagSet := pflag.NewFlagSet("odysseyctl "+command, pflag.ContinueOnError)
	flagSet.SetOutput(stdout)
	flagSet.StringVar(&redisAddr, "redis", "", "redis address (default: $REDIS_ADDR)")
	switch command {
	case "resync":
		flagSet.StringVar(&albumID, "album", "", "album id to resynchronise")
	case "backfill":
		flagSet.StringVar(&principalID, "principal", "", "principal id to backfill")
	case "queue":
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stdout)
		return fmt.Errorf("unknown command %q", command)
	}
	if err := flagSet.Parse(rest); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if redisAddr == "" {
		cfg, err := app.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		redisAddr = cfg.RedisAddr
	}
	q := dial(redisAddr)
	defer q.Close()

	switch command {
	case "resync":
		if albumID == "" {
			return errors.New("resync: --album is required")
		}
		info, err := q.EnqueueResync(ctx, albumID)
		if err != nil {
			return fmt.Errorf("resync: %w", err)
		}
		printEnqueued(stdout, jobs.TaskAlbumResync, albumID, info)
	case "backfill":
		if principalID == "" {
			return errors.New("backfill: --principal is required")
		}
		info, err := q.EnqueueBackfill(ctx, principalID)
		if err != nil {
			return fmt.Errorf("backfill: %w", err)
		}
		printEnqueued(stdout, jobs.TaskPrincipalBackfill, principalID, info)
	case "queue":
		stats, err := q.Stats(ctx)
		if err != nil {
			return fmt.Errorf("queue: %w", err)
		}
		fmt.Fprintf(stdout, "%-10s %8s %8s %10s %6s %9s\n", "QUEUE", "PENDING", "ACTIVE", "SCHEDULED", "RETRY", "ARCHIVED")
		for _, s := range stats {
			fmt.Fprintf(stdout, "%-10s %8d %8d %10d %6d %9d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Archived)
		}
	}
	return nil
}

func printEnqueued(w io.Writer, task, target string, info *asynq.TaskInfo) {
	if info == nil {
		fmt.Fprintf(w, "%s %s already queued\n", task, target)
		return
	}
	fmt.Fprintf(w, "%s %s enqueued as %s on %s\n", task, target, info.ID, info.Queue)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `usage: odysseyctl <command> [flags]

commands:
  resync   --album ID        re-run role sync and ACL propagation for an album
  backfill --principal ID    grant a principal its pending invites
  queue                      show task queue depth

common flags:
  --redis ADDR               redis address (default: $REDIS_ADDR)
`)
}

type asynqQueue struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

func dialQueue(redisAddr string) queue {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	return &asynqQueue{client: jobs.NewClient(opts, nil), inspector: asynq.NewInspector(opts)}
}

func (q *asynqQueue) EnqueueResync(ctx context.Context, albumID string) (*asynq.TaskInfo, error) {
	return q.client.EnqueueResync(ctx, albumID)
}

func (q *asynqQueue) EnqueueBackfill(ctx context.Context, principalID string) (*asynq.TaskInfo, error) {
	return q.client.EnqueueBackfill(ctx, principalID)
}

func (q *asynqQueue) Stats(ctx context.Context) ([]queueStats, error) {
	out := make([]queueStats, 0, 2)
	for _, name := range []string{jobs.QueueAccess, jobs.QueueDefault} {
		stats := queueStats{Queue: name}
		info, err := q.inspector.GetQueueInfo(name)
		if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, err
		}
		if info != nil {
			stats.Pending = info.Pending
			stats.Active = info.Active
			stats.Scheduled = info.Scheduled
			stats.Retry = info.Retry
			stats.Archived = info.Archived
		}
		out = append(out, stats)
	}
	return out, nil
}

func (q *asynqQueue) Close() error {
	return errors.Join(q.inspector.Close(), q.client.Close())
}
