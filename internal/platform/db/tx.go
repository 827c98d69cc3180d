package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTx executes fn inside a single transaction. It backs the batch-save
// primitives only; callers never compose several repository calls into one tx.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// ExecBatch queues all statements and executes them in one round trip inside a
// transaction so a batch save either fully lands or not at all.
func ExecBatch(ctx context.Context, pool *pgxpool.Pool, batch *pgx.Batch) error {
	if batch == nil || batch.Len() == 0 {
		return nil
	}
	return WithTx(ctx, pool, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("platform/db: batch statement %d: %w", i, err)
			}
		}
		return results.Close()
	})
}
