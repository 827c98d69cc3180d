package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaFile string

// SchemaStatements splits schema.sql into individual statements.
func SchemaStatements() []string {
	parts := strings.Split(schemaFile, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

// EnsureSchema applies the idempotent DDL in schema.sql.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range SchemaStatements() {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("platform/db: schema statement %d: %w", i, err)
		}
	}
	return nil
}
