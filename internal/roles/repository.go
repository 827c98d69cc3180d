package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-photos/odyssey-photos/internal/platform/db"
)

const roleColumns = `id, name, resource_id, level, member_ids, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for access roles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindByName returns the role stored under a derived name.
func (r *Repository) FindByName(ctx context.Context, name string) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM access_roles WHERE name = $1`, name)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// FindByNames returns the roles that exist among names. Missing names are
// simply absent from the result.
func (r *Repository) FindByNames(ctx context.Context, names []string) ([]Role, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM access_roles WHERE name = ANY($1) ORDER BY name`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateIfAbsent inserts role unless a row with the same name exists, and
// returns whichever row now owns the name.
func (r *Repository) CreateIfAbsent(ctx context.Context, role Role) (Role, error) {
	const insert = `
INSERT INTO access_roles (id, name, resource_id, level, member_ids)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (name) DO NOTHING`
	members := role.MemberIDs
	if members == nil {
		members = []string{}
	}
	if _, err := r.pool.Exec(ctx, insert, role.ID, role.Name, role.ResourceID, string(role.Level), members); err != nil {
		return Role{}, fmt.Errorf("roles: create %s: %w", role.Name, err)
	}
	return r.FindByName(ctx, role.Name)
}

// AddMembersBatch unions each role's MemberIDs into the stored membership.
// Union is commutative, so concurrent additions from the resolver and the
// backfill never drop each other's members.
func (r *Repository) AddMembersBatch(ctx context.Context, batchRoles []Role) error {
	const query = `
UPDATE access_roles
SET member_ids = ARRAY(SELECT DISTINCT m FROM unnest(member_ids || $2::text[]) AS m ORDER BY m),
    updated_at = NOW()
WHERE name = $1`
	batch := &pgx.Batch{}
	for _, role := range batchRoles {
		batch.Queue(query, role.Name, role.MemberIDs)
	}
	return db.ExecBatch(ctx, r.pool, batch)
}

// RemoveMembersBatch drops each role's MemberIDs from the stored membership.
// Only the listed principals are removed, so members added concurrently by a
// union survive.
func (r *Repository) RemoveMembersBatch(ctx context.Context, batchRoles []Role) error {
	const query = `
UPDATE access_roles
SET member_ids = ARRAY(SELECT m FROM unnest(member_ids) AS m WHERE m <> ALL($2::text[]) ORDER BY m),
    updated_at = NOW()
WHERE name = $1`
	batch := &pgx.Batch{}
	for _, role := range batchRoles {
		if len(role.MemberIDs) == 0 {
			continue
		}
		batch.Queue(query, role.Name, role.MemberIDs)
	}
	return db.ExecBatch(ctx, r.pool, batch)
}

// MemberOf returns the subset of names whose role contains principalID.
func (r *Repository) MemberOf(ctx context.Context, principalID string, names []string) ([]string, error) {
	if principalID == "" || len(names) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT name FROM access_roles WHERE name = ANY($1) AND $2 = ANY(member_ids) ORDER BY name`, names, principalID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// DeleteByResource removes every role derived from resourceID.
func (r *Repository) DeleteByResource(ctx context.Context, resourceID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM access_roles WHERE resource_id = $1`, resourceID)
	return err
}

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	var level string
	if err := row.Scan(&role.ID, &role.Name, &role.ResourceID, &level, &role.MemberIDs, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, err
	}
	role.Level = Level(level)
	if role.MemberIDs == nil {
		role.MemberIDs = []string{}
	}
	return role, nil
}
