package photos

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-photos/odyssey-photos/internal/acl"
	"github.com/odyssey-photos/odyssey-photos/internal/platform/db"
)

const photoColumns = `id, object_key, acl, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a photo with the given ACL (usually empty until propagation).
func (r *Repository) Create(ctx context.Context, p Photo) (Photo, error) {
	if p.ACL == nil {
		p.ACL = acl.List{}
	}
	err := r.pool.QueryRow(ctx, `INSERT INTO photos (id, object_key, acl) VALUES ($1, $2, $3) RETURNING created_at, updated_at`, p.ID, p.ObjectKey, p.ACL).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Photo{}, err
	}
	return p, nil
}

// ListByIDs fetches every existing photo among ids in a single query.
func (r *Repository) ListByIDs(ctx context.Context, ids []string) ([]Photo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveACLBatch overwrites the ACL of every photo in one batch.
func (r *Repository) SaveACLBatch(ctx context.Context, batchPhotos []Photo) error {
	batch := &pgx.Batch{}
	for _, p := range batchPhotos {
		list := p.ACL
		if list == nil {
			list = acl.List{}
		}
		batch.Queue(`UPDATE photos SET acl = $2, updated_at = NOW() WHERE id = $1`, p.ID, list)
	}
	return db.ExecBatch(ctx, r.pool, batch)
}

// DeleteByIDs removes the given photos.
func (r *Repository) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM photos WHERE id = ANY($1)`, ids)
	return err
}

func scanPhoto(row pgx.Row) (Photo, error) {
	var p Photo
	if err := row.Scan(&p.ID, &p.ObjectKey, &p.ACL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Photo{}, err
	}
	if p.ACL == nil {
		p.ACL = acl.List{}
	}
	return p, nil
}
