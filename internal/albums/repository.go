package albums

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-photos/odyssey-photos/internal/acl"
)

const albumColumns = `id, owner_id, name, description, cover_image_ref, captions, collaborator_emails,
viewer_emails, photo_ids, roles_bootstrapped, acl, version, created_at, updated_at`

// Repository provides PostgreSQL backed persistence. Every method is a single
// statement; nothing spans more than one album row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns an album by id.
func (r *Repository) Get(ctx context.Context, id string) (Album, error) {
	album, err := scanAlbum(r.pool.QueryRow(ctx, `SELECT `+albumColumns+` FROM albums WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Album{}, ErrNotFound
		}
		return Album{}, err
	}
	return album, nil
}

// Create inserts a new album at version 1.
func (r *Repository) Create(ctx context.Context, a Album) (Album, error) {
	const query = `
INSERT INTO albums (id, owner_id, name, description, cover_image_ref, captions, collaborator_emails, viewer_emails, photo_ids, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
RETURNING ` + albumColumns
	return scanAlbum(r.pool.QueryRow(ctx, query, a.ID, a.OwnerID, a.Name, a.Description, a.CoverImageRef,
		captionsOrEmpty(a.Captions), nonNil(a.CollaboratorEmails), nonNil(a.ViewerEmails), nonNil(a.PhotoIDs)))
}

// Save writes a merged album if the stored version still equals a.Version.
func (r *Repository) Save(ctx context.Context, a Album) (Album, error) {
	const query = `
UPDATE albums
SET name = $3, description = $4, cover_image_ref = $5, captions = $6,
    collaborator_emails = $7, viewer_emails = $8, photo_ids = $9,
    version = version + 1, updated_at = NOW()
WHERE id = $1 AND version = $2
RETURNING ` + albumColumns
	saved, err := scanAlbum(r.pool.QueryRow(ctx, query, a.ID, a.Version, a.Name, a.Description, a.CoverImageRef,
		captionsOrEmpty(a.Captions), nonNil(a.CollaboratorEmails), nonNil(a.ViewerEmails), nonNil(a.PhotoIDs)))
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Album{}, err
	}
	if _, err := r.Get(ctx, a.ID); err != nil {
		return Album{}, err
	}
	return Album{}, ErrVersionConflict
}

// UpdateDetails overwrites the non-nil scalar fields without touching the
// membership fields.
func (r *Repository) UpdateDetails(ctx context.Context, id string, d Details) (Album, error) {
	const query = `
UPDATE albums
SET name = COALESCE($2, name),
    description = COALESCE($3, description),
    cover_image_ref = COALESCE($4, cover_image_ref),
    captions = COALESCE($5::jsonb, captions),
    version = version + 1, updated_at = NOW()
WHERE id = $1
RETURNING ` + albumColumns
	var captions any
	if d.Captions != nil {
		captions = d.Captions
	}
	album, err := scanAlbum(r.pool.QueryRow(ctx, query, id, d.Name, d.Description, d.CoverImageRef, captions))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Album{}, ErrNotFound
		}
		return Album{}, err
	}
	return album, nil
}

// MarkBootstrapped writes the album's own ACL and sets the bootstrap flag. It
// is a no-op once the flag is set, so later customisations survive.
func (r *Repository) MarkBootstrapped(ctx context.Context, id string, list acl.List) error {
	tag, err := r.pool.Exec(ctx, `UPDATE albums SET acl = $2, roles_bootstrapped = TRUE, updated_at = NOW() WHERE id = $1 AND NOT roles_bootstrapped`, id, list)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// FindByCollaboratorEmail returns albums listing email as a collaborator.
func (r *Repository) FindByCollaboratorEmail(ctx context.Context, email string) ([]Album, error) {
	return r.list(ctx, `SELECT `+albumColumns+` FROM albums WHERE $1 = ANY(collaborator_emails) ORDER BY id`, email)
}

// FindByViewerEmail returns albums listing email as a viewer.
func (r *Repository) FindByViewerEmail(ctx context.Context, email string) ([]Album, error) {
	return r.list(ctx, `SELECT `+albumColumns+` FROM albums WHERE $1 = ANY(viewer_emails) ORDER BY id`, email)
}

// Delete removes an album.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM albums WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Album, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Album
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, album)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanAlbum(row pgx.Row) (Album, error) {
	var a Album
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Description, &a.CoverImageRef, &a.Captions,
		&a.CollaboratorEmails, &a.ViewerEmails, &a.PhotoIDs, &a.RolesBootstrapped, &a.ACL,
		&a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Album{}, err
	}
	if a.ACL == nil {
		a.ACL = acl.List{}
	}
	return a, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func captionsOrEmpty(c map[string]string) map[string]string {
	if c == nil {
		return map[string]string{}
	}
	return c
}
