package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns a principal by id.
func (r *Repository) Get(ctx context.Context, id string) (Principal, error) {
	var p Principal
	err := r.pool.QueryRow(ctx, `SELECT id, email, name, created_at FROM users WHERE id = $1`, id).
		Scan(&p.ID, &p.Email, &p.Name, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, ErrNotFound
		}
		return Principal{}, err
	}
	return p, nil
}

// FindByEmails returns the principals whose email exactly matches one of emails.
func (r *Repository) FindByEmails(ctx context.Context, emails []string) ([]Principal, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, email, name, created_at FROM users WHERE email = ANY($1) ORDER BY email`, emails)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Principal
	for rows.Next() {
		var p Principal
		if err := rows.Scan(&p.ID, &p.Email, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a principal.
func (r *Repository) Create(ctx context.Context, p Principal) (Principal, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO users (id, email, name) VALUES ($1, $2, $3) RETURNING created_at`, p.ID, p.Email, p.Name).
		Scan(&p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Principal{}, ErrDuplicateEmail
		}
		return Principal{}, err
	}
	return p, nil
}
