package users

import (
	"fmt"
	"time"

	"github.com/odyssey-photos/odyssey-photos/internal/platform/httpx"
)

var (
	// ErrNotFound indicates the principal does not exist.
	ErrNotFound = fmt.Errorf("users: %w", httpx.ErrNotFound)
	// ErrDuplicateEmail indicates an account already uses the email.
	ErrDuplicateEmail = fmt.Errorf("users: email %w", httpx.ErrDuplicate)
)

// Principal is a user account. Emails are compared exactly as stored; no case
// folding is applied anywhere.
type Principal struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateInput carries the fields of a new account.
type CreateInput struct {
	Email string `json:"email" validate:"required,email,max=320"`
	Name  string `json:"name" validate:"max=200"`
}

// BackfillError reports that the account was created but retroactive access
// could not be materialised. The principal is usable; the backfill must be
// retried.
type BackfillError struct {
	PrincipalID string
	Err         error
}

func (e *BackfillError) Error() string {
	return fmt.Sprintf("users: backfill for %s: %v", e.PrincipalID, e.Err)
}

func (e *BackfillError) Unwrap() error {
	return e.Err
}
