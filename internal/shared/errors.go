package shared

import (
	"fmt"

	"github.com/odyssey-photos/odyssey-photos/internal/platform/httpx"
)

var (
	// ErrUnauthenticated indicates the request carries no valid session.
	ErrUnauthenticated = fmt.Errorf("session: %w", httpx.ErrUnauthorized)
	// ErrForbidden indicates the principal lacks the required grant.
	ErrForbidden = fmt.Errorf("access: %w", httpx.ErrForbidden)
)
