package photos

import (
	"time"

	"github.com/odyssey-photos/odyssey-photos/internal/acl"
)

// Photo is a member of an album. It carries no reference to its album; its
// ACL is a projection written by whichever album last propagated to it.
type Photo struct {
	ID        string    `json:"id"`
	ObjectKey string    `json:"objectKey"`
	ACL       acl.List  `json:"acl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
