// Package access keeps album authorization state consistent with album
// membership. After every committed album write it derives the album's two
// roles from its invite lists and projects the resulting grants onto the album
// and its photos; when an account is created it materialises the grants that
// were extended to its email beforehand.
//
// None of these steps is transactional. Each one is idempotent, so a failed
// run is repaired by running it again.
package access

import (
	"context"

	"github.com/odyssey-photos/odyssey-photos/internal/acl"
	"github.com/odyssey-photos/odyssey-photos/internal/albums"
	"github.com/odyssey-photos/odyssey-photos/internal/photos"
	"github.com/odyssey-photos/odyssey-photos/internal/roles"
	"github.com/odyssey-photos/odyssey-photos/internal/users"
)

// RoleStore persists derived roles.
type RoleStore interface {
	FindByName(ctx context.Context, name string) (roles.Role, error)
	FindByNames(ctx context.Context, names []string) ([]roles.Role, error)
	CreateIfAbsent(ctx context.Context, role roles.Role) (roles.Role, error)
	AddMembersBatch(ctx context.Context, batch []roles.Role) error
	RemoveMembersBatch(ctx context.Context, batch []roles.Role) error
	MemberOf(ctx context.Context, principalID string, names []string) ([]string, error)
	DeleteByResource(ctx context.Context, resourceID string) error
}

// PrincipalFinder resolves invite emails to accounts by exact match.
type PrincipalFinder interface {
	FindByEmails(ctx context.Context, emails []string) ([]users.Principal, error)
}

// PhotoStore reads and rewrites photo ACLs.
type PhotoStore interface {
	ListByIDs(ctx context.Context, ids []string) ([]photos.Photo, error)
	SaveACLBatch(ctx context.Context, batch []photos.Photo) error
	DeleteByIDs(ctx context.Context, ids []string) error
}

// AlbumStore is the album access the engine needs.
type AlbumStore interface {
	Get(ctx context.Context, id string) (albums.Album, error)
	MarkBootstrapped(ctx context.Context, id string, list acl.List) error
	FindByCollaboratorEmail(ctx context.Context, email string) ([]albums.Album, error)
	FindByViewerEmail(ctx context.Context, email string) ([]albums.Album, error)
}

// OnceGuard claims a key exactly once across processes.
type OnceGuard interface {
	Acquire(ctx context.Context, module, key string) (bool, error)
	Release(ctx context.Context, module, key string) error
}
