package access

import (
	"context"
	"fmt"

	"github.com/odyssey-photos/odyssey-photos/internal/albums"
	"github.com/odyssey-photos/odyssey-photos/internal/roles"
	"github.com/odyssey-photos/odyssey-photos/internal/shared"
)

// Need is the access an operation requires on an album.
type Need int

const (
	// NeedRead allows viewing the album and its access list.
	NeedRead Need = iota
	// NeedWrite allows editing the album and adding photos.
	NeedWrite
	// NeedOwner allows deleting the album.
	NeedOwner
)

func (n Need) String() string {
	switch n {
	case NeedWrite:
		return "write"
	case NeedOwner:
		return "owner"
	default:
		return "read"
	}
}

// MembershipChecker reports which of the named roles contain a principal.
type MembershipChecker interface {
	MemberOf(ctx context.Context, principalID string, names []string) ([]string, error)
}

// Authorizer evaluates album grants for a principal.
type Authorizer struct {
	roles MembershipChecker
}

// NewAuthorizer constructs an Authorizer.
func NewAuthorizer(roleStore MembershipChecker) *Authorizer {
	return &Authorizer{roles: roleStore}
}

// Authorize returns nil when principalID may perform an operation needing
// need on album. The owner always passes. Everyone else needs a direct grant
// in the album ACL or membership of a role the ACL grants.
func (a *Authorizer) Authorize(ctx context.Context, principalID string, album albums.Album, need Need) error {
	if principalID == "" {
		return shared.ErrUnauthenticated
	}
	if principalID == album.OwnerID {
		return nil
	}
	if need == NeedOwner {
		return fmt.Errorf("%w: only the owner may do this", shared.ErrForbidden)
	}
	write := need == NeedWrite
	if album.ACL.AllowsPrincipal(principalID, write) {
		return nil
	}
	names := album.ACL.Roles(write)
	if !album.RolesBootstrapped {
		// Roles may exist before the album's own ACL was bootstrapped.
		names = []string{roles.WriteRoleName(album.ID)}
		if !write {
			names = append(names, roles.ReadRoleName(album.ID))
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: %s access to album %s", shared.ErrForbidden, need, album.ID)
	}
	held, err := a.roles.MemberOf(ctx, principalID, names)
	if err != nil {
		return fmt.Errorf("access: check membership: %w", err)
	}
	if len(held) == 0 {
		return fmt.Errorf("%w: %s access to album %s", shared.ErrForbidden, need, album.ID)
	}
	return nil
}
