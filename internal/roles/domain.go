package roles

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-photos/odyssey-photos/internal/platform/httpx"
)

// ErrNotFound indicates no role exists under the requested derived name.
var ErrNotFound = fmt.Errorf("roles: %w", httpx.ErrNotFound)

// Level is the grant a role confers on its resource.
type Level string

const (
	// LevelRead grants read access.
	LevelRead Level = "READ"
	// LevelReadWrite grants read and write access.
	LevelReadWrite Level = "READ_WRITE"
)

// Role is a durable grant container derived from an album. Its Name doubles as
// the idempotency key: resolution is always "find by name, else create".
type Role struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ResourceID string    `json:"resourceId"`
	Level      Level     `json:"level"`
	MemberIDs  []string  `json:"memberIds"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ReadRoleName returns the derived name of a resource's read role.
func ReadRoleName(resourceID string) string {
	return resourceID + "_r"
}

// WriteRoleName returns the derived name of a resource's read-write role.
func WriteRoleName(resourceID string) string {
	return resourceID + "_rw"
}

// NameFor returns the derived role name for the given level.
func NameFor(resourceID string, level Level) string {
	if level == LevelReadWrite {
		return WriteRoleName(resourceID)
	}
	return ReadRoleName(resourceID)
}

// New builds an empty, not yet persisted role for resourceID.
func New(resourceID string, level Level) Role {
	return Role{
		ID:         uuid.NewString(),
		Name:       NameFor(resourceID, level),
		ResourceID: resourceID,
		Level:      level,
		MemberIDs:  []string{},
	}
}

// HasMember reports whether principalID belongs to the role.
func (r Role) HasMember(principalID string) bool {
	for _, id := range r.MemberIDs {
		if id == principalID {
			return true
		}
	}
	return false
}

// AddMembers adds the given principals. Adding an existing member is a no-op.
// It reports whether the membership changed.
func (r *Role) AddMembers(principalIDs ...string) bool {
	changed := false
	for _, id := range principalIDs {
		if id == "" || r.HasMember(id) {
			continue
		}
		r.MemberIDs = append(r.MemberIDs, id)
		changed = true
	}
	if changed {
		sort.Strings(r.MemberIDs)
	}
	return changed
}

// RemoveMembers drops the given principals and reports whether the membership
// changed.
func (r *Role) RemoveMembers(principalIDs ...string) bool {
	drop := make(map[string]struct{}, len(principalIDs))
	for _, id := range principalIDs {
		drop[id] = struct{}{}
	}
	kept := r.MemberIDs[:0:0]
	for _, id := range r.MemberIDs {
		if _, ok := drop[id]; ok {
			continue
		}
		kept = append(kept, id)
	}
	changed := len(kept) != len(r.MemberIDs)
	r.MemberIDs = kept
	return changed
}

// Stale returns the sorted members that are not among keep.
func (r Role) Stale(keep ...string) []string {
	wanted := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		wanted[id] = struct{}{}
	}
	var out []string
	for _, id := range r.MemberIDs {
		if _, ok := wanted[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
