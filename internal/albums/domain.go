package albums

import (
	"fmt"
	"time"

	"github.com/odyssey-photos/odyssey-photos/internal/acl"
	"github.com/odyssey-photos/odyssey-photos/internal/platform/httpx"
)

var (
	// ErrNotFound indicates the album does not exist (or was deleted concurrently).
	ErrNotFound = fmt.Errorf("albums: %w", httpx.ErrNotFound)
	// ErrVersionConflict indicates the album changed between read and save.
	ErrVersionConflict = fmt.Errorf("albums: %w", httpx.ErrConflict)
)

// Album is a shared photo album. Owner access is implicit, so the owner's
// email never appears in CollaboratorEmails or ViewerEmails.
type Album struct {
	ID                 string            `json:"id"`
	OwnerID            string            `json:"ownerId"`
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	CoverImageRef      string            `json:"coverImageRef"`
	Captions           map[string]string `json:"captionsByMemberId"`
	CollaboratorEmails []string          `json:"collaboratorEmails"`
	ViewerEmails       []string          `json:"viewerEmails"`
	PhotoIDs           []string          `json:"memberResourceIds"`
	RolesBootstrapped  bool              `json:"rolesBootstrapped"`
	ACL                acl.List          `json:"acl"`
	Version            int64             `json:"version"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// Clone returns a deep copy so merges never alias the stored slices.
func (a Album) Clone() Album {
	out := a
	out.CollaboratorEmails = append([]string(nil), a.CollaboratorEmails...)
	out.ViewerEmails = append([]string(nil), a.ViewerEmails...)
	out.PhotoIDs = append([]string(nil), a.PhotoIDs...)
	out.ACL = a.ACL.Clone()
	if a.Captions != nil {
		out.Captions = make(map[string]string, len(a.Captions))
		for k, v := range a.Captions {
			out.Captions[k] = v
		}
	}
	return out
}

// CreateInput carries the fields of a new album.
type CreateInput struct {
	Name               string   `json:"name" validate:"max=200"`
	Description        string   `json:"description" validate:"max=2000"`
	CollaboratorEmails []string `json:"collaboratorEmails" validate:"omitempty,dive,email"`
	ViewerEmails       []string `json:"viewerEmails" validate:"omitempty,dive,email"`
}

// Details are the scalar fields applied by straight overwrite. A nil field is
// left untouched.
type Details struct {
	Name          *string
	Description   *string
	CoverImageRef *string
	Captions      map[string]string
}

// SyncError reports that the album write committed but the access
// synchronisation that follows it failed. Re-running the sync converges.
type SyncError struct {
	AlbumID string
	Err     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("albums: sync %s: %v", e.AlbumID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
