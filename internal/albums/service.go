package albums

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-photos/odyssey-photos/internal/photos"
	"github.com/odyssey-photos/odyssey-photos/internal/platform/httpx"
	"github.com/odyssey-photos/odyssey-photos/internal/users"
)

// Store is the album persistence port.
type Store interface {
	VersionedStore
	Create(ctx context.Context, album Album) (Album, error)
	UpdateDetails(ctx context.Context, id string, d Details) (Album, error)
	Delete(ctx context.Context, id string) error
}

// PrincipalLookup resolves album owners.
type PrincipalLookup interface {
	Get(ctx context.Context, id string) (users.Principal, error)
}

// PhotoCreator persists uploaded photo metadata.
type PhotoCreator interface {
	Create(ctx context.Context, p photos.Photo) (photos.Photo, error)
}

// Hooks run around album writes. AfterCommit receives the committed state.
type Hooks interface {
	AfterCommit(ctx context.Context, album Album) error
	BeforeDelete(ctx context.Context, album Album) error
}

// Options tunes the service.
type Options struct {
	MaxMergeAttempts int
}

// Service coordinates album writes: merge, commit, then access sync.
type Service struct {
	store      Store
	merger     *Merger
	principals PrincipalLookup
	photos     PhotoCreator
	hooks      Hooks
	validator  *validator.Validate
	logger     *slog.Logger
}

// NewService builds Service instance.
func NewService(store Store, principals PrincipalLookup, photoStore PhotoCreator, hooks Hooks, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		merger:     NewMerger(store, opts.MaxMergeAttempts, logger),
		principals: principals,
		photos:     photoStore,
		hooks:      hooks,
		validator:  validator.New(),
		logger:     logger,
	}
}

// Get returns an album by id.
func (s *Service) Get(ctx context.Context, id string) (Album, error) {
	return s.store.Get(ctx, id)
}

// Create stores a new album owned by ownerID and bootstraps its access.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (Album, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validator.Struct(in); err != nil {
		return Album{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	owner, err := s.principals.Get(ctx, ownerID)
	if err != nil {
		return Album{}, err
	}
	album, err := s.store.Create(ctx, Album{
		ID:                 uuid.NewString(),
		OwnerID:            owner.ID,
		Name:               in.Name,
		Description:        in.Description,
		Captions:           map[string]string{},
		CollaboratorEmails: applyDelta(nil, in.CollaboratorEmails, []string{owner.Email}),
		ViewerEmails:       applyDelta(nil, in.ViewerEmails, []string{owner.Email}),
		PhotoIDs:           []string{},
	})
	if err != nil {
		return Album{}, err
	}
	s.logger.Info("album created", slog.String("album_id", album.ID), slog.String("principal_id", owner.ID))
	return s.afterCommit(ctx, album)
}

// Edit applies cs to album id. Membership changes go through the merger;
// scalar-only edits are a single partial update with no re-read.
func (s *Service) Edit(ctx context.Context, id string, cs ChangeSet) (Album, error) {
	if err := s.validator.Struct(cs); err != nil {
		return Album{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if cs.IsEmpty() {
		return s.store.Get(ctx, id)
	}
	var (
		saved Album
		err   error
	)
	if cs.HasMembershipChanges() {
		saved, err = s.commitMembership(ctx, id, cs)
	} else {
		saved, err = s.store.UpdateDetails(ctx, id, cs.Details())
	}
	if err != nil {
		return Album{}, err
	}
	return s.afterCommit(ctx, saved)
}

// AddPhoto records a new photo and appends it to the album.
func (s *Service) AddPhoto(ctx context.Context, albumID, objectKey string) (Album, photos.Photo, error) {
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" {
		return Album{}, photos.Photo{}, fmt.Errorf("%w: object key required", httpx.ErrValidation)
	}
	if _, err := s.store.Get(ctx, albumID); err != nil {
		return Album{}, photos.Photo{}, err
	}
	photo, err := s.photos.Create(ctx, photos.Photo{ID: uuid.NewString(), ObjectKey: objectKey})
	if err != nil {
		return Album{}, photos.Photo{}, err
	}
	album, err := s.Edit(ctx, albumID, ChangeSet{AddedPhotoIDs: []string{photo.ID}})
	return album, photo, err
}

// Delete removes the album after its photos and derived roles are cleaned up.
func (s *Service) Delete(ctx context.Context, id string) error {
	album, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.hooks != nil {
		if err := s.hooks.BeforeDelete(ctx, album); err != nil {
			return fmt.Errorf("albums: cleanup %s: %w", id, err)
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("album deleted", slog.String("album_id", id))
	return nil
}

func (s *Service) commitMembership(ctx context.Context, id string, cs ChangeSet) (Album, error) {
	if len(cs.AddedCollaboratorEmails) > 0 || len(cs.AddedViewerEmails) > 0 {
		current, err := s.store.Get(ctx, id)
		if err != nil {
			return Album{}, err
		}
		owner, err := s.principals.Get(ctx, current.OwnerID)
		if err != nil {
			return Album{}, err
		}
		cs = cs.WithoutEmail(owner.Email)
	}
	return s.merger.Commit(ctx, id, cs)
}

func (s *Service) afterCommit(ctx context.Context, album Album) (Album, error) {
	if s.hooks == nil {
		return album, nil
	}
	if err := s.hooks.AfterCommit(ctx, album); err != nil {
		s.logger.Error("album access sync", slog.String("album_id", album.ID), slog.Any("error", err))
		return album, &SyncError{AlbumID: album.ID, Err: err}
	}
	if album.RolesBootstrapped {
		return album, nil
	}
	// Bootstrapping rewrote the album's own ACL; return the stored view.
	return s.store.Get(ctx, album.ID)
}
