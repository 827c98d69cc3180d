package access

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-photos/odyssey-photos/internal/acl"
	"github.com/odyssey-photos/odyssey-photos/internal/albums"
	"github.com/odyssey-photos/odyssey-photos/internal/roles"
)

// SyncerOptions tunes Resync.
type SyncerOptions struct {
	// PruneOnResync makes Resync replace role membership instead of growing it.
	PruneOnResync bool
}

// Syncer runs role sync followed by ACL propagation for an album. It is the
// albums.Hooks implementation wired into the album service.
type Syncer struct {
	albums     AlbumStore
	roles      RoleStore
	photos     PhotoStore
	resolver   *Resolver
	propagator *Propagator
	opts       SyncerOptions
	logger     *slog.Logger
	metrics    *Metrics
}

// NewSyncer constructs a Syncer.
func NewSyncer(albumStore AlbumStore, roleStore RoleStore, photoStore PhotoStore, resolver *Resolver, propagator *Propagator, opts SyncerOptions, logger *slog.Logger, metrics *Metrics) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		albums:     albumStore,
		roles:      roleStore,
		photos:     photoStore,
		resolver:   resolver,
		propagator: propagator,
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
	}
}

// AfterCommit synchronises access for a just committed album write.
func (s *Syncer) AfterCommit(ctx context.Context, album albums.Album) (err error) {
	defer func() { s.metrics.observe("commit", err) }()
	read, write, err := s.resolver.SyncRoles(ctx, album)
	if err != nil {
		return err
	}
	return s.propagator.PropagateAcl(ctx, album, read, write)
}

// Resync re-reads the album and runs the full synchronisation again. It is
// the recovery path for a failed AfterCommit.
func (s *Syncer) Resync(ctx context.Context, albumID string) (err error) {
	defer func() { s.metrics.observe("resync", err) }()
	album, err := s.albums.Get(ctx, albumID)
	if err != nil {
		return fmt.Errorf("access: load album %s: %w", albumID, err)
	}
	resolve := s.resolver.SyncRoles
	if s.opts.PruneOnResync {
		resolve = s.resolver.RecomputeRoles
	}
	read, write, err := resolve(ctx, album)
	if err != nil {
		return err
	}
	if err := s.propagator.PropagateAcl(ctx, album, read, write); err != nil {
		return err
	}
	s.logger.Info("album access resynced", slog.String("album_id", albumID), slog.Bool("prune", s.opts.PruneOnResync))
	return nil
}

// BeforeDelete removes the album's roles and the photos whose grants still
// point at this album. Photos since propagated by another album are kept.
func (s *Syncer) BeforeDelete(ctx context.Context, album albums.Album) error {
	if len(album.PhotoIDs) > 0 {
		list, err := s.photos.ListByIDs(ctx, album.PhotoIDs)
		if err != nil {
			return fmt.Errorf("access: load photos of %s: %w", album.ID, err)
		}
		owned := acl.RoleSubject(roles.WriteRoleName(album.ID))
		var ids []string
		for _, p := range list {
			if _, ok := p.ACL[owned]; ok || len(p.ACL) == 0 {
				ids = append(ids, p.ID)
			}
		}
		if len(ids) > 0 {
			if err := s.photos.DeleteByIDs(ctx, ids); err != nil {
				return fmt.Errorf("access: delete photos of %s: %w", album.ID, err)
			}
		}
	}
	if err := s.roles.DeleteByResource(ctx, album.ID); err != nil {
		return fmt.Errorf("access: delete roles of %s: %w", album.ID, err)
	}
	return nil
}
