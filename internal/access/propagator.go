package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/odyssey-photos/odyssey-photos/internal/acl"
	"github.com/odyssey-photos/odyssey-photos/internal/albums"
	"github.com/odyssey-photos/odyssey-photos/internal/roles"
)

// Propagator projects an album's grants onto its photos and, the first time,
// onto the album itself.
type Propagator struct {
	albums AlbumStore
	photos PhotoStore
	logger *slog.Logger
}

// NewPropagator constructs a Propagator.
func NewPropagator(albumStore AlbumStore, photoStore PhotoStore, logger *slog.Logger) *Propagator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Propagator{albums: albumStore, photos: photoStore, logger: logger}
}

// PropagateAcl overwrites the ACL of every photo in the album with the target
// entries (owner and read-write role: read+write, read role: read) and sets the
// album's own ACL if it has never been bootstrapped. The two writes are
// independent; a failure in one does not roll back the other and both are
// reported.
func (p *Propagator) PropagateAcl(ctx context.Context, album albums.Album, read, write roles.Role) error {
	target := acl.Target(album.OwnerID, read.Name, write.Name)

	var errs []error
	if err := p.propagatePhotos(ctx, album, target); err != nil {
		errs = append(errs, fmt.Errorf("access: propagate photos of %s: %w", album.ID, err))
	}
	if !album.RolesBootstrapped {
		if err := p.albums.MarkBootstrapped(ctx, album.ID, target.Clone()); err != nil {
			errs = append(errs, fmt.Errorf("access: bootstrap album %s: %w", album.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Propagator) propagatePhotos(ctx context.Context, album albums.Album, target acl.List) error {
	if len(album.PhotoIDs) == 0 {
		return nil
	}
	list, err := p.photos.ListByIDs(ctx, album.PhotoIDs)
	if err != nil {
		return err
	}
	if missing := len(album.PhotoIDs) - len(list); missing > 0 {
		p.logger.Debug("album references missing photos", slog.String("album_id", album.ID), slog.Int("missing", missing))
	}
	if len(list) == 0 {
		return nil
	}
	for i := range list {
		list[i].ACL = target.Clone()
	}
	return p.photos.SaveACLBatch(ctx, list)
}
