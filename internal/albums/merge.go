package albums

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultMergeAttempts bounds the re-read/re-apply loop on version conflicts.
const DefaultMergeAttempts = 5

// Merge applies cs on top of current. For each membership field additions are
// applied first and removals second, so a member both added and removed in the
// same change set ends up absent. Scalar fields overwrite. current is not
// modified.
func Merge(current Album, cs ChangeSet) Album {
	out := current.Clone()
	out.CollaboratorEmails = applyDelta(out.CollaboratorEmails, cs.AddedCollaboratorEmails, cs.RemovedCollaboratorEmails)
	out.ViewerEmails = applyDelta(out.ViewerEmails, cs.AddedViewerEmails, cs.RemovedViewerEmails)
	out.PhotoIDs = applyDelta(out.PhotoIDs, cs.AddedPhotoIDs, cs.RemovedPhotoIDs)
	applyDetails(&out, cs.Details())
	return out
}

// applyDelta appends added values that are not yet present, preserving order,
// then filters out removed values.
func applyDelta(values, added, removed []string) []string {
	present := make(map[string]struct{}, len(values)+len(added))
	out := make([]string, 0, len(values)+len(added))
	for _, v := range append(append([]string(nil), values...), added...) {
		if _, ok := present[v]; ok {
			continue
		}
		present[v] = struct{}{}
		out = append(out, v)
	}
	if len(removed) == 0 {
		return out
	}
	drop := make(map[string]struct{}, len(removed))
	for _, v := range removed {
		drop[v] = struct{}{}
	}
	filtered := out[:0]
	for _, v := range out {
		if _, ok := drop[v]; !ok {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

func applyDetails(a *Album, d Details) {
	if d.Name != nil {
		a.Name = *d.Name
	}
	if d.Description != nil {
		a.Description = *d.Description
	}
	if d.CoverImageRef != nil {
		a.CoverImageRef = *d.CoverImageRef
	}
	if d.Captions != nil {
		a.Captions = make(map[string]string, len(d.Captions))
		for k, v := range d.Captions {
			a.Captions[k] = v
		}
	}
}

// VersionedStore is the subset of the album store the merger needs.
type VersionedStore interface {
	Get(ctx context.Context, id string) (Album, error)
	Save(ctx context.Context, album Album) (Album, error)
}

// Merger commits a change set against the authoritative album state. It never
// trusts the editor's snapshot: every attempt re-reads the album, re-applies the
// change set and saves conditionally on the version it read.
//
// Changes to disjoint members commute. Two change sets touching the same member
// resolve to whichever merge saves last.
type Merger struct {
	store       VersionedStore
	maxAttempts int
	logger      *slog.Logger
}

// NewMerger constructs a Merger. maxAttempts <= 0 selects DefaultMergeAttempts.
func NewMerger(store VersionedStore, maxAttempts int, logger *slog.Logger) *Merger {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMergeAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{store: store, maxAttempts: maxAttempts, logger: logger}
}

// Commit merges cs into album id and persists the result as a single write.
// A concurrently deleted album fails with ErrNotFound and nothing is written.
func (m *Merger) Commit(ctx context.Context, id string, cs ChangeSet) (Album, error) {
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		current, err := m.store.Get(ctx, id)
		if err != nil {
			return Album{}, err
		}
		saved, err := m.store.Save(ctx, Merge(current, cs))
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return Album{}, err
		}
		m.logger.Debug("album merge conflict, retrying", slog.String("album_id", id), slog.Int("attempt", attempt))
		if err := ctx.Err(); err != nil {
			return Album{}, err
		}
	}
	return Album{}, fmt.Errorf("%w after %d attempts", ErrVersionConflict, m.maxAttempts)
}
