package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-photos/odyssey-photos/internal/albums"
	"github.com/odyssey-photos/odyssey-photos/internal/roles"
	"github.com/odyssey-photos/odyssey-photos/internal/users"
)

// Resolver keeps an album's derived roles populated with the accounts its
// invite lists resolve to.
type Resolver struct {
	roles      RoleStore
	principals PrincipalFinder
	logger     *slog.Logger
	metrics    *Metrics
	group      singleflight.Group
}

// NewResolver constructs a Resolver.
func NewResolver(roleStore RoleStore, principals PrincipalFinder, logger *slog.Logger, metrics *Metrics) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{roles: roleStore, principals: principals, logger: logger, metrics: metrics}
}

// SyncRoles resolves (creating if absent) the album's read and read-write
// roles and adds every invited account that exists: viewers to the read role,
// collaborators and the owner to the read-write role. Membership only grows;
// emails without an account are skipped and picked up later by backfill.
func (r *Resolver) SyncRoles(ctx context.Context, album albums.Album) (read, write roles.Role, err error) {
	return r.sync(ctx, album, false)
}

// RecomputeRoles behaves like SyncRoles and then drops the members it read
// whose invitations were removed. Members added concurrently after the read
// are left in place.
func (r *Resolver) RecomputeRoles(ctx context.Context, album albums.Album) (read, write roles.Role, err error) {
	return r.sync(ctx, album, true)
}

func (r *Resolver) sync(ctx context.Context, album albums.Album, prune bool) (roles.Role, roles.Role, error) {
	var read, write roles.Role
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		read, err = r.resolveRole(gctx, album.ID, roles.LevelRead)
		return err
	})
	g.Go(func() error {
		var err error
		write, err = r.resolveRole(gctx, album.ID, roles.LevelReadWrite)
		return err
	})
	if err := g.Wait(); err != nil {
		return roles.Role{}, roles.Role{}, err
	}

	// Emails are resolved only once both roles exist. An account created
	// after this lookup is granted by its own backfill, which now finds the
	// roles.
	var found []users.Principal
	if emails := inviteEmails(album); len(emails) > 0 {
		var err error
		found, err = r.principals.FindByEmails(ctx, emails)
		if err != nil {
			return roles.Role{}, roles.Role{}, fmt.Errorf("access: resolve invite emails: %w", err)
		}
	}

	byEmail := make(map[string]string, len(found))
	for _, p := range found {
		byEmail[p.Email] = p.ID
	}
	viewerIDs := r.principalIDs(album.ID, album.ViewerEmails, byEmail)
	writerIDs := append(r.principalIDs(album.ID, album.CollaboratorEmails, byEmail), album.OwnerID)

	var grown []roles.Role
	if read.AddMembers(viewerIDs...) {
		grown = append(grown, read)
	}
	if write.AddMembers(writerIDs...) {
		grown = append(grown, write)
	}
	if len(grown) > 0 {
		if err := r.roles.AddMembersBatch(ctx, grown); err != nil {
			return roles.Role{}, roles.Role{}, fmt.Errorf("access: grow roles of %s: %w", album.ID, err)
		}
	}
	if !prune {
		return read, write, nil
	}

	var pruned []roles.Role
	if stale, ok := dropStale(&read, viewerIDs); ok {
		pruned = append(pruned, stale)
	}
	if stale, ok := dropStale(&write, writerIDs); ok {
		pruned = append(pruned, stale)
	}
	if len(pruned) > 0 {
		if err := r.roles.RemoveMembersBatch(ctx, pruned); err != nil {
			return roles.Role{}, roles.Role{}, fmt.Errorf("access: prune roles of %s: %w", album.ID, err)
		}
	}
	return read, write, nil
}

// dropStale removes from role every member read earlier that keep no longer
// lists, and returns the removal delta to persist.
func dropStale(role *roles.Role, keep []string) (roles.Role, bool) {
	stale := role.Stale(keep...)
	if len(stale) == 0 {
		return roles.Role{}, false
	}
	role.RemoveMembers(stale...)
	delta := *role
	delta.MemberIDs = stale
	return delta, true
}

// resolveRole finds the named role or creates it. Concurrent resolutions of
// the same name in this process share one round trip; across processes the
// store's create-if-absent keeps names unique.
func (r *Resolver) resolveRole(ctx context.Context, resourceID string, level roles.Level) (roles.Role, error) {
	name := roles.NameFor(resourceID, level)
	ch := r.group.DoChan(name, func() (interface{}, error) {
		// Shared by every waiter on name; each waiter's own ctx is honoured
		// by the select below.
		ctx := context.WithoutCancel(ctx)
		role, err := r.roles.FindByName(ctx, name)
		if err == nil {
			return role, nil
		}
		if !errors.Is(err, roles.ErrNotFound) {
			return nil, err
		}
		return r.roles.CreateIfAbsent(ctx, roles.New(resourceID, level))
	})
	select {
	case <-ctx.Done():
		return roles.Role{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return roles.Role{}, fmt.Errorf("access: resolve role %s: %w", name, res.Err)
		}
		role := res.Val.(roles.Role)
		role.MemberIDs = append([]string(nil), role.MemberIDs...)
		return role, nil
	}
}

func (r *Resolver) principalIDs(albumID string, emails []string, byEmail map[string]string) []string {
	ids := make([]string, 0, len(emails))
	unresolved := 0
	for _, email := range emails {
		id, ok := byEmail[email]
		if !ok {
			unresolved++
			r.logger.Debug("invite has no account yet", slog.String("album_id", albumID), slog.String("email", email))
			continue
		}
		ids = append(ids, id)
	}
	r.metrics.addUnresolved(unresolved)
	return ids
}

func inviteEmails(album albums.Album) []string {
	seen := make(map[string]struct{}, len(album.CollaboratorEmails)+len(album.ViewerEmails))
	out := make([]string, 0, len(seen))
	for _, list := range [][]string{album.CollaboratorEmails, album.ViewerEmails} {
		for _, email := range list {
			if _, ok := seen[email]; ok {
				continue
			}
			seen[email] = struct{}{}
			out = append(out, email)
		}
	}
	return out
}
