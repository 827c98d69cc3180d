package access

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/odyssey-photos/odyssey-photos/internal/roles"
	"github.com/odyssey-photos/odyssey-photos/internal/users"
)

const backfillModule = "principal_backfill"

// Backfiller grants a newly created account the roles its email was invited
// into before the account existed.
type Backfiller struct {
	albums  AlbumStore
	roles   RoleStore
	once    OnceGuard
	logger  *slog.Logger
	metrics *Metrics
}

// NewBackfiller constructs a Backfiller. once may be nil, in which case every
// call reconciles.
func NewBackfiller(albumStore AlbumStore, roleStore RoleStore, once OnceGuard, logger *slog.Logger, metrics *Metrics) *Backfiller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backfiller{albums: albumStore, roles: roleStore, once: once, logger: logger, metrics: metrics}
}

// PrincipalCreated runs the backfill for an account that was just created.
func (b *Backfiller) PrincipalCreated(ctx context.Context, p users.Principal) error {
	return b.BackfillForNewPrincipal(ctx, p)
}

// BackfillForNewPrincipal runs Reconcile at most once per principal. A failed
// run releases its claim so it can be retried.
func (b *Backfiller) BackfillForNewPrincipal(ctx context.Context, p users.Principal) (err error) {
	if b.once != nil {
		acquired, aerr := b.once.Acquire(ctx, backfillModule, p.ID)
		if aerr != nil {
			return fmt.Errorf("access: claim backfill for %s: %w", p.ID, aerr)
		}
		if !acquired {
			b.logger.Debug("backfill already claimed", slog.String("principal_id", p.ID))
			return nil
		}
		defer func() {
			if err == nil {
				return
			}
			if rerr := b.once.Release(context.WithoutCancel(ctx), backfillModule, p.ID); rerr != nil {
				b.logger.Warn("release backfill claim", slog.String("principal_id", p.ID), slog.Any("error", rerr))
			}
		}()
	}
	return b.Reconcile(ctx, p)
}

// Reconcile adds the principal to the read role of every album inviting its
// email as a viewer and to the read-write role of every album inviting it as a
// collaborator. Roles not created yet are skipped; the album's own sync adds
// the principal once it runs. Running it twice changes nothing.
func (b *Backfiller) Reconcile(ctx context.Context, p users.Principal) (err error) {
	defer func() { b.metrics.observe("backfill", err) }()

	collaborating, err := b.albums.FindByCollaboratorEmail(ctx, p.Email)
	if err != nil {
		return fmt.Errorf("access: find collaborator invites for %s: %w", p.ID, err)
	}
	viewing, err := b.albums.FindByViewerEmail(ctx, p.Email)
	if err != nil {
		return fmt.Errorf("access: find viewer invites for %s: %w", p.ID, err)
	}

	wanted := make(map[string]struct{}, len(collaborating)+len(viewing))
	for _, a := range collaborating {
		wanted[roles.WriteRoleName(a.ID)] = struct{}{}
	}
	for _, a := range viewing {
		wanted[roles.ReadRoleName(a.ID)] = struct{}{}
	}
	if len(wanted) == 0 {
		return nil
	}
	names := make([]string, 0, len(wanted))
	for name := range wanted {
		names = append(names, name)
	}
	sort.Strings(names)

	existing, err := b.roles.FindByNames(ctx, names)
	if err != nil {
		return fmt.Errorf("access: load invited roles for %s: %w", p.ID, err)
	}
	if skipped := len(names) - len(existing); skipped > 0 {
		b.logger.Debug("invited roles not created yet", slog.String("principal_id", p.ID), slog.Int("skipped", skipped))
	}

	var touched []roles.Role
	for _, role := range existing {
		if role.AddMembers(p.ID) {
			touched = append(touched, role)
		}
	}
	if len(touched) == 0 {
		return nil
	}
	if err := b.roles.AddMembersBatch(ctx, touched); err != nil {
		return fmt.Errorf("access: grant invited roles to %s: %w", p.ID, err)
	}
	b.metrics.addGrants(len(touched))
	b.logger.Info("backfilled invited roles", slog.String("principal_id", p.ID), slog.Int("roles", len(touched)))
	return nil
}
