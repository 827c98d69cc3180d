package access

import (
	"context"
	"sort"
	"sync"

	"github.com/odyssey-photos/odyssey-photos/internal/acl"
	"github.com/odyssey-photos/odyssey-photos/internal/albums"
	"github.com/odyssey-photos/odyssey-photos/internal/photos"
	"github.com/odyssey-photos/odyssey-photos/internal/roles"
	"github.com/odyssey-photos/odyssey-photos/internal/users"
)

type memRoles struct {
	mu      sync.Mutex
	byName  map[string]roles.Role
	creates int
	writes  int
	addErr  error
	// findGate, when set, holds every FindByName until closed; the lookup
	// then fails if its ctx was cancelled meanwhile.
	findGate    chan struct{}
	findEntered chan struct{}
}

func newMemRoles() *memRoles {
	return &memRoles{byName: map[string]roles.Role{}}
}

func cloneRole(r roles.Role) roles.Role {
	r.MemberIDs = append([]string(nil), r.MemberIDs...)
	return r
}

func (m *memRoles) FindByName(ctx context.Context, name string) (roles.Role, error) {
	if m.findGate != nil {
		select {
		case m.findEntered <- struct{}{}:
		default:
		}
		<-m.findGate
		if err := ctx.Err(); err != nil {
			return roles.Role{}, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byName[name]
	if !ok {
		return roles.Role{}, roles.ErrNotFound
	}
	return cloneRole(r), nil
}

func (m *memRoles) FindByNames(ctx context.Context, names []string) ([]roles.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []roles.Role
	for _, name := range names {
		if r, ok := m.byName[name]; ok {
			out = append(out, cloneRole(r))
		}
	}
	return out, nil
}

func (m *memRoles) CreateIfAbsent(ctx context.Context, role roles.Role) (roles.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byName[role.Name]; ok {
		return cloneRole(existing), nil
	}
	m.creates++
	m.byName[role.Name] = cloneRole(role)
	return cloneRole(role), nil
}

func (m *memRoles) AddMembersBatch(ctx context.Context, batch []roles.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.writes++
	for _, r := range batch {
		stored, ok := m.byName[r.Name]
		if !ok {
			continue
		}
		stored.AddMembers(r.MemberIDs...)
		m.byName[r.Name] = stored
	}
	return nil
}

func (m *memRoles) RemoveMembersBatch(ctx context.Context, batch []roles.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	for _, r := range batch {
		stored, ok := m.byName[r.Name]
		if !ok {
			continue
		}
		stored.RemoveMembers(r.MemberIDs...)
		m.byName[r.Name] = stored
	}
	return nil
}

func (m *memRoles) MemberOf(ctx context.Context, principalID string, names []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, name := range names {
		if r, ok := m.byName[name]; ok && r.HasMember(principalID) {
			out = append(out, name)
		}
	}
	return out, nil
}

func (m *memRoles) DeleteByResource(ctx context.Context, resourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, r := range m.byName {
		if r.ResourceID == resourceID {
			delete(m.byName, name)
		}
	}
	return nil
}

func (m *memRoles) members(name string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byName[name]
	if !ok {
		return nil
	}
	out := append([]string{}, r.MemberIDs...)
	sort.Strings(out)
	return out
}

func (m *memRoles) role(name string) (roles.Role, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byName[name]
	return cloneRole(r), ok
}

type memPrincipals struct {
	mu      sync.Mutex
	byEmail map[string]users.Principal
	// afterFind runs once, after the next lookup has been answered.
	afterFind func()
}

func newMemPrincipals(ps ...users.Principal) *memPrincipals {
	m := &memPrincipals{byEmail: map[string]users.Principal{}}
	for _, p := range ps {
		m.add(p)
	}
	return m
}

func (m *memPrincipals) add(p users.Principal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byEmail[p.Email] = p
}

func (m *memPrincipals) FindByEmails(ctx context.Context, emails []string) ([]users.Principal, error) {
	m.mu.Lock()
	var out []users.Principal
	for _, e := range emails {
		if p, ok := m.byEmail[e]; ok {
			out = append(out, p)
		}
	}
	hook := m.afterFind
	m.afterFind = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, nil
}

type memPhotos struct {
	mu      sync.Mutex
	byID    map[string]photos.Photo
	saveErr error
	saves   int
}

func newMemPhotos(ids ...string) *memPhotos {
	m := &memPhotos{byID: map[string]photos.Photo{}}
	for _, id := range ids {
		m.byID[id] = photos.Photo{ID: id, ObjectKey: "objects/" + id}
	}
	return m
}

func (m *memPhotos) ListByIDs(ctx context.Context, ids []string) ([]photos.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []photos.Photo
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			p.ACL = p.ACL.Clone()
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPhotos) SaveACLBatch(ctx context.Context, batch []photos.Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	for _, p := range batch {
		stored := m.byID[p.ID]
		stored.ACL = p.ACL.Clone()
		m.byID[p.ID] = stored
	}
	return nil
}

func (m *memPhotos) DeleteByIDs(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.byID, id)
	}
	return nil
}

func (m *memPhotos) acl(id string) acl.List {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].ACL.Clone()
}

func (m *memPhotos) exists(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byID[id]
	return ok
}

type memAlbums struct {
	mu      sync.Mutex
	byID    map[string]albums.Album
	markErr error
	marks   int
}

func newMemAlbums(as ...albums.Album) *memAlbums {
	m := &memAlbums{byID: map[string]albums.Album{}}
	for _, a := range as {
		m.byID[a.ID] = a.Clone()
	}
	return m
}

// put stores a the way a membership save does: the bootstrap flag and the
// album ACL are left as they were.
func (m *memAlbums) put(a albums.Album) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := a.Clone()
	if existing, ok := m.byID[a.ID]; ok {
		next.RolesBootstrapped = existing.RolesBootstrapped
		next.ACL = existing.ACL.Clone()
	}
	m.byID[a.ID] = next
}

func (m *memAlbums) Get(ctx context.Context, id string) (albums.Album, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return albums.Album{}, albums.ErrNotFound
	}
	return a.Clone(), nil
}

func (m *memAlbums) MarkBootstrapped(ctx context.Context, id string, list acl.List) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	a, ok := m.byID[id]
	if !ok || a.RolesBootstrapped {
		return nil
	}
	m.marks++
	a.ACL = list.Clone()
	a.RolesBootstrapped = true
	m.byID[id] = a
	return nil
}

func (m *memAlbums) FindByCollaboratorEmail(ctx context.Context, email string) ([]albums.Album, error) {
	return m.find(func(a albums.Album) []string { return a.CollaboratorEmails }, email), nil
}

func (m *memAlbums) FindByViewerEmail(ctx context.Context, email string) ([]albums.Album, error) {
	return m.find(func(a albums.Album) []string { return a.ViewerEmails }, email), nil
}

func (m *memAlbums) find(field func(albums.Album) []string, email string) []albums.Album {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []albums.Album
	for _, a := range m.byID {
		for _, e := range field(a) {
			if e == email {
				out = append(out, a.Clone())
				break
			}
		}
	}
	return out
}

type memOnce struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func newMemOnce() *memOnce {
	return &memOnce{claimed: map[string]bool{}}
}

func (m *memOnce) Acquire(ctx context.Context, module, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed[module+":"+key] {
		return false, nil
	}
	m.claimed[module+":"+key] = true
	return true, nil
}

func (m *memOnce) Release(ctx context.Context, module, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, module+":"+key)
	return nil
}

type engine struct {
	albums     *memAlbums
	roles      *memRoles
	photos     *memPhotos
	principals *memPrincipals
	once       *memOnce
	syncer     *Syncer
	backfiller *Backfiller
	authorizer *Authorizer
}

func newEngine(opts SyncerOptions, photoIDs ...string) *engine {
	e := &engine{
		albums:     newMemAlbums(),
		roles:      newMemRoles(),
		photos:     newMemPhotos(photoIDs...),
		principals: newMemPrincipals(),
		once:       newMemOnce(),
	}
	resolver := NewResolver(e.roles, e.principals, nil, nil)
	propagator := NewPropagator(e.albums, e.photos, nil)
	e.syncer = NewSyncer(e.albums, e.roles, e.photos, resolver, propagator, opts, nil, nil)
	e.backfiller = NewBackfiller(e.albums, e.roles, e.once, nil, nil)
	e.authorizer = NewAuthorizer(e.roles)
	return e
}

// commit stores a and runs the post-commit sync the album service would.
func (e *engine) commit(ctx context.Context, a albums.Album) error {
	e.albums.put(a)
	stored, err := e.albums.Get(ctx, a.ID)
	if err != nil {
		return err
	}
	return e.syncer.AfterCommit(ctx, stored)
}
