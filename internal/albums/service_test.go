package albums

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-photos/odyssey-photos/internal/acl"
	"github.com/odyssey-photos/odyssey-photos/internal/photos"
	"github.com/odyssey-photos/odyssey-photos/internal/platform/httpx"
	"github.com/odyssey-photos/odyssey-photos/internal/users"
)

type stubPrincipals map[string]users.Principal

func (s stubPrincipals) Get(ctx context.Context, id string) (users.Principal, error) {
	p, ok := s[id]
	if !ok {
		return users.Principal{}, users.ErrNotFound
	}
	return p, nil
}

type stubPhotos struct {
	created []photos.Photo
}

func (s *stubPhotos) Create(ctx context.Context, p photos.Photo) (photos.Photo, error) {
	s.created = append(s.created, p)
	return p, nil
}

type recordingHooks struct {
	store     *memStore
	committed []Album
	deleted   []string
	commitErr error
}

func (h *recordingHooks) AfterCommit(ctx context.Context, album Album) error {
	h.committed = append(h.committed, album)
	if h.commitErr != nil {
		return h.commitErr
	}
	if h.store != nil && !album.RolesBootstrapped {
		h.store.mu.Lock()
		stored := h.store.albums[album.ID]
		stored.RolesBootstrapped = true
		stored.ACL = acl.Target(album.OwnerID, album.ID+"_r", album.ID+"_rw")
		h.store.albums[album.ID] = stored
		h.store.mu.Unlock()
	}
	return nil
}

func (h *recordingHooks) BeforeDelete(ctx context.Context, album Album) error {
	h.deleted = append(h.deleted, album.ID)
	return nil
}

func newTestService(t *testing.T, albums ...Album) (*Service, *memStore, *recordingHooks, *stubPhotos) {
	t.Helper()
	store := newMemStore(albums...)
	hooks := &recordingHooks{store: store}
	photoStore := &stubPhotos{}
	principals := stubPrincipals{
		"O":  {ID: "O", Email: "owner@x.com"},
		"E1": {ID: "E1", Email: "e1@x.com"},
	}
	return NewService(store, principals, photoStore, hooks, nil, Options{}), store, hooks, photoStore
}

func TestCreateStripsOwnerEmailAndBootstraps(t *testing.T) {
	svc, _, hooks, _ := newTestService(t)

	album, err := svc.Create(context.Background(), "O", CreateInput{
		Name:               " Trip ",
		CollaboratorEmails: []string{"c1@x.com", "owner@x.com", "c1@x.com"},
		ViewerEmails:       []string{"owner@x.com", "v1@x.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Trip", album.Name)
	assert.Equal(t, "O", album.OwnerID)
	assert.Equal(t, []string{"c1@x.com"}, album.CollaboratorEmails)
	assert.Equal(t, []string{"v1@x.com"}, album.ViewerEmails)
	assert.True(t, album.RolesBootstrapped)
	require.Len(t, hooks.committed, 1)
}

func TestCreateRejectsInvalidEmails(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "O", CreateInput{ViewerEmails: []string{"not-an-email"}})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateRequiresExistingOwner(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "ghost", CreateInput{Name: "x"})
	require.ErrorIs(t, err, users.ErrNotFound)
}

func TestEditScalarOnlySkipsMerge(t *testing.T) {
	svc, store, hooks, _ := newTestService(t, Album{ID: "R0", OwnerID: "O", ViewerEmails: []string{"v1@x.com"}, RolesBootstrapped: true})

	album, err := svc.Edit(context.Background(), "R0", ChangeSet{Name: strPtr("Renamed")})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", album.Name)
	assert.Equal(t, 1, store.details)
	assert.Zero(t, store.saves)
	assert.Zero(t, store.gets, "scalar-only edits do not re-read")
	require.Len(t, hooks.committed, 1)
}

func TestEditMembershipStripsOwnerEmail(t *testing.T) {
	svc, store, _, _ := newTestService(t, Album{ID: "R0", OwnerID: "O", RolesBootstrapped: true})

	album, err := svc.Edit(context.Background(), "R0", ChangeSet{AddedViewerEmails: []string{"owner@x.com", "v2@x.com"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"v2@x.com"}, album.ViewerEmails)
	assert.Equal(t, 1, store.saves)
}

func TestEditEmptyChangeSetReturnsCurrent(t *testing.T) {
	svc, store, hooks, _ := newTestService(t, Album{ID: "R0", OwnerID: "O", Name: "x"})

	album, err := svc.Edit(context.Background(), "R0", ChangeSet{})
	require.NoError(t, err)
	assert.Equal(t, "x", album.Name)
	assert.Zero(t, store.saves)
	assert.Empty(t, hooks.committed)
}

func TestEditMissingAlbum(t *testing.T) {
	svc, _, hooks, _ := newTestService(t)

	_, err := svc.Edit(context.Background(), "gone", ChangeSet{RemovedViewerEmails: []string{"v@x.com"}})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, hooks.committed)
}

func TestEditReportsSyncFailureAfterCommit(t *testing.T) {
	svc, store, hooks, _ := newTestService(t, Album{ID: "R0", OwnerID: "O", RolesBootstrapped: true})
	hooks.commitErr = errors.New("roles unavailable")

	album, err := svc.Edit(context.Background(), "R0", ChangeSet{AddedCollaboratorEmails: []string{"c1@x.com"}})
	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "R0", syncErr.AlbumID)
	assert.Equal(t, []string{"c1@x.com"}, album.CollaboratorEmails)
	assert.Equal(t, []string{"c1@x.com"}, store.snapshot("R0").CollaboratorEmails, "edit stays committed")
}

func TestAddPhotoAppendsMember(t *testing.T) {
	svc, store, _, photoStore := newTestService(t, Album{ID: "R0", OwnerID: "O", PhotoIDs: []string{"img1"}, RolesBootstrapped: true})

	album, photo, err := svc.AddPhoto(context.Background(), "R0", "uploads/img2.jpg")
	require.NoError(t, err)

	require.Len(t, photoStore.created, 1)
	assert.Equal(t, "uploads/img2.jpg", photo.ObjectKey)
	assert.Equal(t, []string{"img1", photo.ID}, album.PhotoIDs)
	assert.Equal(t, album.PhotoIDs, store.snapshot("R0").PhotoIDs)
}

func TestAddPhotoToMissingAlbumCreatesNothing(t *testing.T) {
	svc, _, _, photoStore := newTestService(t)

	_, _, err := svc.AddPhoto(context.Background(), "gone", "k")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, photoStore.created)
}

func TestDeleteCleansUpFirst(t *testing.T) {
	svc, store, hooks, _ := newTestService(t, Album{ID: "R0", OwnerID: "O"})

	require.NoError(t, svc.Delete(context.Background(), "R0"))
	assert.Equal(t, []string{"R0"}, hooks.deleted)
	_, err := store.Get(context.Background(), "R0")
	assert.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, svc.Delete(context.Background(), "R0"), ErrNotFound)
}
