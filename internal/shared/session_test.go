package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client, "odyssey_session", time.Hour), mr
}

func TestSessionLookup(t *testing.T) {
	store, mr := newTestSessionStore(t)
	require.NoError(t, mr.Set("session:tok", `{"user_id":"u1"}`))

	id, err := store.Lookup(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", id)
	assert.Equal(t, time.Hour, mr.TTL("session:tok"))

	_, err = store.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, mr.Set("session:anon", `{"user_id":""}`))
	_, err = store.Lookup(context.Background(), "anon")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessionMiddlewareAttachesPrincipal(t *testing.T) {
	store, mr := newTestSessionStore(t)
	require.NoError(t, mr.Set("session:tok", `{"user_id":"u1"}`))

	var seen string
	handler := store.Middleware(nil)(RequirePrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "odyssey_session", Value: "tok"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u1", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequirePrincipalRejectsAnonymous(t *testing.T) {
	store, _ := newTestSessionStore(t)
	handler := store.Middleware(nil)(RequirePrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer unknown")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
