package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-photos/odyssey-photos/internal/platform/httpx"
)

// SessionStore resolves session tokens to principals. Sessions are issued by
// the external authentication service into the same Redis keyspace; this
// store only reads them and slides their expiry.
type SessionStore struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
}

type sessionPayload struct {
	UserID string `json:"user_id"`
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, cookieName string, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, cookieName: cookieName, ttl: ttl}
}

// Lookup returns the principal id bound to token.
func (s *SessionStore) Lookup(ctx context.Context, token string) (string, error) {
	if s == nil || s.client == nil || token == "" {
		return "", ErrUnauthenticated
	}
	payload, err := s.client.Get(ctx, s.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrUnauthenticated
		}
		return "", err
	}
	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return "", err
	}
	if stored.UserID == "" {
		return "", ErrUnauthenticated
	}
	if s.ttl > 0 {
		_ = s.client.Expire(ctx, s.redisKey(token), s.ttl).Err()
	}
	return stored.UserID, nil
}

// Middleware attaches the principal of a valid session to the request context.
// Requests without a session pass through anonymously.
func (s *SessionStore) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := s.token(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			principalID, err := s.Lookup(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrUnauthenticated) && logger != nil {
					logger.Error("session lookup", slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principalID)))
		})
	}
}

// RequirePrincipal rejects anonymous requests.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			httpx.RespondError(w, ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *SessionStore) token(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if cookie, err := r.Cookie(s.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (s *SessionStore) redisKey(id string) string {
	return "session:" + id
}
