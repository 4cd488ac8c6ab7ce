package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Identity is the provider-confirmed snapshot of the signed-in user.
// Role is resolved from the provider's group membership, never from
// client input.
type Identity struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// SessionManager orchestrates cookie based sessions backed by Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// Session holds per-request session data. At most one identity is bound
// to a session at a time.
type Session struct {
	ID            string
	values        map[string]string
	identity      *Identity
	bearer        string
	revalidatedAt time.Time
	manager       *SessionManager
	isNew         bool
	dirty         bool
	destroyed     bool
}

type sessionPayload struct {
	Values        map[string]string `json:"values"`
	Identity      *Identity         `json:"identity,omitempty"`
	Bearer        string            `json:"bearer,omitempty"`
	RevalidatedAt time.Time         `json:"revalidated_at"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Load loads or creates a new session for request.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			sess := sm.newSession()
			sess.ID = cookie.Value
			sess.isNew = true
			return sess, nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	sess := sm.newSession()
	sess.ID = cookie.Value
	sess.values = stored.Values
	sess.identity = stored.Identity
	sess.bearer = stored.Bearer
	sess.revalidatedAt = stored.RevalidatedAt
	sess.isNew = false
	sess.dirty = false
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	if sess.isNew && sess.ID == "" {
		sess.ID = sm.generateSessionID()
	}

	if sess.dirty || sess.isNew {
		payload := sessionPayload{
			Values:        sess.values,
			Identity:      sess.identity,
			Bearer:        sess.bearer,
			RevalidatedAt: sess.revalidatedAt,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
	}

	if sess.ID != "" {
		cookie := &http.Cookie{
			Name:     sm.cookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteStrictMode,
			Expires:  time.Now().Add(sm.ttl),
		}
		http.SetCookie(w, cookie)
	}

	return nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// SweepStale walks the session store and clears the identity binding of
// every session whose last provider revalidation is older than maxIdle.
// Cookie refreshes keep extending the Redis key TTL, so an abandoned
// sign-in can outlive its token indefinitely without this pass. The
// session itself survives with its values; only the identity is dropped,
// forcing a fresh sign-in. Returns the number of sessions swept.
func (sm *SessionManager) SweepStale(ctx context.Context, maxIdle time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxIdle)
	swept := 0

	iter := sm.client.Scan(ctx, 0, "session:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := sm.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return swept, err
		}

		var stored sessionPayload
		if err := json.Unmarshal(data, &stored); err != nil {
			// Unreadable entries are dropped outright.
			if err := sm.client.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
				return swept, err
			}
			swept++
			continue
		}
		if stored.Identity == nil || stored.RevalidatedAt.After(cutoff) {
			continue
		}

		stored.Identity = nil
		stored.Bearer = ""
		stored.RevalidatedAt = time.Time{}
		out, err := json.Marshal(stored)
		if err != nil {
			return swept, err
		}
		if err := sm.client.Set(ctx, key, out, redis.KeepTTL).Err(); err != nil {
			return swept, err
		}
		swept++
	}
	return swept, iter.Err()
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Session helpers

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s.values == nil {
		return ""
	}
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if s.values == nil {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetIdentity binds the provider-confirmed identity and bearer credential
// to the session and stamps the revalidation clock.
func (s *Session) SetIdentity(id Identity, bearer string, now time.Time) {
	s.identity = &id
	s.bearer = bearer
	s.revalidatedAt = now
	s.dirty = true
}

// ClearIdentity removes the bound identity without destroying the session.
func (s *Session) ClearIdentity() {
	s.identity = nil
	s.bearer = ""
	s.revalidatedAt = time.Time{}
	s.dirty = true
}

// Identity returns the bound identity, or nil when anonymous.
func (s *Session) Identity() *Identity {
	return s.identity
}

// Bearer returns the stored bearer credential, empty when anonymous.
func (s *Session) Bearer() string {
	return s.bearer
}

// RevalidatedAt reports when the identity was last confirmed against
// the provider.
func (s *Session) RevalidatedAt() time.Time {
	return s.revalidatedAt
}

// MarkRevalidated stamps the revalidation clock.
func (s *Session) MarkRevalidated(now time.Time) {
	s.revalidatedAt = now
	s.dirty = true
}

// Destroyed reports whether the session is marked for deletion.
func (s *Session) Destroyed() bool {
	return s.destroyed
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:      sm.generateSessionID(),
		values:  make(map[string]string),
		manager: sm,
		isNew:   true,
		dirty:   true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

func (sm *SessionManager) generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	if len(sm.secret) > 0 {
		for i := range b {
			b[i] ^= sm.secret[i%len(sm.secret)]
		}
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
