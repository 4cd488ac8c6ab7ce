package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/leajer/leajer/internal/shared"
)

func newManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	sess.Set("theme", "dark")
	sess.SetIdentity(shared.Identity{UserID: "u-1", Name: "Owner", Email: "o@leajer.test", Role: "owner"}, "bearer-token", time.Now())

	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))

	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, sess.ID, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)

	// Replay the cookie; identity and values survive the round trip.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, req2)
	require.NoError(t, err)
	require.Equal(t, "dark", loaded.Get("theme"))
	require.NotNil(t, loaded.Identity())
	require.Equal(t, "owner", loaded.Identity().Role)
	require.Equal(t, "bearer-token", loaded.Bearer())
}

func TestSessionDestroy(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.Set("k", "v")
	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))

	sm.Destroy(sess)
	res2 := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res2, req, sess))

	cookies := res2.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)

	// Store entry gone, so replaying the old cookie yields a fresh session.
	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	fresh, err := sm.Load(ctx, req3)
	require.NoError(t, err)
	require.Empty(t, fresh.Get("k"))
}

func TestSweepStaleClearsIdleIdentities(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	commit := func(revalidatedAt time.Time) *http.Cookie {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		sess, err := sm.Load(ctx, req)
		require.NoError(t, err)
		sess.Set("theme", "dark")
		sess.SetIdentity(shared.Identity{UserID: "u-1", Role: "owner"}, "tok", revalidatedAt)
		res := httptest.NewRecorder()
		require.NoError(t, sm.Commit(ctx, res, req, sess))
		return res.Result().Cookies()[0]
	}

	staleCookie := commit(time.Now().Add(-48 * time.Hour))
	freshCookie := commit(time.Now())

	swept, err := sm.SweepStale(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, swept)

	reload := func(c *http.Cookie) *shared.Session {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(c)
		sess, err := sm.Load(ctx, req)
		require.NoError(t, err)
		return sess
	}

	stale := reload(staleCookie)
	require.Nil(t, stale.Identity())
	require.Empty(t, stale.Bearer())
	// Non-identity values survive; only the sign-in is dropped.
	require.Equal(t, "dark", stale.Get("theme"))

	fresh := reload(freshCookie)
	require.NotNil(t, fresh.Identity())
	require.Equal(t, "tok", fresh.Bearer())
}

func TestSweepStaleIgnoresAnonymousSessions(t *testing.T) {
	sm := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.Set("k", "v")
	res := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, res, req, sess))

	swept, err := sm.SweepStale(ctx, 0)
	require.NoError(t, err)
	require.Zero(t, swept)
}

func TestCSRFTokenLifecycle(t *testing.T) {
	cm := shared.NewCSRFManager("csrfsecret")
	sess := &shared.Session{ID: "sess-1"}
	ctx := context.Background()

	token, err := cm.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Stable until rotated.
	again, err := cm.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, token, again)

	require.NoError(t, cm.VerifyToken(ctx, sess, token))
	require.ErrorIs(t, cm.VerifyToken(ctx, sess, "forged"), shared.ErrCSRFTokenMismatch)
	require.ErrorIs(t, cm.VerifyToken(ctx, sess, ""), shared.ErrCSRFTokenMissing)

	rotated := cm.RotateToken(sess)
	require.NotEqual(t, token, rotated)
	require.ErrorIs(t, cm.VerifyToken(ctx, sess, token), shared.ErrCSRFTokenMismatch)
	require.NoError(t, cm.VerifyToken(ctx, sess, rotated))
}

func TestPaginationClamps(t *testing.T) {
	meta := shared.NewPagination(5, 3, 7)
	require.Equal(t, 3, meta.TotalPages)
	require.Equal(t, 3, meta.Page)

	start, end := meta.PageBounds()
	require.Equal(t, 6, start)
	require.Equal(t, 7, end)
}
