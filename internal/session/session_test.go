package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishanbilolikar/pizza42-backend/internal/auth"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	s := Session{
		SessionID:     "sid-1",
		Subject:       "auth0|123",
		Email:         "pat@example.com",
		EmailVerified: true,
		Name:          "Pat",
		IDTokenClaims: map[string]any{"sub": "auth0|123"},
		AccessToken:   "at",
		CreatedAt:     time.Now(),
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Create(ctx, s))
	assert.True(t, mr.Exists(keyPrefix+"sid-1"))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL(keyPrefix+"sid-1").Seconds(), 5)

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "auth0|123", got.Subject)
	assert.Equal(t, "at", got.AccessToken)
	assert.Equal(t, &auth.Identity{
		Subject:       "auth0|123",
		Email:         "pat@example.com",
		EmailVerified: true,
		Name:          "Pat",
		Source:        auth.SourceSession,
	}, got.Identity())

	require.NoError(t, store.Delete(ctx, "sid-1"))
	got, err = store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreRejectsInvalid(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, store.Create(ctx, Session{SessionID: "x", ExpiresAt: time.Now().Add(time.Hour)}))
	assert.Error(t, store.Create(ctx, Session{SessionID: "x", Subject: "s", ExpiresAt: time.Now().Add(-time.Second)}))
}

func TestExpired(t *testing.T) {
	now := time.Now()
	assert.True(t, Session{ExpiresAt: now}.Expired(now))
	assert.False(t, Session{ExpiresAt: now.Add(time.Minute)}.Expired(now))
}

func TestCookieRoundTrip(t *testing.T) {
	for _, secure := range []bool{true, false} {
		opts := DefaultCookieOptions(secure)

		rec := httptest.NewRecorder()
		SetCookie(rec, "sid-9", time.Now().Add(time.Hour), opts)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, opts.Name(), cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, secure, cookies[0].Secure)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookies[0])
		assert.Equal(t, "sid-9", ReadCookie(req, opts))
	}
}

func TestClearCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearCookie(rec, CookieOptions{Secure: true})

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, "/", cookies[0].Path)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestGenerateIDUnique(t *testing.T) {
	a, err := GenerateID()
	require.NoError(t, err)
	b, err := GenerateID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}

func TestGenerateState(t *testing.T) {
	s, err := GenerateState()
	require.NoError(t, err)
	assert.Len(t, s, 32)
	assert.NotContains(t, s, "=")
}
