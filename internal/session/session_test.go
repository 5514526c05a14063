package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinery-monitor/internal/models"
)

func TestManager_CreateResolveDestroy(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryBackend(), time.Hour)

	s, err := m.Create(ctx, models.User{ID: 3, CompanyID: 7, LoginID: "admin"})
	require.NoError(t, err)
	assert.Len(t, s.Token, 36)

	got, err := m.Resolve(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.CompanyID)
	assert.Equal(t, "admin", got.LoginID)

	require.NoError(t, m.Destroy(ctx, s.Token))
	_, err = m.Resolve(ctx, s.Token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_Expired(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryBackend(), time.Minute)

	s, err := m.Create(ctx, models.User{ID: 1, CompanyID: 1, LoginID: "op"})
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = m.Resolve(ctx, s.Token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMemoryBackend_Sweep(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	m := NewManager(b, time.Minute)

	stale, err := m.Create(ctx, models.User{ID: 1, CompanyID: 1, LoginID: "op"})
	require.NoError(t, err)

	m.ttl = time.Hour
	fresh, err := m.Create(ctx, models.User{ID: 2, CompanyID: 1, LoginID: "admin"})
	require.NoError(t, err)
	require.Equal(t, 2, b.Len())

	// the stale session is never resolved again, only the sweep can drop it
	assert.Equal(t, 1, b.Sweep(time.Now().Add(2*time.Minute)))
	assert.Equal(t, 1, b.Len())

	_, err = b.Load(ctx, stale.Token)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = m.Resolve(ctx, fresh.Token)
	assert.NoError(t, err)

	assert.Equal(t, 0, b.Sweep(time.Now()))
}

func TestManager_UnknownToken(t *testing.T) {
	m := NewManager(NewMemoryBackend(), time.Hour)

	_, err := m.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = m.Resolve(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	assert.Empty(t, TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", TokenFromRequest(r))
}
