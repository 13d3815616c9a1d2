package session

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltworks/storefront/internal/storage"
)

var (
	shopper = Identity{ID: 7, Name: "Grace Wanjiru", Email: "grace@example.com", Phone: "+254700000001"}
	admin   = Identity{ID: 1, Name: "Site Admin", Email: "admin@example.com", IsAdmin: true}
)

type recordingNav struct {
	paths []string
}

func (n *recordingNav) Navigate(path string) { n.paths = append(n.paths, path) }

func seedSession(t *testing.T, st storage.Store, identity Identity, token string, expiresAt time.Time) {
	t.Helper()
	ctx := context.Background()
	identityJSON, err := json.Marshal(identity)
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, storage.KeyUser, identityJSON))
	require.NoError(t, st.Set(ctx, storage.KeyToken, []byte(`"`+token+`"`)))
	require.NoError(t, st.Set(ctx, storage.KeyTokenExpiry, []byte(strconv.FormatInt(expiresAt.UnixMilli(), 10))))
}

// ============================================
// Login / Logout Tests
// ============================================

func TestManager_Login_PersistsSession(t *testing.T) {
	st := storage.NewMemoryStore()
	ctx := context.Background()
	m := NewManager(ctx, st, nil, Config{})

	require.NoError(t, m.Login(ctx, shopper, "token-abc"))

	s, ok := m.Current(ctx)
	require.True(t, ok)
	assert.Equal(t, shopper, s.Identity)
	assert.Equal(t, "token-abc", s.Token)

	// All three keys hit storage.
	for _, key := range []string{storage.KeyUser, storage.KeyToken, storage.KeyTokenExpiry} {
		_, err := st.Get(ctx, key)
		assert.NoError(t, err, key)
	}
}

func TestManager_Login_ExpiryWindowsByRole(t *testing.T) {
	st := storage.NewMemoryStore()
	ctx := context.Background()
	m := NewManager(ctx, st, nil, Config{UserTTL: time.Hour, AdminTTL: 3 * time.Hour})

	before := time.Now()
	require.NoError(t, m.Login(ctx, shopper, "t1"))
	s, ok := m.Current(ctx)
	require.True(t, ok)
	assert.WithinDuration(t, before.Add(time.Hour), s.ExpiresAt, 2*time.Second)

	before = time.Now()
	require.NoError(t, m.Login(ctx, admin, "t2"))
	s, ok = m.Current(ctx)
	require.True(t, ok)
	assert.WithinDuration(t, before.Add(3*time.Hour), s.ExpiresAt, 2*time.Second)
}

func TestManager_Logout_ClearsStorageAndRedirects(t *testing.T) {
	st := storage.NewMemoryStore()
	ctx := context.Background()
	nav := &recordingNav{}
	m := NewManager(ctx, st, nav, Config{})

	require.NoError(t, m.Login(ctx, shopper, "token"))
	m.Logout(ctx)

	assert.False(t, m.Authenticated(ctx))
	for _, key := range []string{storage.KeyUser, storage.KeyToken, storage.KeyTokenExpiry} {
		_, err := st.Get(ctx, key)
		assert.ErrorIs(t, err, storage.ErrNotFound, key)
	}
	assert.Equal(t, []string{LoginPath}, nav.paths)
}

func TestManager_Logout_AdminRedirectsToAdminSurface(t *testing.T) {
	st := storage.NewMemoryStore()
	ctx := context.Background()
	nav := &recordingNav{}
	m := NewManager(ctx, st, nav, Config{})

	require.NoError(t, m.Login(ctx, admin, "token"))
	m.Logout(ctx)

	assert.Equal(t, []string{AdminLoginPath}, nav.paths)
}

// ============================================
// Restore Tests
// ============================================

func TestManager_Restore_ValidSession(t *testing.T) {
	st := storage.NewMemoryStore()
	seedSession(t, st, shopper, "stored-token", time.Now().Add(time.Hour))

	m := NewManager(context.Background(), st, nil, Config{})

	s, ok := m.Current(context.Background())
	require.True(t, ok)
	assert.Equal(t, shopper, s.Identity)
	assert.Equal(t, "stored-token", s.Token)
}

func TestManager_Restore_ExpiredSessionNeverValid(t *testing.T) {
	st := storage.NewMemoryStore()
	ctx := context.Background()
	nav := &recordingNav{}
	seedSession(t, st, shopper, "stale-token", time.Now().Add(-time.Minute))

	m := NewManager(ctx, st, nav, Config{})

	assert.False(t, m.Authenticated(ctx))
	// Stale credentials are scrubbed from storage, and the user lands on
	// the login surface.
	for _, key := range []string{storage.KeyUser, storage.KeyToken, storage.KeyTokenExpiry} {
		_, err := st.Get(ctx, key)
		assert.ErrorIs(t, err, storage.ErrNotFound, key)
	}
	assert.Equal(t, []string{LoginPath}, nav.paths)
}

func TestManager_Restore_ExpiredAdminGoesToAdminSurface(t *testing.T) {
	st := storage.NewMemoryStore()
	nav := &recordingNav{}
	seedSession(t, st, admin, "stale", time.Now().Add(-time.Minute))

	NewManager(context.Background(), st, nav, Config{})

	assert.Equal(t, []string{AdminLoginPath}, nav.paths)
}

func TestManager_Restore_IncompleteStateIsScrubbed(t *testing.T) {
	st := storage.NewMemoryStore()
	ctx := context.Background()
	// Identity present, token and expiry missing.
	identityJSON, err := json.Marshal(shopper)
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, storage.KeyUser, identityJSON))

	m := NewManager(ctx, st, nil, Config{})

	assert.False(t, m.Authenticated(ctx))
	_, err = st.Get(ctx, storage.KeyUser)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestManager_Restore_CorruptIdentityIsScrubbed(t *testing.T) {
	st := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, storage.KeyUser, []byte("{broken")))
	require.NoError(t, st.Set(ctx, storage.KeyToken, []byte(`"token"`)))
	require.NoError(t, st.Set(ctx, storage.KeyTokenExpiry, []byte("99999999999999")))

	m := NewManager(ctx, st, nil, Config{})
	assert.False(t, m.Authenticated(ctx))
}

// ============================================
// Expiry enforcement at read time
// ============================================

func TestManager_Current_DetectsExpiryInFlight(t *testing.T) {
	st := storage.NewMemoryStore()
	ctx := context.Background()
	nav := &recordingNav{}
	m := NewManager(ctx, st, nav, Config{})

	// A session whose window has already closed, injected as if restored.
	seedSession(t, st, shopper, "token", time.Now().Add(20*time.Millisecond))
	m = NewManager(ctx, st, nav, Config{})
	require.True(t, m.Authenticated(ctx))

	time.Sleep(30 * time.Millisecond)

	assert.False(t, m.Authenticated(ctx))
	assert.Equal(t, []string{LoginPath}, nav.paths)
}
