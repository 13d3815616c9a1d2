// Package session owns identity and bearer-token state for the storefront:
// login, logout, restart restoration, and expiry enforcement. Tokens are
// never silently renewed; the only path to a fresh expiry is a fresh login.
package session

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/voltworks/storefront/internal/storage"
)

// Login surfaces. Admin and ordinary flows are disjoint: an expiring admin
// session sends the user back to the admin surface, not the shopper one.
const (
	LoginPath      = "/login"
	AdminLoginPath = "/admin-login"
)

// Default token lifetimes, measured from login.
const (
	DefaultUserTTL  = 5 * time.Hour
	DefaultAdminTTL = 12 * time.Hour
)

// Identity is the authenticated user as returned by the auth endpoint.
type Identity struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	IsAdmin bool   `json:"isAdmin"`
}

// Session is a live authenticated session.
type Session struct {
	Identity  Identity
	Token     string
	ExpiresAt time.Time
}

// Navigator receives the redirects the session flow demands (to a login
// surface on logout or expiry). The CLI and tests provide implementations.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Config tunes a Manager. Zero values fall back to the defaults above.
type Config struct {
	UserTTL  time.Duration
	AdminTTL time.Duration
}

// Manager owns the process-wide session state and its persisted copy.
type Manager struct {
	mu       sync.Mutex
	storage  storage.Store
	nav      Navigator
	userTTL  time.Duration
	adminTTL time.Duration

	current *Session
}

// NewManager builds a Manager over st and restores any persisted session.
// A persisted session past its expiry is torn down immediately so storage
// never holds stale credentials.
func NewManager(ctx context.Context, st storage.Store, nav Navigator, cfg Config) *Manager {
	if cfg.UserTTL <= 0 {
		cfg.UserTTL = DefaultUserTTL
	}
	if cfg.AdminTTL <= 0 {
		cfg.AdminTTL = DefaultAdminTTL
	}
	m := &Manager{
		storage:  st,
		nav:      nav,
		userTTL:  cfg.UserTTL,
		adminTTL: cfg.AdminTTL,
	}
	m.restore(ctx)
	return m
}

func (m *Manager) restore(ctx context.Context) {
	identityData, err := m.storage.Get(ctx, storage.KeyUser)
	if err != nil {
		m.clearStorage(ctx)
		return
	}
	tokenData, err := m.storage.Get(ctx, storage.KeyToken)
	if err != nil {
		m.clearStorage(ctx)
		return
	}
	expiryData, err := m.storage.Get(ctx, storage.KeyTokenExpiry)
	if err != nil {
		m.clearStorage(ctx)
		return
	}

	var identity Identity
	if err := json.Unmarshal(identityData, &identity); err != nil {
		log.Printf("[Session] Corrupt persisted identity, discarding: %v", err)
		m.clearStorage(ctx)
		return
	}
	var token string
	if err := json.Unmarshal(tokenData, &token); err != nil {
		log.Printf("[Session] Corrupt persisted token, discarding: %v", err)
		m.clearStorage(ctx)
		return
	}
	expiryMillis, err := strconv.ParseInt(string(expiryData), 10, 64)
	if err != nil {
		log.Printf("[Session] Corrupt persisted expiry, discarding: %v", err)
		m.clearStorage(ctx)
		return
	}

	expiresAt := time.UnixMilli(expiryMillis)
	if !time.Now().Before(expiresAt) {
		// Expired while the process was down. Same cleanup as an explicit
		// logout so storage never keeps a stale session around.
		log.Printf("[Session] Persisted session for %s expired, logging out", identity.Email)
		m.clearStorage(ctx)
		m.redirect(identity.IsAdmin)
		return
	}

	m.current = &Session{Identity: identity, Token: token, ExpiresAt: expiresAt}
	log.Printf("[Session] Restored session for %s (expires %s)", identity.Email, expiresAt.Format(time.RFC3339))
}

// Login records a fresh session for identity with the given bearer token.
// The expiry window depends on the role: administrators get the longer one.
func (m *Manager) Login(ctx context.Context, identity Identity, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ttl := m.userTTL
	if identity.IsAdmin {
		ttl = m.adminTTL
	}
	expiresAt := time.Now().Add(ttl)

	identityData, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	tokenData, err := json.Marshal(token)
	if err != nil {
		return err
	}

	if err := m.storage.Set(ctx, storage.KeyUser, identityData); err != nil {
		return err
	}
	if err := m.storage.Set(ctx, storage.KeyToken, tokenData); err != nil {
		return err
	}
	expiryData := strconv.FormatInt(expiresAt.UnixMilli(), 10)
	if err := m.storage.Set(ctx, storage.KeyTokenExpiry, []byte(expiryData)); err != nil {
		return err
	}

	m.current = &Session{Identity: identity, Token: token, ExpiresAt: expiresAt}
	log.Printf("[Session] Logged in %s (admin=%v, expires %s)", identity.Email, identity.IsAdmin, expiresAt.Format(time.RFC3339))
	return nil
}

// Logout destroys the session and redirects to the login surface matching
// the departing identity's role.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	wasAdmin := m.current != nil && m.current.Identity.IsAdmin
	m.current = nil
	m.clearStorage(ctx)
	m.mu.Unlock()

	m.redirect(wasAdmin)
}

// Current returns the live session. A session past its expiry is torn down
// on the spot and reported absent, regardless of what storage still held.
func (m *Manager) Current(ctx context.Context) (Session, bool) {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return Session{}, false
	}
	if !time.Now().Before(m.current.ExpiresAt) {
		wasAdmin := m.current.Identity.IsAdmin
		log.Printf("[Session] Session for %s expired", m.current.Identity.Email)
		m.current = nil
		m.clearStorage(ctx)
		m.mu.Unlock()
		m.redirect(wasAdmin)
		return Session{}, false
	}
	s := *m.current
	m.mu.Unlock()
	return s, true
}

// Authenticated reports whether a valid session exists right now.
func (m *Manager) Authenticated(ctx context.Context) bool {
	_, ok := m.Current(ctx)
	return ok
}

func (m *Manager) clearStorage(ctx context.Context) {
	for _, key := range []string{storage.KeyUser, storage.KeyToken, storage.KeyTokenExpiry} {
		if err := m.storage.Delete(ctx, key); err != nil {
			log.Printf("[Session] Failed to clear %s: %v", key, err)
		}
	}
}

func (m *Manager) redirect(wasAdmin bool) {
	if m.nav == nil {
		return
	}
	if wasAdmin {
		m.nav.Navigate(AdminLoginPath)
	} else {
		m.nav.Navigate(LoginPath)
	}
}
