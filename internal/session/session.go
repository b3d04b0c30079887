// Package session keeps the signed-in user's tokens and profile, persists
// them across restarts and refreshes the access token before it expires.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brianly1003/arena-shell/internal/apiclient"
	"github.com/brianly1003/arena-shell/internal/store"
	"github.com/brianly1003/arena-shell/internal/sync"
)

// Storage keys, shared with the frontend.
const (
	SessionKey      = "arena_session"
	RefreshTokenKey = "arena_refresh_token"
)

// EventChanged is emitted with the new *Session (nil after logout).
const EventChanged = "session:changed"

// User is the profile returned by GET /users/me.
type User struct {
	ID              string          `json:"id"`
	NationalID      string          `json:"nationalId"`
	PhoneNumber     string          `json:"phoneNumber"`
	Email           string          `json:"email,omitempty"`
	FirstName       string          `json:"firstName"`
	LastName        string          `json:"lastName"`
	ProfileImageURL string          `json:"profileImageUrl,omitempty"`
	BirthDate       string          `json:"birthDate,omitempty"`
	Address         string          `json:"address,omitempty"`
	Adult           bool            `json:"adult"`
	Gender          string          `json:"gender"`
	Status          string          `json:"status"`
	EmailVerified   bool            `json:"emailVerified"`
	PhoneVerified   bool            `json:"phoneVerified"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

// Tokens is the pair issued by login and refresh.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Session is the persisted sign-in state. ExpiresAt is in Unix milliseconds.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// KV is the persistence the manager needs; *store.Store satisfies it.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Options configures a Manager.
type Options struct {
	BaseURL     string
	DeviceID    string
	Doer        apiclient.Doer
	Store       KV
	RefreshLead time.Duration
	MinRefresh  time.Duration
	// Emit is called on every session change. Optional.
	Emit func(event string, data any)
	// Now is the clock. Optional.
	Now func() time.Time
}

// Manager owns the current session.
type Manager struct {
	opts Options

	mu      sync.RWMutex
	current *Session
	timer   *time.Timer
	closed  bool
}

// NewManager creates a manager with no session.
func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RefreshLead == 0 {
		opts.RefreshLead = 5 * time.Minute
	}
	if opts.MinRefresh == 0 {
		opts.MinRefresh = time.Minute
	}
	return &Manager{opts: opts}
}

// Current returns a copy of the current session, or nil.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	s := *m.current
	return &s
}

// Client returns an API client authenticated with the current session. A
// 401 from the API signs the user out.
func (m *Manager) Client() *apiclient.Client {
	return apiclient.New(m.opts.BaseURL, m.opts.Doer,
		apiclient.WithToken(func() string {
			if s := m.Current(); s != nil {
				return s.AccessToken
			}
			return ""
		}),
		apiclient.WithUnauthorized(func() {
			go m.Logout(context.Background())
		}),
	)
}

// Login establishes a session from freshly issued tokens.
func (m *Manager) Login(ctx context.Context, tokens Tokens) (*Session, error) {
	s, err := m.establish(ctx, tokens)
	if err != nil {
		log.Warn().Err(err).Msg("login failed")
		return nil, err
	}
	log.Info().Str("user_id", s.User.ID).Msg("signed in")
	return s, nil
}

// Refresh exchanges the stored refresh token for new tokens. It reports
// whether a new session was established.
func (m *Manager) Refresh(ctx context.Context) bool {
	refreshToken, err := m.opts.Store.Get(ctx, RefreshTokenKey)
	if err != nil || refreshToken == "" {
		return false
	}

	var tokens Tokens
	body := map[string]string{
		"refreshToken": refreshToken,
		"deviceId":     m.opts.DeviceID,
	}
	if err := m.api().Post(ctx, "/auth/refresh", body, &tokens); err != nil {
		log.Warn().Err(err).Msg("token refresh failed")
		return false
	}

	if _, err := m.establish(ctx, tokens); err != nil {
		log.Warn().Err(err).Msg("token refresh failed")
		return false
	}
	log.Debug().Msg("session refreshed")
	return true
}

// Logout notifies the API when signed in and clears local state. API errors
// are logged and otherwise ignored.
func (m *Manager) Logout(ctx context.Context) {
	if s := m.Current(); s != nil {
		client := apiclient.New(m.opts.BaseURL, m.opts.Doer, apiclient.WithBearer(s.AccessToken))
		if err := client.Post(ctx, "/auth/logout", nil, nil); err != nil {
			log.Warn().Err(err).Msg("logout API call failed")
		}
	}
	m.clear(ctx)
	log.Info().Msg("signed out")
}

// Restore loads the persisted session. An expired session is refreshed; one
// that cannot be refreshed or decoded is cleared.
func (m *Manager) Restore(ctx context.Context) {
	raw, err := m.opts.Store.Get(ctx, SessionKey)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("failed to read stored session")
		return
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		log.Warn().Err(err).Msg("stored session is corrupt, clearing")
		m.clear(ctx)
		return
	}

	if m.opts.Now().UnixMilli() >= s.ExpiresAt {
		if !m.Refresh(ctx) {
			m.clear(ctx)
		}
		return
	}

	m.set(&s)
}

// RefreshDelay is how long after now the session expiring at expiresAt
// should be refreshed: RefreshLead before expiry, but never sooner than
// MinRefresh.
func (m *Manager) RefreshDelay(expiresAt time.Time) time.Duration {
	d := expiresAt.Sub(m.opts.Now()) - m.opts.RefreshLead
	if d < m.opts.MinRefresh {
		return m.opts.MinRefresh
	}
	return d
}

// Close stops the refresh timer. Sessions established afterwards are not
// refreshed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	return nil
}

func (m *Manager) api() *apiclient.Client {
	return apiclient.New(m.opts.BaseURL, m.opts.Doer)
}

func (m *Manager) establish(ctx context.Context, tokens Tokens) (*Session, error) {
	exp, err := ExpiryFromJWT(tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	var user User
	client := apiclient.New(m.opts.BaseURL, m.opts.Doer, apiclient.WithBearer(tokens.AccessToken))
	if err := client.Get(ctx, "/users/me", &user); err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}

	s := &Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         user,
		ExpiresAt:    exp.UnixMilli(),
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	if err := m.opts.Store.Set(ctx, SessionKey, string(data)); err != nil {
		return nil, err
	}
	if err := m.opts.Store.Set(ctx, RefreshTokenKey, tokens.RefreshToken); err != nil {
		return nil, err
	}

	m.set(s)
	return m.Current(), nil
}

func (m *Manager) set(s *Session) {
	m.mu.Lock()
	m.current = s
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if !m.closed {
		delay := m.RefreshDelay(time.UnixMilli(s.ExpiresAt))
		m.timer = time.AfterFunc(delay, func() {
			m.Refresh(context.Background())
		})
	}
	m.mu.Unlock()

	m.emit(m.Current())
}

func (m *Manager) clear(ctx context.Context) {
	if err := m.opts.Store.Delete(ctx, SessionKey, RefreshTokenKey); err != nil {
		log.Warn().Err(err).Msg("failed to clear stored session")
	}

	m.mu.Lock()
	m.current = nil
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()

	m.emit(nil)
}

func (m *Manager) emit(s *Session) {
	if m.opts.Emit != nil {
		m.opts.Emit(EventChanged, s)
	}
}
