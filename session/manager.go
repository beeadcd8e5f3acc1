// Package session owns the signed-in state of the process: which credentials are stored and
// whose profile is cached. All transitions go through Manager.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	apperrors "github.com/jrsteele09/go-match-client/internal/errors"
	"github.com/jrsteele09/go-match-client/token"
	"github.com/jrsteele09/go-match-client/users"
	"github.com/rs/zerolog"
)

// AuthAPI is the subset of auth.API the manager calls.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (token.Credentials, error)
	Verify(ctx context.Context, accessToken string) error
}

// ProfileAPI loads the signed-in user's profile. It must be backed by the authenticated client.
type ProfileAPI interface {
	Me(ctx context.Context) (*users.User, error)
}

type Manager struct {
	store    token.Store
	auth     AuthAPI
	profiles ProfileAPI
	logger   zerolog.Logger

	initialized atomic.Bool

	mu    sync.RWMutex
	state State

	listenersMu  sync.Mutex
	listeners    map[uint64]Listener
	nextListener uint64
}

type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func NewManager(store token.Store, authAPI AuthAPI, profiles ProfileAPI, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		auth:      authAPI,
		profiles:  profiles,
		logger:    zerolog.Nop(),
		state:     State{IsLoading: true},
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe registers fn for every later state change and returns a function that removes it.
func (m *Manager) Subscribe(fn Listener) (unsubscribe func()) {
	m.listenersMu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenersMu.Lock()
			delete(m.listeners, id)
			m.listenersMu.Unlock()
		})
	}
}

// Initialize restores the session from the token store at process start. A stored access token
// is checked with the server; if it is rejected, or the profile cannot be loaded, the stored
// credentials are purged. Those outcomes are reported through State, not as errors.
// IsLoading becomes false when Initialize returns; only the first call does any work.
func (m *Manager) Initialize(ctx context.Context) error {
	if !m.initialized.CompareAndSwap(false, true) {
		return apperrors.ErrAlreadyInitialized
	}

	user := m.restore(ctx)
	m.setState(func(s *State) {
		s.IsLoading = false
		s.IsSignedIn = user != nil
		s.User = user
	})
	return nil
}

func (m *Manager) restore(ctx context.Context) *users.User {
	accessToken, err := m.store.GetAccessToken(ctx)
	if err != nil {
		if !apperrors.Is(err, token.ErrNotFound) {
			m.logger.Warn().Err(err).Msg("reading stored access token failed; starting signed out")
		}
		return nil
	}

	if err := m.auth.Verify(ctx, accessToken); err != nil {
		m.logger.Info().Err(err).Msg("stored access token rejected; clearing credentials")
		m.purge(ctx)
		return nil
	}

	user, err := m.loadUser(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("loading profile at startup failed; clearing credentials")
		m.purge(ctx)
		return nil
	}
	return user
}

// SignIn stores creds and loads the profile. The session is signed in only if both succeed;
// otherwise the credentials are purged and the error returned.
func (m *Manager) SignIn(ctx context.Context, creds token.Credentials) error {
	if err := creds.Validate(); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	if err := m.store.SetCredentials(ctx, creds.Stamp()); err != nil {
		return fmt.Errorf("sign in: store credentials: %w", err)
	}

	user, err := m.loadUser(ctx)
	if err != nil {
		m.purge(ctx)
		m.setSignedOut()
		return fmt.Errorf("sign in: %w", err)
	}

	m.setState(func(s *State) {
		s.IsSignedIn = true
		s.User = user
	})
	m.logger.Info().Str("user_id", user.ID).Msg("signed in")
	return nil
}

// Login authenticates with email and password, then signs in with the issued credentials.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	creds, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return m.SignIn(ctx, creds)
}

// SignOut clears stored credentials and the cached user. Storage errors are logged and ignored;
// the session always ends signed out.
func (m *Manager) SignOut(ctx context.Context) {
	m.purge(ctx)
	m.setSignedOut()
	m.logger.Info().Msg("signed out")
}

// RefreshUser refetches the profile. A failure signs the session out and is returned.
// If the session is signed out while the profile loads, the result is dropped and ErrNotSignedIn returned.
func (m *Manager) RefreshUser(ctx context.Context) error {
	if !m.State().IsSignedIn {
		return apperrors.ErrNotSignedIn
	}

	user, err := m.loadUser(ctx)
	if err != nil {
		m.purge(ctx)
		m.setSignedOut()
		return fmt.Errorf("refresh user: %w", err)
	}

	// A sign-out that ran while the profile was loading wins
	stillSignedIn := false
	m.setState(func(s *State) {
		if s.IsSignedIn {
			s.User = user
			stillSignedIn = true
		}
	})
	if !stillSignedIn {
		return apperrors.ErrNotSignedIn
	}
	return nil
}

// HandleSessionTerminated is registered with the refresh coordinator. The coordinator has
// already purged the store, so only the in-memory session is reset.
func (m *Manager) HandleSessionTerminated(_ context.Context, err error) {
	m.logger.Warn().Err(err).Msg("session terminated; sign in again")
	m.setSignedOut()
}

// loadUser is the single place the profile is fetched.
func (m *Manager) loadUser(ctx context.Context) (*users.User, error) {
	user, err := m.profiles.Me(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("load user: empty profile")
	}
	return user, nil
}

func (m *Manager) purge(ctx context.Context) {
	if err := m.store.ClearCredentials(ctx); err != nil {
		m.logger.Error().Err(err).Msg("clearing stored credentials failed")
	}
}

func (m *Manager) setSignedOut() {
	m.setState(func(s *State) {
		s.IsSignedIn = false
		s.User = nil
	})
}

// setState applies fn under the lock and notifies listeners with the result outside it.
func (m *Manager) setState(fn func(*State)) {
	m.mu.Lock()
	fn(&m.state)
	next := m.state
	m.mu.Unlock()

	m.listenersMu.Lock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.listenersMu.Unlock()

	for _, l := range listeners {
		l(next)
	}
}
