package memstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-match-client/token"
)

var _ token.Store = (*Store)(nil)

// Store keeps the credential set in process memory.
type Store struct {
	creds *token.Credentials
	lock  sync.RWMutex
}

func New() *Store {
	return &Store{}
}

func (s *Store) Get(_ context.Context) (token.Credentials, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.creds == nil {
		return token.Credentials{}, token.ErrNotFound
	}
	return *s.creds, nil
}

func (s *Store) GetAccessToken(ctx context.Context) (string, error) {
	return token.AccessToken(ctx, s)
}

func (s *Store) GetRefreshToken(ctx context.Context) (string, error) {
	return token.RefreshToken(ctx, s)
}

func (s *Store) SetCredentials(_ context.Context, creds token.Credentials) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.creds = &creds
	return nil
}

func (s *Store) ClearCredentials(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.creds = nil
	return nil
}
