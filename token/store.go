package token

import (
	"context"
	"fmt"

	apperrors "github.com/jrsteele09/go-match-client/internal/errors"
)

// ErrNotFound is returned by a Store when no credential set is held.
var ErrNotFound = fmt.Errorf("credentials %w", apperrors.ErrNotFound)

// Store persists the credential set as one record.
// Only the session manager and the refresh coordinator write to it.
type Store interface {
	Getter
	GetAccessToken(ctx context.Context) (string, error)
	GetRefreshToken(ctx context.Context) (string, error)
	SetCredentials(ctx context.Context, creds Credentials) error
	ClearCredentials(ctx context.Context) error
}

// Getter reads the whole credential record.
type Getter interface {
	Get(ctx context.Context) (Credentials, error)
}

// AccessToken returns the stored access token from a full record lookup.
// Store implementations that keep a single record use it for GetAccessToken.
func AccessToken(ctx context.Context, s Getter) (string, error) {
	creds, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	if creds.AccessToken == "" {
		return "", ErrNotFound
	}
	return creds.AccessToken, nil
}

// RefreshToken is the refresh-token counterpart of AccessToken.
func RefreshToken(ctx context.Context, s Getter) (string, error) {
	creds, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	if creds.RefreshToken == "" {
		return "", ErrNotFound
	}
	return creds.RefreshToken, nil
}
