// Package auth wraps the remote auth endpoints. Its API must be built on the raw (unauthenticated)
// client: the refresh coordinator calls Refresh, and routing that through the coordinator again
// would recurse on a 401.
package auth

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-match-client/token"
)

const (
	RouteLogin        = "/auth/login"
	RouteRefreshToken = "/auth/refresh-token"
	RouteVerifyToken  = "/auth/verify-token"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type VerifyRequest struct {
	AccessToken string `json:"accessToken"`
}

// TokenResponse is the credential payload returned by login and refresh.
// Fields are pointers so a missing field can be told apart from an empty one.
type TokenResponse struct {
	AccessToken  *string `json:"accessToken"`
	RefreshToken *string `json:"refreshToken"`
	ExpiresIn    *int    `json:"expiresIn"`
}

func (r TokenResponse) Credentials() (token.Credentials, error) {
	if r.AccessToken == nil || r.RefreshToken == nil {
		return token.Credentials{}, fmt.Errorf("token response is missing accessToken or refreshToken")
	}
	creds := token.Credentials{
		AccessToken:  deref(r.AccessToken),
		RefreshToken: deref(r.RefreshToken),
		ExpiresIn:    deref(r.ExpiresIn),
	}
	if err := creds.Validate(); err != nil {
		return token.Credentials{}, err
	}
	return creds, nil
}

// VerifyResponse is the optional body of a verify call. A 200 without a body counts as valid.
type VerifyResponse struct {
	Valid *bool `json:"valid"`
}

// JSONPoster is the part of apiclient.Client the auth API needs.
type JSONPoster interface {
	PostJSON(ctx context.Context, path string, in, out any) error
}

type API struct {
	client    JSONPoster
	validator *Validator
}

func NewAPI(client JSONPoster) *API {
	return &API{client: client, validator: NewValidator()}
}

// Login exchanges email and password for a credential set.
func (a *API) Login(ctx context.Context, email, password string) (token.Credentials, error) {
	if err := a.validator.ValidateUserCredentials(email, password); err != nil {
		return token.Credentials{}, err
	}
	var resp TokenResponse
	if err := a.client.PostJSON(ctx, RouteLogin, LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return token.Credentials{}, fmt.Errorf("login: %w", err)
	}
	creds, err := resp.Credentials()
	if err != nil {
		return token.Credentials{}, fmt.Errorf("login: %w", err)
	}
	return creds, nil
}

// Refresh exchanges a refresh token for a new credential set.
func (a *API) Refresh(ctx context.Context, refreshToken string) (token.Credentials, error) {
	if err := a.validator.ValidateRefreshToken(refreshToken); err != nil {
		return token.Credentials{}, err
	}
	var resp TokenResponse
	if err := a.client.PostJSON(ctx, RouteRefreshToken, RefreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return token.Credentials{}, fmt.Errorf("refresh token: %w", err)
	}
	creds, err := resp.Credentials()
	if err != nil {
		return token.Credentials{}, fmt.Errorf("refresh token: %w", err)
	}
	return creds, nil
}

// Verify asks the server whether accessToken is still valid. Any error means "not valid".
func (a *API) Verify(ctx context.Context, accessToken string) error {
	if err := a.validator.ValidateAccessToken(accessToken); err != nil {
		return err
	}
	var resp VerifyResponse
	if err := a.client.PostJSON(ctx, RouteVerifyToken, VerifyRequest{AccessToken: accessToken}, &resp); err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	if resp.Valid != nil && !*resp.Valid {
		return fmt.Errorf("verify token: %w", TokenRejectedErr)
	}
	return nil
}

func deref[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}
