package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-match-client/internal/errors"
	"golang.org/x/oauth2"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Credentials is the credential set issued by login and refresh.
// All fields are written and removed together; the access token decides whether a user is signed in.
type Credentials struct {
	// AccessToken is the short-lived bearer credential sent on every API call.
	AccessToken string `json:"accessToken"`

	// RefreshToken is only ever sent to the refresh endpoint.
	RefreshToken string `json:"refreshToken"`

	// ExpiresIn is the advisory lifetime of AccessToken in seconds from issuance.
	ExpiresIn int `json:"expiresIn"`

	// ExpiresAt is derived when the set is stored; it is not part of the API payload.
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// Validate checks that a credential set returned by the API is complete.
func (c Credentials) Validate() error {
	if c.AccessToken == "" {
		return apperrors.New("access token is empty")
	}
	if c.RefreshToken == "" {
		return apperrors.New("refresh token is empty")
	}
	if c.ExpiresIn < 0 {
		return apperrors.New("expires in must not be negative")
	}
	return nil
}

// Stamp fills ExpiresAt from ExpiresIn, or from the access token's exp claim when the API sent no lifetime.
func (c Credentials) Stamp() Credentials {
	if c.ExpiresIn > 0 {
		c.ExpiresAt = NowTimeFunc().Add(time.Duration(c.ExpiresIn) * time.Second)
		return c
	}
	if exp, ok := AccessTokenExpiry(c.AccessToken); ok {
		c.ExpiresAt = exp
		if remaining := exp.Sub(NowTimeFunc()); remaining > 0 {
			c.ExpiresIn = int(remaining.Seconds())
		}
	}
	return c
}

// Expired reports whether the access token is past its advisory expiry.
// A set without a known expiry is never considered expired; the server stays the authority.
func (c Credentials) Expired() bool {
	return !c.ExpiresAt.IsZero() && !NowTimeFunc().Before(c.ExpiresAt)
}

// OAuth2 converts the set to an oauth2.Token for code that speaks golang.org/x/oauth2.
func (c Credentials) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.ExpiresAt,
	}
}

// AccessTokenExpiry reads the exp claim of a JWT access token without verifying its signature.
// Signature checks belong to the server; the client only uses exp as a hint.
func AccessTokenExpiry(accessToken string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
