package auth

import (
	"fmt"
	"strings"
)

// Validator checks request parameters before they are sent, so obviously bad input never
// reaches the network.
type Validator struct{}

// NewValidator creates a new Validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateUserCredentials validates login credentials
func (v *Validator) ValidateUserCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", InvalidEmailErr)
	}

	// Basic email format validation
	at := strings.LastIndex(email, "@")
	if at <= 0 || !strings.Contains(email[at:], ".") {
		return fmt.Errorf("%w: %q", InvalidEmailErr, email)
	}

	if password == "" {
		return MissingPasswordErr
	}
	return nil
}

// ValidateAccessToken validates access token presence. The token is opaque to the client;
// only the server decides whether it is valid.
func (v *Validator) ValidateAccessToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: access token is required", InvalidAccessTokenErr)
	}
	if strings.ContainsAny(token, " \n\r\t") {
		return fmt.Errorf("%w: contains whitespace", InvalidAccessTokenErr)
	}
	return nil
}

// ValidateRefreshToken validates refresh token presence
func (v *Validator) ValidateRefreshToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: refresh token is required", InvalidRefreshTokenErr)
	}
	if strings.ContainsAny(token, " \n\r\t") {
		return fmt.Errorf("%w: contains whitespace", InvalidRefreshTokenErr)
	}
	return nil
}
