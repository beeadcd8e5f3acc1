package auth

import "errors"

var (
	InvalidEmailErr        = errors.New("invalid email")
	MissingPasswordErr     = errors.New("password is required")
	InvalidAccessTokenErr  = errors.New("invalid access token")
	InvalidRefreshTokenErr = errors.New("invalid refresh token")
	TokenRejectedErr       = errors.New("token rejected by server")
)
