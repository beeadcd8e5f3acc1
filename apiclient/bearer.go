package apiclient

import (
	"context"

	apperrors "github.com/jrsteele09/go-match-client/internal/errors"
	"github.com/jrsteele09/go-match-client/token"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const headerAuthorization = "Authorization"

// AccessTokenReader is the part of token.Store the bearer middleware needs.
type AccessTokenReader interface {
	GetAccessToken(ctx context.Context) (string, error)
}

var _ AccessTokenReader = (token.Store)(nil)

// BearerMiddleware attaches the stored access token to every outbound request.
// A missing token or a failed store read sends the request without credentials; the server's
// 401 is then handled downstream.
func BearerMiddleware(store AccessTokenReader, logger zerolog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req Request) (*Response, error) {
			accessToken, err := store.GetAccessToken(ctx)
			switch {
			case err == nil && accessToken != "":
				tok := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
				req = req.WithHeader(headerAuthorization, tok.Type()+" "+tok.AccessToken)
			case err != nil && !apperrors.Is(err, token.ErrNotFound):
				logger.Warn().Err(err).Str("path", req.Path).Msg("reading access token failed; sending request without credentials")
				req = req.WithoutHeader(headerAuthorization)
			default:
				req = req.WithoutHeader(headerAuthorization)
			}
			return next(ctx, req)
		}
	}
}
