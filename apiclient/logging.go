package apiclient

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LoggingMiddleware logs every attempt that reaches the transport. Credentials are never logged.
func LoggingMiddleware(logger zerolog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req Request) (*Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			var event *zerolog.Event
			if err != nil {
				event = logger.Warn().Err(err)
			} else {
				event = logger.Debug().Int("status", resp.StatusCode)
			}
			event.
				Str("method", req.Method).
				Str("path", req.Path).
				Str("request_id", req.Header.Get(HeaderRequestID)).
				Int("attempt", req.Attempt).
				Dur("elapsed", time.Since(start)).
				Msg("api request")

			return resp, err
		}
	}
}
