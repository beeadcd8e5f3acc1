package apiclient

import (
	"context"

	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-ID"

// RequestIDMiddleware tags each logical call with a correlation ID. It sits outside the refresh
// coordinator so a resubmission carries the same ID as the original.
func RequestIDMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req Request) (*Response, error) {
			if req.Header.Get(HeaderRequestID) == "" {
				req = req.WithHeader(HeaderRequestID, uuid.NewString())
			}
			return next(ctx, req)
		}
	}
}
