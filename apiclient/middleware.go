package apiclient

import "context"

// Handler sends a request and returns the response. Transports and middleware-wrapped
// pipelines share this signature.
type Handler func(ctx context.Context, req Request) (*Response, error)

// Middleware wraps a Handler. Pre-send work happens before calling next, post-receive work after.
type Middleware func(next Handler) Handler

// ChainMiddleware wraps h so that mw[0] runs first on the way out and last on the way back.
func ChainMiddleware(h Handler, mw ...Middleware) Handler {
	chained := h
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chained = mw[i](chained)
	}
	return chained
}
