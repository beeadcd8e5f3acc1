package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-match-client/internal/errors"
)

const contentTypeJSON = "application/json"

// Client runs requests through an ordered middleware pipeline ending in a transport.
// Build one per process and pass it to the API wrappers that need it.
type Client struct {
	handler Handler
}

// New returns a client whose pipeline is mw[0] -> ... -> mw[n] -> transport.
func New(transport Handler, mw ...Middleware) *Client {
	return &Client{handler: ChainMiddleware(transport, mw...)}
}

// Do sends req. Transport errors are returned as is; non-2xx responses become *errors.APIError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.handler(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return resp, decodeAPIError(resp)
	}
	return resp, nil
}

// GetJSON sends a GET and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.DoJSON(ctx, http.MethodGet, path, nil, out)
}

// PostJSON sends in as a JSON body and decodes the response into out. Either may be nil.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.DoJSON(ctx, http.MethodPost, path, in, out)
}

func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to encode %s %s body: %w", method, path, err)
		}
	}

	req := NewRequest(method, path, body).WithHeader("Accept", contentTypeJSON)
	if body != nil {
		req = req.WithHeader("Content-Type", contentTypeJSON)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *Response) error {
	apiErr := &apperrors.APIError{StatusCode: resp.StatusCode}
	// Best effort: the body may not be JSON (proxies, gateways)
	_ = json.Unmarshal(resp.Body, apiErr)
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}
