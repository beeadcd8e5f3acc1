package apiclient

import (
	"net/http"
	"net/url"
)

// Request describes one logical API call. It is passed by value through the middleware
// pipeline; middleware that changes it works on a copy, so the caller's descriptor never changes.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte

	// Attempt is 0 for the original submission and 1 for the single resubmission after a credential refresh.
	Attempt int
}

func NewRequest(method, path string, body []byte) Request {
	return Request{
		Method: method,
		Path:   path,
		Header: make(http.Header),
		Body:   body,
	}
}

// WithHeader returns a copy of r with key set to value.
func (r Request) WithHeader(key, value string) Request {
	r.Header = r.Header.Clone()
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
	return r
}

// WithoutHeader returns a copy of r with key removed.
func (r Request) WithoutHeader(key string) Request {
	if r.Header.Get(key) == "" {
		return r
	}
	r.Header = r.Header.Clone()
	r.Header.Del(key)
	return r
}

// Retry returns the resubmission descriptor for r.
func (r Request) Retry() Request {
	r.Header = r.Header.Clone()
	r.Attempt++
	return r
}

// Retried reports whether r is already a resubmission.
func (r Request) Retried() bool {
	return r.Attempt > 0
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
