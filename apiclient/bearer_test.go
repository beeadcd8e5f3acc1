package apiclient_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-match-client/apiclient"
	"github.com/jrsteele09/go-match-client/token"
	"github.com/jrsteele09/go-match-client/token/memstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) GetAccessToken(context.Context) (string, error) {
	return "", errors.New("keychain locked")
}

func TestBearerAttachesStoredToken(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	require.NoError(t, store.SetCredentials(ctx, token.Credentials{AccessToken: "access-1", RefreshToken: "r"}))

	rt := &recordingTransport{status: http.StatusOK}
	h := apiclient.ChainMiddleware(rt.Send, apiclient.BearerMiddleware(store, zerolog.Nop()))

	req := apiclient.NewRequest(http.MethodGet, "/users/me", nil)
	_, err := h(ctx, req)
	require.NoError(t, err)

	require.Equal(t, "Bearer access-1", rt.requests[0].Header.Get("Authorization"))
	require.Empty(t, req.Header.Get("Authorization"), "caller's descriptor is not mutated")
}

func TestBearerWithoutToken(t *testing.T) {
	rt := &recordingTransport{status: http.StatusOK}
	h := apiclient.ChainMiddleware(rt.Send, apiclient.BearerMiddleware(memstore.New(), zerolog.Nop()))

	_, err := h(context.Background(), apiclient.NewRequest(http.MethodGet, "/matches", nil))
	require.NoError(t, err)
	require.Empty(t, rt.requests[0].Header.Get("Authorization"))
}

func TestBearerStoreFailureFailsOpen(t *testing.T) {
	rt := &recordingTransport{status: http.StatusOK}
	h := apiclient.ChainMiddleware(rt.Send, apiclient.BearerMiddleware(failingReader{}, zerolog.Nop()))

	req := apiclient.NewRequest(http.MethodGet, "/matches", nil).WithHeader("Authorization", "Bearer stale")
	resp, err := h(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, rt.requests, 1)
	require.Empty(t, rt.requests[0].Header.Get("Authorization"))
}

func TestBearerChangesNothingElse(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	require.NoError(t, store.SetCredentials(ctx, token.Credentials{AccessToken: "a", RefreshToken: "r"}))

	rt := &recordingTransport{status: http.StatusOK}
	h := apiclient.ChainMiddleware(rt.Send, apiclient.BearerMiddleware(store, zerolog.Nop()))

	req := apiclient.NewRequest(http.MethodPost, "/matches", []byte(`{"sport":"padel"}`)).WithHeader("X-Trace", "t1")
	_, err := h(ctx, req)
	require.NoError(t, err)

	sent := rt.requests[0]
	require.Equal(t, req.Method, sent.Method)
	require.Equal(t, req.Path, sent.Path)
	require.Equal(t, req.Body, sent.Body)
	require.Equal(t, req.Attempt, sent.Attempt)
	require.Equal(t, "t1", sent.Header.Get("X-Trace"))
	require.Len(t, sent.Header, 2)
}
