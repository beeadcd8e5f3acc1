package memstore_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-match-client/token"
	"github.com/jrsteele09/go-match-client/token/memstore"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	_, err := s.GetAccessToken(ctx)
	require.ErrorIs(t, err, token.ErrNotFound)

	require.NoError(t, s.SetCredentials(ctx, token.Credentials{AccessToken: "a", RefreshToken: "r", ExpiresIn: 60}))

	access, err := s.GetAccessToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", access)
	refresh, err := s.GetRefreshToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "r", refresh)

	require.NoError(t, s.ClearCredentials(ctx))
	_, err = s.GetAccessToken(ctx)
	require.ErrorIs(t, err, token.ErrNotFound)
	_, err = s.GetRefreshToken(ctx)
	require.ErrorIs(t, err, token.ErrNotFound)
}

func TestSetReplacesWholeRecord(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	require.NoError(t, s.SetCredentials(ctx, token.Credentials{AccessToken: "a1", RefreshToken: "r1", ExpiresIn: 60}))
	require.NoError(t, s.SetCredentials(ctx, token.Credentials{AccessToken: "a2", RefreshToken: "r2", ExpiresIn: 120}))

	creds, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, token.Credentials{AccessToken: "a2", RefreshToken: "r2", ExpiresIn: 120}, creds)
}
