package app_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-match-client/apiclient/refresh"
	"github.com/jrsteele09/go-match-client/internal/app"
	"github.com/jrsteele09/go-match-client/internal/config"
	apperrors "github.com/jrsteele09/go-match-client/internal/errors"
	"github.com/jrsteele09/go-match-client/internal/testserver"
	"github.com/jrsteele09/go-match-client/metrics"
	"github.com/jrsteele09/go-match-client/session"
	"github.com/jrsteele09/go-match-client/token"
	"github.com/jrsteele09/go-match-client/token/filestore"
	"github.com/jrsteele09/go-match-client/token/memstore"
	"github.com/jrsteele09/go-match-client/token/redisstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, opts ...app.Option) (*app.App, *testserver.Server) {
	t.Helper()
	srv := testserver.Start(t)
	t.Setenv("API_BASE_URL", srv.URL)
	t.Setenv("TOKEN_STORE", string(config.StoreMemory))

	a, err := app.New(config.New(), zerolog.Nop(), append([]app.Option{app.WithHTTPClient(srv.Client())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	return a, srv
}

func TestLoginAndProfile(t *testing.T) {
	a, _ := newApp(t)
	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	require.False(t, a.Session.State().IsSignedIn)

	require.NoError(t, a.Session.Login(ctx, testserver.DefaultEmail, testserver.DefaultPassword))

	state := a.Session.State()
	require.True(t, state.IsSignedIn)
	require.Equal(t, testserver.DefaultEmail, state.User.Email)
	require.True(t, state.User.PlaysSport("padel"))
}

func TestExpiredAccessTokenIsRefreshedTransparently(t *testing.T) {
	a, srv := newApp(t)
	ctx := context.Background()
	require.NoError(t, a.Session.Login(ctx, testserver.DefaultEmail, testserver.DefaultPassword))
	before, err := a.Store.Get(ctx)
	require.NoError(t, err)

	srv.ExpireAccessTokens()
	require.NoError(t, a.Session.RefreshUser(ctx))

	require.True(t, a.Session.State().IsSignedIn)
	require.Equal(t, int32(1), srv.Refreshes.Load())

	after, err := a.Store.Get(ctx)
	require.NoError(t, err)
	require.NotEqual(t, before.AccessToken, after.AccessToken)
	require.NotEqual(t, before.RefreshToken, after.RefreshToken)
	require.Equal(t, refresh.Idle, a.Coordinator.State())
}

func TestConcurrentExpiryRefreshesOnce(t *testing.T) {
	a, srv := newApp(t)
	ctx := context.Background()
	require.NoError(t, a.Session.Login(ctx, testserver.DefaultEmail, testserver.DefaultPassword))

	srv.ExpireAccessTokens()
	srv.SetRefreshDelay(100 * time.Millisecond)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Users.Me(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), srv.Refreshes.Load())

	require.Equal(t, 1.0, metricsOutcome(t, a, metrics.OutcomeSuccess))
}

func metricsOutcome(t *testing.T, a *app.App, outcome string) float64 {
	t.Helper()
	families, err := a.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "match_client_token_refresh_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRevokedRefreshTokenEndsSession(t *testing.T) {
	a, srv := newApp(t)
	ctx := context.Background()
	require.NoError(t, a.Session.Login(ctx, testserver.DefaultEmail, testserver.DefaultPassword))

	var signedOut bool
	a.Session.Subscribe(func(s session.State) {
		if !s.IsSignedIn {
			signedOut = true
		}
	})

	srv.ExpireAccessTokens()
	srv.RevokeRefreshTokens()

	err := a.Session.RefreshUser(ctx)
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)

	require.True(t, signedOut)
	require.False(t, a.Session.State().IsSignedIn)
	require.Nil(t, a.Session.State().User)
	require.Equal(t, refresh.Failed, a.Coordinator.State())

	_, err = a.Store.Get(ctx)
	require.ErrorIs(t, err, token.ErrNotFound)
}

func TestStartRestoresStoredSession(t *testing.T) {
	store := memstore.New()
	a, srv := newApp(t, app.WithStore(store))
	ctx := context.Background()

	access, refreshToken, expiresIn := srv.Issue(t, testserver.DefaultEmail)
	require.NoError(t, store.SetCredentials(ctx, token.Credentials{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}))

	require.NoError(t, a.Start(ctx))

	state := a.Session.State()
	require.False(t, state.IsLoading)
	require.True(t, state.IsSignedIn)
	require.Equal(t, testserver.DefaultEmail, state.User.Email)
	require.Equal(t, int32(1), srv.Verifies.Load())
}

func TestStartDropsRejectedSession(t *testing.T) {
	store := memstore.New()
	a, srv := newApp(t, app.WithStore(store))
	ctx := context.Background()

	access, refreshToken, expiresIn := srv.Issue(t, testserver.DefaultEmail)
	require.NoError(t, store.SetCredentials(ctx, token.Credentials{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}))
	srv.ExpireAccessTokens()

	require.NoError(t, a.Start(ctx))

	state := a.Session.State()
	require.False(t, state.IsLoading)
	require.False(t, state.IsSignedIn)
	_, err := store.Get(ctx)
	require.ErrorIs(t, err, token.ErrNotFound)
	require.Zero(t, srv.MeCalls.Load())
}

func TestNewStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		t.Setenv("TOKEN_STORE", "memory")
		store, closer, err := app.NewStore(config.New())
		require.NoError(t, err)
		require.Nil(t, closer)
		require.IsType(t, &memstore.Store{}, store)
	})

	t.Run("file", func(t *testing.T) {
		t.Setenv("TOKEN_STORE", "file")
		t.Setenv("TOKEN_FILE", filepath.Join(t.TempDir(), "tokens"))
		t.Setenv("TOKEN_PASSPHRASE", "correct horse")
		store, _, err := app.NewStore(config.New())
		require.NoError(t, err)
		require.IsType(t, &filestore.Store{}, store)
	})

	t.Run("file without passphrase", func(t *testing.T) {
		t.Setenv("TOKEN_STORE", "file")
		t.Setenv("TOKEN_PASSPHRASE", "")
		_, _, err := app.NewStore(config.New())
		require.ErrorIs(t, err, filestore.ErrNoPassphrase)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		t.Setenv("TOKEN_STORE", "redis")
		t.Setenv("REDIS_ADDR", mr.Addr())
		store, closer, err := app.NewStore(config.New())
		require.NoError(t, err)
		require.NotNil(t, closer)
		defer closer()
		require.IsType(t, &redisstore.Store{}, store)

		ctx := context.Background()
		require.NoError(t, store.SetCredentials(ctx, token.Credentials{AccessToken: "a", RefreshToken: "r"}))
		require.True(t, mr.Exists("match:credentials"))
	})
}
