// Package app wires the client together: token store, HTTP pipelines, refresh coordinator
// and session manager. Build one App per process.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-match-client/apiclient"
	"github.com/jrsteele09/go-match-client/apiclient/refresh"
	"github.com/jrsteele09/go-match-client/auth"
	"github.com/jrsteele09/go-match-client/internal/config"
	"github.com/jrsteele09/go-match-client/metrics"
	"github.com/jrsteele09/go-match-client/session"
	"github.com/jrsteele09/go-match-client/token"
	"github.com/jrsteele09/go-match-client/token/filestore"
	"github.com/jrsteele09/go-match-client/token/memstore"
	"github.com/jrsteele09/go-match-client/token/redisstore"
	"github.com/jrsteele09/go-match-client/users"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type App struct {
	Store       token.Store
	Client      *apiclient.Client // authenticated pipeline
	Auth        *auth.API
	Users       *users.API
	Coordinator *refresh.Coordinator
	Session     *session.Manager
	Registry    *prometheus.Registry

	closers []func() error
}

type options struct {
	store      token.Store
	httpClient *http.Client
}

type Option func(*options)

// WithStore overrides the store chosen by configuration.
func WithStore(store token.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

func New(c config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Registry: prometheus.NewRegistry()}

	a.Store = o.store
	if a.Store == nil {
		store, closer, err := NewStore(c)
		if err != nil {
			return nil, err
		}
		a.Store = store
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: c.GetRequestTimeout()}
	}
	transport := apiclient.NewHTTPTransport(c.GetBaseURL(), httpClient)
	apiLogger := logger.With().Str("component", "apiclient").Logger()

	// The auth endpoints go through a pipeline without bearer or refresh handling
	raw := apiclient.New(transport.Send,
		apiclient.RequestIDMiddleware(),
		apiclient.LoggingMiddleware(apiLogger),
	)
	a.Auth = auth.NewAPI(raw)

	a.Coordinator = refresh.New(a.Store, a.Auth,
		refresh.WithTimeout(c.GetRefreshTimeout()),
		refresh.WithLogger(logger.With().Str("component", "refresh").Logger()),
		refresh.WithMetrics(metrics.NewRefresh(a.Registry)),
	)

	// Order matters: the coordinator must wrap the bearer middleware so a resubmission
	// is signed with the refreshed token.
	a.Client = apiclient.New(transport.Send,
		apiclient.RequestIDMiddleware(),
		a.Coordinator.Middleware(),
		apiclient.BearerMiddleware(a.Store, apiLogger),
		apiclient.LoggingMiddleware(apiLogger),
	)
	a.Users = users.NewAPI(a.Client)

	a.Session = session.NewManager(a.Store, a.Auth, a.Users,
		session.WithLogger(logger.With().Str("component", "session").Logger()),
	)
	a.Coordinator.OnTerminal(a.Session.HandleSessionTerminated)

	return a, nil
}

// Start restores any stored session.
func (a *App) Start(ctx context.Context) error {
	return a.Session.Initialize(ctx)
}

func (a *App) Close() error {
	var firstErr error
	for _, closer := range a.closers {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// NewStore builds the token store selected by configuration. The returned closer may be nil.
func NewStore(c config.StoreConfig) (token.Store, func() error, error) {
	switch c.GetTokenStore() {
	case config.StoreMemory:
		return memstore.New(), nil, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr: c.GetRedisAddr(),
			DB:   c.GetRedisDB(),
		})
		return redisstore.New(client, c.GetRedisKey()), client.Close, nil
	default:
		store, err := filestore.New(c.GetTokenFile(), c.GetTokenPassphrase())
		if err != nil {
			return nil, nil, fmt.Errorf("open token file %s: %w", c.GetTokenFile(), err)
		}
		return store, nil, nil
	}
}
