// Package refresh recovers from expired access tokens: on a 401 it refreshes the credential set
// once, shared by every request that failed at the same time, and resubmits each request once.
package refresh

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/go-match-client/apiclient"
	apperrors "github.com/jrsteele09/go-match-client/internal/errors"
	"github.com/jrsteele09/go-match-client/metrics"
	"github.com/jrsteele09/go-match-client/token"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	refreshKey     = "refresh"
	defaultTimeout = 15 * time.Second
)

// State is the coordinator's position in the refresh cycle.
type State int32

const (
	Idle State = iota
	Refreshing
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Refresher exchanges a refresh token for a new credential set.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (token.Credentials, error)
}

// TerminalFunc is told when credentials could not be recovered and have been purged.
type TerminalFunc func(ctx context.Context, err error)

type Coordinator struct {
	store     token.Store
	refresher Refresher
	timeout   time.Duration
	logger    zerolog.Logger
	metrics   *metrics.Refresh

	group singleflight.Group
	state atomic.Int32

	mu sync.RWMutex
	// generation increases after every finished refresh; a request compares it with the value
	// it saw when sent to decide whether a refresh already ran on its behalf.
	generation uint64
	lastErr    error
	onTerminal []TerminalFunc
}

type Option func(*Coordinator)

// WithTimeout bounds each refresh call. A timeout counts as a refresh failure.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Refresh) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func New(store token.Store, refresher Refresher, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		refresher: refresher,
		timeout:   defaultTimeout,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnTerminal registers fn to run once per failed refresh, after the store has been purged.
func (c *Coordinator) OnTerminal(fn TerminalFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTerminal = append(c.onTerminal, fn)
}

func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Middleware intercepts 401 responses. It must sit outside the bearer middleware so the
// resubmission picks up the refreshed access token.
func (c *Coordinator) Middleware() apiclient.Middleware {
	return func(next apiclient.Handler) apiclient.Handler {
		return func(ctx context.Context, req apiclient.Request) (*apiclient.Response, error) {
			sentAt, _ := c.outcome()

			resp, err := next(ctx, req)
			if err != nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}
			if req.Retried() {
				// Loop prevention: a resubmission's 401 goes straight back to the caller
				c.logger.Debug().Str("path", req.Path).Msg("authorization failed after refresh; not retrying")
				return resp, nil
			}

			if err := c.awaitRefresh(ctx, sentAt); err != nil {
				return nil, err
			}

			c.metrics.ObserveResubmission()
			return next(ctx, req.Retry())
		}
	}
}

// outcome returns the current refresh generation and the error of the refresh that produced it.
func (c *Coordinator) outcome() (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation, c.lastErr
}

func (c *Coordinator) finish(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.lastErr = err
}

// awaitRefresh returns once a refresh that finished after generation sentAt has succeeded or failed.
// Requests that learn of a failed refresh late get the same terminal error without a second purge.
func (c *Coordinator) awaitRefresh(ctx context.Context, sentAt uint64) error {
	if gen, lastErr := c.outcome(); gen != sentAt {
		c.metrics.ObserveOutcome(metrics.OutcomeSkipped)
		return lastErr
	}

	// The refresh runs detached from ctx: a caller that gives up must not abort the refresh
	// other requests are waiting on.
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(refreshKey, func() (interface{}, error) {
		if gen, lastErr := c.outcome(); gen != sentAt {
			c.metrics.ObserveOutcome(metrics.OutcomeSkipped)
			return nil, lastErr
		}
		err := c.refresh(detached)
		c.finish(err)
		return nil, err
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.metrics.ObserveCoalesced()
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) refresh(ctx context.Context) error {
	c.state.Store(int32(Refreshing))
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	refreshToken, err := c.store.GetRefreshToken(ctx)
	if err != nil || refreshToken == "" {
		if err != nil && !apperrors.Is(err, token.ErrNotFound) {
			c.logger.Warn().Err(err).Msg("reading refresh token failed")
		}
		c.metrics.ObserveOutcome(metrics.OutcomeNoRefreshToken)
		return c.fail(ctx, "", apperrors.ErrNoRefreshToken)
	}

	creds, err := c.refresher.Refresh(ctx, refreshToken)
	if err == nil {
		err = creds.Validate()
	}
	if err != nil {
		c.metrics.ObserveOutcome(metrics.OutcomeFailure)
		return c.fail(ctx, refreshToken, fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, err))
	}

	if err := c.store.SetCredentials(ctx, creds.Stamp()); err != nil {
		c.metrics.ObserveOutcome(metrics.OutcomeFailure)
		return c.fail(ctx, refreshToken, fmt.Errorf("%w: persist credentials: %w", apperrors.ErrRefreshFailed, err))
	}

	c.state.Store(int32(Idle))
	c.metrics.ObserveOutcome(metrics.OutcomeSuccess)
	c.logger.Debug().Msg("access token refreshed")
	return nil
}

// fail purges the store, tells the session owner, and returns the terminal error for every waiter.
// used is the refresh token this cycle read. If the store now holds a different one, a newer sign-in
// replaced the credentials while the refresh was in flight: they are kept and waiters resubmit with them.
func (c *Coordinator) fail(ctx context.Context, used string, cause error) error {
	// A fresh context: the purge must run even if the refresh timed out
	purgeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if current, err := c.store.GetRefreshToken(purgeCtx); err == nil && current != "" && current != used {
		c.state.Store(int32(Idle))
		c.logger.Info().Err(cause).Msg("token refresh failed after newer credentials were stored; keeping them")
		return nil
	}

	c.state.Store(int32(Failed))
	c.logger.Warn().Err(cause).Msg("token refresh failed; ending session")

	if err := c.store.ClearCredentials(purgeCtx); err != nil {
		c.logger.Error().Err(err).Msg("failed to clear credentials after refresh failure")
	}

	terminalErr := fmt.Errorf("%w: %w", apperrors.ErrSessionExpired, cause)

	c.mu.RLock()
	hooks := append([]TerminalFunc(nil), c.onTerminal...)
	c.mu.RUnlock()
	for _, fn := range hooks {
		fn(purgeCtx, terminalErr)
	}
	c.metrics.ObserveTerminated()

	return terminalErr
}
