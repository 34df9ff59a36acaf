package auth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/j-veylop/stockscanner-tui/internal/logger"
)

// ErrRefreshFailed wraps every failed token refresh.
var ErrRefreshFailed = errors.New("token refresh failed")

// Refresher exchanges the current token for a new one.
type Refresher func(ctx context.Context, token string) (string, error)

// Coordinator supplies bearer tokens, refreshing them shortly before they
// expire. Concurrent callers that need a refresh share one refresh call and
// receive the same result.
type Coordinator struct {
	group     singleflight.Group
	creds     *Credentials
	refresh   Refresher
	onFailure func(error)
	onSuccess func(string)
	now       func() time.Time
	threshold time.Duration
	calls     atomic.Int64
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithThreshold sets the remaining lifetime that triggers a refresh.
func WithThreshold(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.threshold = d
		}
	}
}

// WithFailureHook runs fn once per failed refresh, before waiters see the error.
func WithFailureHook(fn func(error)) CoordinatorOption {
	return func(c *Coordinator) { c.onFailure = fn }
}

// WithSuccessHook runs fn once per successful refresh with the new token.
func WithSuccessHook(fn func(string)) CoordinatorOption {
	return func(c *Coordinator) { c.onSuccess = fn }
}

// WithCoordinatorClock overrides the time source.
func WithCoordinatorClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a Coordinator over stored credentials.
func NewCoordinator(creds *Credentials, refresh Refresher, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		creds:     creds,
		refresh:   refresh,
		threshold: DefaultRefreshThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the token to send, refreshing it first when it is close to
// expiry. It returns "" with a nil error when signed out.
func (c *Coordinator) Token(ctx context.Context) (string, error) {
	token, err := c.creds.Token()
	if err != nil || token == "" {
		return "", err
	}
	if !NeedsRefresh(token, c.threshold, c.now()) {
		return token, nil
	}
	return c.join(ctx, false)
}

// Refresh forces a refresh, joining one already in flight.
func (c *Coordinator) Refresh(ctx context.Context) (string, error) {
	return c.join(ctx, true)
}

func (c *Coordinator) join(ctx context.Context, force bool) (string, error) {
	// The shared call outlives any single caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)

	v, err, shared := c.group.Do("refresh", func() (any, error) {
		return c.doRefresh(flightCtx, force)
	})
	if shared {
		logger.Debug("joined in-flight token refresh")
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// RefreshCalls returns how many refresh calls have been issued.
func (c *Coordinator) RefreshCalls() int64 {
	return c.calls.Load()
}

func (c *Coordinator) doRefresh(ctx context.Context, force bool) (string, error) {
	current, err := c.creds.Token()
	if err != nil {
		return "", c.fail(err)
	}
	if current == "" {
		return "", c.fail(errors.New("no token to refresh"))
	}
	// A flight that just finished may already have replaced the token.
	if !force && !NeedsRefresh(current, c.threshold, c.now()) {
		return current, nil
	}

	c.calls.Add(1)
	logger.Debug("refreshing access token")

	next, err := c.refresh(ctx, current)
	if err != nil {
		return "", c.fail(err)
	}
	if next == "" {
		return "", c.fail(errors.New("empty token in refresh response"))
	}
	if err := c.creds.SaveToken(next); err != nil {
		return "", c.fail(err)
	}

	if c.onSuccess != nil {
		c.onSuccess(next)
	}
	return next, nil
}

func (c *Coordinator) fail(cause error) error {
	err := fmt.Errorf("%w: %w", ErrRefreshFailed, cause)
	logger.Warn("token refresh failed", "error", cause)
	if c.onFailure != nil {
		c.onFailure(err)
	}
	return err
}
