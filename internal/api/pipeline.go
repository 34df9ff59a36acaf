package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/j-veylop/stockscanner-tui/internal/events"
	"github.com/j-veylop/stockscanner-tui/internal/logger"
)

// call runs one API operation: retry policy around the queue around a
// single pass through the request pipeline. The returned error is sanitized.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	err := c.retry.Do(ctx, method, func(ctx context.Context) error {
		return c.queue.Add(ctx, func(ctx context.Context) error {
			return c.roundTrip(ctx, method, path, body, out)
		})
	})
	return Sanitize(err, c.IsProduction())
}

// fetch is the typed form of call.
func fetch[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var out T
	err := c.call(ctx, method, path, body, &out)
	return out, err
}

// roundTrip is one pass through the request pipeline and response interceptor.
func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) error {
	req, meta, err := c.prepare(ctx, method, path, body)
	if err != nil {
		if meta != nil {
			c.publishError(meta, err)
		}
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrNetwork, err)
		c.publishError(meta, err)
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	return c.handleResponse(meta, resp, out)
}

// requestMeta is what the response interceptor needs about the request.
type requestMeta struct {
	start     time.Time
	requestID string
	method    string
	url       string
	signOut   bool
}

type signOutKey struct{}

// withSignOut marks ctx as a user-requested sign-out. Such requests skip
// token refresh and never trigger a forced sign-out.
func withSignOut(ctx context.Context) context.Context {
	return context.WithValue(ctx, signOutKey{}, true)
}

func isSignOut(ctx context.Context) bool {
	v, _ := ctx.Value(signOutKey{}).(bool)
	return v
}

// prepare runs the request interceptor steps in order. It returns meta
// once the request is far enough along to report an error event.
func (c *Client) prepare(ctx context.Context, method, path string, body any) (*http.Request, *requestMeta, error) {
	// 1. Rate limit
	if !c.limiter.CanMakeRequest() {
		wait := c.limiter.ResetTime().Sub(c.now())
		logger.Warn("client rate limit reached", "method", method, "path", path, "retry_in", wait)
		return nil, nil, &RateLimitError{RetryAfter: wait}
	}

	// 2. Session validity, only while signed in
	token, err := c.creds.Token()
	if err != nil {
		logger.Warn("stored token unreadable", "error", err)
	}
	if token != "" && !c.session.IsSessionValid() {
		c.teardown(ReasonSessionExpired)
		return nil, nil, ErrSessionExpired
	}

	meta := &requestMeta{
		requestID: uuid.NewString(),
		method:    method,
		url:       path,
		signOut:   isSignOut(ctx),
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, meta, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reader)
	if err != nil {
		return nil, meta, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// 3. CSRF, best effort
	if csrf := c.csrfToken(); csrf != "" {
		req.Header.Set(csrfHeaderName, csrf)
	}

	// 4. Bearer token, refreshed when close to expiry. A sign-out sends the
	// stored token as is.
	if token != "" {
		bearer := token
		if !meta.signOut {
			if bearer, err = c.coordinator.Token(ctx); err != nil {
				return nil, meta, fmt.Errorf("%w: %w", ErrTokenRefresh, err)
			}
		}
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
	}

	// 5. Static client headers
	c.setClientHeaders(req)
	req.Header.Set("X-Request-ID", meta.requestID)

	// 6. Start event
	meta.start = c.now()
	c.bus.Publish(events.Event{
		Type:      events.Start,
		Time:      meta.start,
		RequestID: meta.requestID,
		Method:    method,
		URL:       path,
	})

	// 7. Activity
	c.session.UpdateActivity()

	return req, meta, nil
}

func (c *Client) setClientHeaders(req *http.Request) {
	req.Header.Set("X-Client-Version", c.clientVersion)
	req.Header.Set("X-Environment", c.environment)
	req.Header.Set("User-Agent", "stockscanner-tui/"+c.clientVersion)
}

func (c *Client) publishError(meta *requestMeta, err error) {
	ev := events.Event{
		Type:      events.Error,
		RequestID: meta.requestID,
		Method:    meta.method,
		URL:       meta.url,
		Err:       err,
	}
	if !meta.start.IsZero() {
		ev.Duration = c.now().Sub(meta.start)
	}
	c.bus.Publish(ev)
}
