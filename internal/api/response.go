package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/j-veylop/stockscanner-tui/internal/events"
	"github.com/j-veylop/stockscanner-tui/internal/logger"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// securityHeaders are expected on every API response.
var securityHeaders = []string{
	"X-Content-Type-Options",
	"X-Frame-Options",
	"Referrer-Policy",
	"Content-Security-Policy",
}

// handleResponse is the response interceptor.
func (c *Client) handleResponse(meta *requestMeta, resp *http.Response, out any) error {
	duration := c.now().Sub(meta.start)

	c.checkSecurityHeaders(meta, resp.Header)

	if duration > c.slowThreshold {
		logger.Warn("slow request", "method", meta.method, "url", meta.url, "duration", duration)
		c.bus.Publish(events.Event{
			Type:      events.Slow,
			RequestID: meta.requestID,
			Method:    meta.method,
			URL:       meta.url,
			Duration:  duration,
			Status:    resp.StatusCode,
		})
	}

	c.bus.Publish(events.Event{
		Type:      events.End,
		RequestID: meta.requestID,
		Method:    meta.method,
		URL:       meta.url,
		Duration:  duration,
		Status:    resp.StatusCode,
	})

	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		if n, err := strconv.Atoi(remaining); err == nil && n < lowRateLimitWarning {
			logger.Warn("server rate limit nearly exhausted", "remaining", n, "url", meta.url)
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if !meta.signOut {
			c.teardown(ReasonAuthRequired)
		}
		return ErrUnauthorized

	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		logger.Warn("server rate limit exceeded", "url", meta.url, "retry_after", retryAfter)
		se := newStatusError(meta, resp)
		se.RetryAfter = retryAfter
		return se

	case resp.StatusCode >= 400:
		return newStatusError(meta, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", ErrNetwork, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", meta.url, err)
	}
	return nil
}

func (c *Client) checkSecurityHeaders(meta *requestMeta, h http.Header) {
	var missing []string
	for _, name := range securityHeaders {
		if h.Get(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		logger.Debug("response missing security headers", "url", meta.url, "missing", missing)
	}
}

func newStatusError(meta *requestMeta, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Method:  meta.method,
		URL:     meta.url,
		Status:  resp.StatusCode,
		Body:    string(body),
		Message: serverMessage(body),
	}
}

// serverMessage extracts a short user-facing message from a JSON error body.
func serverMessage(body []byte) string {
	var payload struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, s := range []string{payload.Detail, payload.Error, payload.Message} {
		if s != "" && len(s) <= 200 {
			return s
		}
	}
	return ""
}
