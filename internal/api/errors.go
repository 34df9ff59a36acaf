package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for pipeline failures.
var (
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrSessionExpired = errors.New("session expired")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTokenRefresh   = errors.New("token refresh failed")
	ErrNetwork        = errors.New("network error")
)

// RateLimitError is returned before any network call when the client-side
// limiter rejects a request.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Rate limit exceeded. Try again in %ds.", retrySeconds(e.RetryAfter))
}

// Is matches ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

func retrySeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// parseRetryAfter reads a Retry-After header given either as delay seconds
// or as an HTTP date.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	at, err := http.ParseTime(v)
	if err != nil {
		return 0, false
	}
	return max(at.Sub(now), 0), true
}

// StatusError is a non-2xx response other than 401.
type StatusError struct {
	Method     string
	URL        string
	Message    string
	Body       string
	RetryAfter string
	Status     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Kind classifies a sanitized error for display.
type Kind string

// Error kinds.
const (
	KindRateLimited    Kind = "rate_limited"
	KindSessionExpired Kind = "session_expired"
	KindUnauthorized   Kind = "unauthorized"
	KindTokenRefresh   Kind = "token_refresh"
	KindNetwork        Kind = "network"
	KindCanceled       Kind = "canceled"
	KindClient         Kind = "client"
	KindServer         Kind = "server"
	KindUnknown        Kind = "unknown"
)

// Error is the only error type returned by Client operations. Message is
// safe to show to users. Detail carries internal information and is empty
// in production.
type Error struct {
	sentinel error
	Kind     Kind
	Message  string
	Detail   string
	Status   int
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel for the error's kind, never the raw cause.
func (e *Error) Unwrap() error {
	return e.sentinel
}

// Sanitize converts any pipeline error into an *Error. Errors that are
// already sanitized are returned unchanged.
func Sanitize(err error, production bool) error {
	if err == nil {
		return nil
	}

	var already *Error
	if errors.As(err, &already) {
		return already
	}

	out := classify(err)
	if !production {
		out.Detail = err.Error()
	}
	return out
}

func classify(err error) *Error {
	var rl *RateLimitError
	var se *StatusError

	switch {
	case errors.As(err, &rl):
		return &Error{Kind: KindRateLimited, Message: rl.Error(), sentinel: ErrRateLimited}

	case errors.Is(err, ErrSessionExpired):
		return &Error{
			Kind:     KindSessionExpired,
			Message:  "Your session has expired. Please sign in again.",
			Status:   http.StatusUnauthorized,
			sentinel: ErrSessionExpired,
		}

	case errors.Is(err, ErrUnauthorized):
		return &Error{
			Kind:     KindUnauthorized,
			Message:  "Authentication required. Please sign in.",
			Status:   http.StatusUnauthorized,
			sentinel: ErrUnauthorized,
		}

	case errors.Is(err, ErrTokenRefresh):
		return &Error{
			Kind:     KindTokenRefresh,
			Message:  "Your sign-in has expired. Please sign in again.",
			Status:   http.StatusUnauthorized,
			sentinel: ErrTokenRefresh,
		}

	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindCanceled, Message: "The request was cancelled or timed out.", sentinel: context.Canceled}

	case errors.Is(err, ErrNetwork):
		return &Error{
			Kind:     KindNetwork,
			Message:  "Unable to reach the server. Check your connection and try again.",
			sentinel: ErrNetwork,
		}

	case errors.As(err, &se):
		return classifyStatus(se)

	default:
		return &Error{Kind: KindUnknown, Message: "Something went wrong. Please try again."}
	}
}

func classifyStatus(se *StatusError) *Error {
	out := &Error{Status: se.Status}

	switch {
	case se.Status == http.StatusTooManyRequests:
		out.Kind = KindRateLimited
		out.sentinel = ErrRateLimited
		out.Message = "Too many requests. Please slow down."
		if wait, ok := parseRetryAfter(se.RetryAfter, time.Now()); ok {
			out.Message = fmt.Sprintf("Too many requests. Try again in %ds.", retrySeconds(wait))
		}

	case se.Status >= 500:
		out.Kind = KindServer
		out.Message = "The server encountered an error. Please try again later."

	default:
		out.Kind = KindClient
		out.Message = se.Message
		if out.Message == "" {
			out.Message = genericClientMessage(se.Status)
		}
	}
	return out
}

func genericClientMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request was invalid."
	case http.StatusForbidden:
		return "You do not have permission to do that."
	case http.StatusNotFound:
		return "The requested item was not found."
	case http.StatusConflict:
		return "That item already exists."
	default:
		return fmt.Sprintf("Request failed (%d).", status)
	}
}
