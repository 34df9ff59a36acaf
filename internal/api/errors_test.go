package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		sentinel error
	}{
		{"RateLimit", &RateLimitError{RetryAfter: 12 * time.Second}, KindRateLimited, ErrRateLimited},
		{"Session", ErrSessionExpired, KindSessionExpired, ErrSessionExpired},
		{"Unauthorized", ErrUnauthorized, KindUnauthorized, ErrUnauthorized},
		{"Refresh", fmt.Errorf("%w: %w", ErrTokenRefresh, ErrNetwork), KindTokenRefresh, ErrTokenRefresh},
		{"Network", fmt.Errorf("%w: dial tcp 10.0.0.1:443", ErrNetwork), KindNetwork, ErrNetwork},
		{"Canceled", fmt.Errorf("%w: %w", ErrNetwork, context.Canceled), KindCanceled, context.Canceled},
		{"Server", &StatusError{Status: 502, Body: "<html>"}, KindServer, nil},
		{"Unknown", errors.New("panic: nil map at main.go:42"), KindUnknown, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.err, true)
			var e *Error
			if !errors.As(got, &e) {
				t.Fatalf("Sanitize returned %T", got)
			}
			if e.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", e.Kind, tt.wantKind)
			}
			if e.Detail != "" {
				t.Errorf("production Detail = %q, want empty", e.Detail)
			}
			if tt.sentinel != nil && !errors.Is(got, tt.sentinel) {
				t.Errorf("expected errors.Is(%v)", tt.sentinel)
			}
			if strings.Contains(e.Message, "main.go") || strings.Contains(e.Message, "10.0.0.1") {
				t.Errorf("message leaks internals: %q", e.Message)
			}
		})
	}
}

func TestSanitize_DevelopmentDetail(t *testing.T) {
	err := Sanitize(errors.New("internal detail"), false)
	var e *Error
	if !errors.As(err, &e) || e.Detail != "internal detail" {
		t.Errorf("Detail = %q", e.Detail)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	first := Sanitize(ErrUnauthorized, false)
	if Sanitize(first, true) != first {
		t.Error("sanitizing a sanitized error should return it unchanged")
	}
	if Sanitize(nil, true) != nil {
		t.Error("Sanitize(nil) should be nil")
	}
}

func TestRateLimitError_Message(t *testing.T) {
	tests := []struct {
		wait time.Duration
		want string
	}{
		{30 * time.Second, "Rate limit exceeded. Try again in 30s."},
		{1500 * time.Millisecond, "Rate limit exceeded. Try again in 2s."},
		{0, "Rate limit exceeded. Try again in 1s."},
	}
	for _, tt := range tests {
		if got := (&RateLimitError{RetryAfter: tt.wait}).Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		value  string
		want   time.Duration
		wantOK bool
	}{
		{name: "Seconds", value: "30", want: 30 * time.Second, wantOK: true},
		{name: "Padded", value: " 5 ", want: 5 * time.Second, wantOK: true},
		{name: "Date", value: now.Add(90 * time.Second).Format(http.TimeFormat), want: 90 * time.Second, wantOK: true},
		{name: "PastDate", value: "Wed, 21 Oct 2015 07:28:00 GMT", want: 0, wantOK: true},
		{name: "Empty", value: ""},
		{name: "Negative", value: "-3"},
		{name: "Garbage", value: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRetryAfter(tt.value, now)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, %v, want %v, %v", tt.value, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSanitize_RetryAfterMessage(t *testing.T) {
	tests := []struct {
		name       string
		retryAfter string
		want       string
	}{
		{name: "Seconds", retryAfter: "30", want: "Too many requests. Try again in 30s."},
		{name: "PastDate", retryAfter: "Wed, 21 Oct 2015 07:28:00 GMT", want: "Too many requests. Try again in 1s."},
		{name: "Unparseable", retryAfter: "later", want: "Too many requests. Please slow down."},
		{name: "Missing", want: "Too many requests. Please slow down."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Sanitize(&StatusError{Status: http.StatusTooManyRequests, RetryAfter: tt.retryAfter}, true)
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("Sanitize returned %T", err)
			}
			if e.Message != tt.want {
				t.Errorf("Message = %q, want %q", e.Message, tt.want)
			}
		})
	}
}
