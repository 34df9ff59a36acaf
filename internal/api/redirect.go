package api

import (
	"net/url"
	"sync"
)

// Sign-in redirect reasons.
const (
	ReasonSessionExpired = "session_expired"
	ReasonAuthRequired   = "auth_required"
	ReasonTokenExpired   = "token_expired"
)

// SignInPath is where forced sign-outs send the user.
const SignInPath = "/signin"

// Navigator sends the user to the sign-in surface.
type Navigator interface {
	RedirectToSignIn(reason string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(reason string)

// RedirectToSignIn calls f.
func (f NavigatorFunc) RedirectToSignIn(reason string) {
	f(reason)
}

// SignInTarget builds the sign-in location carrying reason as a flag,
// for example /signin?auth_required=true.
func SignInTarget(reason string) string {
	if reason == "" {
		return SignInPath
	}
	q := url.Values{}
	q.Set(reason, "true")
	return SignInPath + "?" + q.Encode()
}

// RedirectRecorder is a Navigator that remembers redirects.
type RedirectRecorder struct {
	mu     sync.Mutex
	last   string
	reason string
	count  int
}

// RedirectToSignIn records the redirect.
func (r *RedirectRecorder) RedirectToSignIn(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = SignInTarget(reason)
	r.reason = reason
	r.count++
}

// Last returns the most recent redirect target.
func (r *RedirectRecorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Reason returns the most recent redirect reason.
func (r *RedirectRecorder) Reason() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason
}

// Count returns how many redirects happened.
func (r *RedirectRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// ReasonMessage returns the explanation shown on the sign-in surface.
func ReasonMessage(reason string) string {
	switch reason {
	case ReasonSessionExpired:
		return "Your session expired after a period of inactivity. Please sign in again."
	case ReasonAuthRequired:
		return "The server rejected your credentials. Please sign in again."
	case ReasonTokenExpired:
		return "Your sign-in could not be renewed. Please sign in again."
	default:
		return "Please sign in."
	}
}
