// Package auth holds credential storage, token refresh coordination and the
// authentication state machine.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DefaultRefreshThreshold is the remaining lifetime below which a token is refreshed.
const DefaultRefreshThreshold = 5 * time.Minute

// ExpiresAt decodes the exp claim of a JWT without verifying its signature.
// The boolean is false for opaque tokens and tokens without exp.
func ExpiresAt(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// NeedsRefresh reports whether token expires within threshold of now.
// Tokens without a readable expiry never need a proactive refresh.
func NeedsRefresh(token string, threshold time.Duration, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	if !ok {
		return false
	}
	return exp.Sub(now) < threshold
}
