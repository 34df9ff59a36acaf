package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// signedToken returns an HS256 JWT expiring at exp. A zero exp omits the claim.
func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "trader"}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	got, ok := ExpiresAt(signedToken(t, exp))
	if !ok || !got.Equal(exp) {
		t.Errorf("ExpiresAt() = %v, %v; want %v, true", got, ok, exp)
	}

	// Already expired tokens still decode
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	if got, ok := ExpiresAt(signedToken(t, past)); !ok || !got.Equal(past) {
		t.Errorf("ExpiresAt(expired) = %v, %v", got, ok)
	}
}

func TestExpiresAt_NoExpiry(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"Empty", ""},
		{"Opaque", "9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b"},
		{"Garbage", "a.b.c"},
		{"NoExpClaim", signedToken(t, time.Time{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := ExpiresAt(tt.token); ok {
				t.Errorf("ExpiresAt(%q) should report no expiry", tt.token)
			}
		})
	}
}

func TestNeedsRefresh(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"FarFuture", signedToken(t, now.Add(time.Hour)), false},
		{"InsideThreshold", signedToken(t, now.Add(2*time.Minute)), true},
		{"Expired", signedToken(t, now.Add(-time.Minute)), true},
		{"Opaque", "opaque-token", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsRefresh(tt.token, DefaultRefreshThreshold, now); got != tt.want {
				t.Errorf("NeedsRefresh() = %v, want %v", got, tt.want)
			}
		})
	}
}
