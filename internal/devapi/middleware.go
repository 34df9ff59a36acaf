package devapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type ctxKey int

const claimsKey ctxKey = iota

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
		h.Set("Content-Security-Policy", "default-src 'none'")
		next.ServeHTTP(w, r)
	})
}

// rateLimitHeaders reports the remaining requests in a fixed one-minute
// window and rejects requests once it is used up.
func (s *Server) rateLimitHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		now := s.now()
		if now.Sub(s.windowAt) >= time.Minute {
			s.windowAt = now
			s.windowUsed = 0
		}
		s.windowUsed++
		remaining := s.rateLimit - s.windowUsed
		reset := s.windowAt.Add(time.Minute).Sub(now)
		s.mu.Unlock()

		if remaining < 0 {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.Itoa(int(reset.Seconds())+1))
			writeError(w, http.StatusTooManyRequests, "Request was throttled.")
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		next.ServeHTTP(w, r)
	})
}

// csrf issues the csrftoken cookie and, for unsafe methods without a bearer
// token, requires the X-CSRFToken header to match it.
func (s *Server) csrf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("csrftoken")
		if err != nil || cookie.Value == "" {
			http.SetCookie(w, &http.Cookie{
				Name:     "csrftoken",
				Value:    newCSRFToken(),
				Path:     "/",
				SameSite: http.SameSiteLaxMode,
			})
			cookie = nil
		}

		switch {
		case r.Method == http.MethodGet, r.Method == http.MethodHead, r.Method == http.MethodOptions:
		case strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "):
		default:
			header := r.Header.Get("X-CSRFToken")
			if cookie == nil || header == "" ||
				subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
				writeError(w, http.StatusForbidden, "CSRF verification failed.")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) delay(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		d := s.latency
		s.mu.Unlock()
		if d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth validates the bearer token.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		claims, err := s.parseToken(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Given token not valid for any token type.")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	}
}

func claimsFrom(r *http.Request) *tokenClaims {
	c, _ := r.Context().Value(claimsKey).(*tokenClaims)
	return c
}
