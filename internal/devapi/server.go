// Package devapi is an in-memory stand-in for the Stock Scanner REST
// backend, used for offline development and end-to-end tests.
package devapi

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/j-veylop/stockscanner-tui/internal/logger"
	"github.com/j-veylop/stockscanner-tui/internal/models"
)

// Config configures a Server.
type Config struct {
	Secret    []byte
	Users     []DemoUser
	TokenTTL  time.Duration
	Latency   time.Duration
	RateLimit int
}

type account struct {
	hash []byte
	user models.User
}

// Server implements the REST surface in memory.
type Server struct {
	mu         sync.Mutex
	router     *mux.Router
	accounts   map[string]*account
	watchlists map[int64][]models.WatchlistItem
	portfolios map[int64]models.Portfolio
	revoked    map[string]time.Time
	now        func() time.Time
	stocks     []models.Stock
	secret     []byte
	windowAt   time.Time
	tokenTTL   time.Duration
	latency    time.Duration
	rateLimit  int
	windowUsed int
}

// New creates a Server seeded with demo data.
func New(cfg Config) (*Server, error) {
	secret := cfg.Secret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
	}
	users := cfg.Users
	if len(users) == 0 {
		users = DemoUsers
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 120
	}

	now := time.Now().UTC()
	s := &Server{
		accounts:   make(map[string]*account, len(users)),
		watchlists: make(map[int64][]models.WatchlistItem),
		portfolios: make(map[int64]models.Portfolio),
		revoked:    make(map[string]time.Time),
		now:        time.Now,
		stocks:     seedStocks(now),
		secret:     secret,
		tokenTTL:   ttl,
		latency:    cfg.Latency,
		rateLimit:  limit,
	}

	for i, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for %s: %w", u.Username, err)
		}
		id := int64(i + 1)
		membership := "free"
		if u.Premium {
			membership = "premium"
		}
		s.accounts[u.Username] = &account{
			hash: hash,
			user: models.User{
				ID:              id,
				Username:        u.Username,
				Email:           u.Username + "@example.com",
				FirstName:       u.Username,
				MembershipLevel: membership,
				IsPremium:       u.Premium,
				DateJoined:      now.AddDate(-1, 0, 0),
			},
		}
		s.portfolios[id] = seedPortfolio(now)
	}

	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetClock overrides the time source used for token issuing and checks.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetLatency changes the artificial response delay.
func (s *Server) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.securityHeaders, s.rateLimitHeaders, s.csrf, s.delay)

	r.HandleFunc("/api/health/", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/csrf/", s.handleCSRF).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/login/", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/refresh/", s.requireAuth(s.handleRefresh)).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout/", s.requireAuth(s.handleLogout)).Methods(http.MethodPost)

	r.HandleFunc("/api/stocks/", s.handleStocks).Methods(http.MethodGet)
	r.HandleFunc("/api/stocks/{ticker}/", s.handleStock).Methods(http.MethodGet)
	r.HandleFunc("/api/market-stats/", s.handleMarketStats).Methods(http.MethodGet)

	r.HandleFunc("/api/watchlist/", s.requireAuth(s.handleWatchlist)).Methods(http.MethodGet)
	r.HandleFunc("/api/watchlist/add/", s.requireAuth(s.handleWatchlistAdd)).Methods(http.MethodPost)
	r.HandleFunc("/api/watchlist/{id}/", s.requireAuth(s.handleWatchlistRemove)).Methods(http.MethodDelete)
	r.HandleFunc("/api/portfolio/", s.requireAuth(s.handlePortfolio)).Methods(http.MethodGet)
	r.HandleFunc("/api/user/profile/", s.requireAuth(s.handleProfile)).Methods(http.MethodGet)

	r.HandleFunc("/revenue/summary/", s.requireAuth(s.handleRevenue)).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found.")
	})
	return r
}

func newCSRFToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (s *Server) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("devapi request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Header.Get("X-Request-ID"),
			"client_version", r.Header.Get("X-Client-Version"),
			"duration", time.Since(start),
		)
	})
}
