// Package api is the HTTP client for the Stock Scanner backend. Every call
// runs through the same pipeline: rate limiting, session validation, CSRF
// and bearer headers, token refresh, network events and error sanitization.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/j-veylop/stockscanner-tui/internal/auth"
	"github.com/j-veylop/stockscanner-tui/internal/events"
	"github.com/j-veylop/stockscanner-tui/internal/logger"
	"github.com/j-veylop/stockscanner-tui/internal/queue"
	"github.com/j-veylop/stockscanner-tui/internal/ratelimit"
	"github.com/j-veylop/stockscanner-tui/internal/session"
	"github.com/j-veylop/stockscanner-tui/internal/version"
)

// Defaults for the client.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultSlowThreshold = time.Second
	lowRateLimitWarning  = 10
	csrfCookieName       = "csrftoken"
	csrfHeaderName       = "X-CSRFToken"
)

// Storage keys for cached client state.
const (
	KeyWatchlist = "watchlist"
	KeyPortfolio = "portfolio"
)

// Store is the persistence used by the client. storage.Storage satisfies it.
type Store interface {
	auth.Store
}

// Options configures a Client. BaseURL and Store are required.
type Options struct {
	Transport        http.RoundTripper
	Store            Store
	Bus              *events.Bus
	Navigator        Navigator
	Session          *session.Manager
	Limiter          *ratelimit.Limiter
	Queue            *queue.Queue
	Retry            *RetryPolicy
	BaseURL          string
	Environment      string
	ClientVersion    string
	Timeout          time.Duration
	RefreshThreshold time.Duration
	SlowThreshold    time.Duration
}

// Client talks to one API base URL.
type Client struct {
	baseURL       *url.URL
	http          *http.Client
	jar           http.CookieJar
	store         Store
	creds         *auth.Credentials
	coordinator   *auth.Coordinator
	state         *auth.StateMachine
	session       *session.Manager
	limiter       *ratelimit.Limiter
	queue         *queue.Queue
	bus           *events.Bus
	nav           Navigator
	now           func() time.Time
	environment   string
	clientVersion string
	retry         RetryPolicy
	slowThreshold time.Duration
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", opts.BaseURL)
	}
	if opts.Store == nil {
		return nil, errors.New("api client requires a store")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL:       base,
		http:          &http.Client{Timeout: timeout, Jar: jar, Transport: opts.Transport},
		jar:           jar,
		store:         opts.Store,
		creds:         auth.NewCredentials(opts.Store),
		session:       opts.Session,
		limiter:       opts.Limiter,
		queue:         opts.Queue,
		bus:           opts.Bus,
		nav:           opts.Navigator,
		now:           time.Now,
		environment:   opts.Environment,
		clientVersion: opts.ClientVersion,
		retry:         DefaultRetryPolicy(),
		slowThreshold: opts.SlowThreshold,
	}

	if c.session == nil {
		c.session = session.NewManager(0, session.WithStore(opts.Store))
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(ratelimit.DefaultMaxRequests, ratelimit.DefaultWindow)
	}
	if c.queue == nil {
		c.queue = queue.New(queue.DefaultConcurrency)
	}
	if c.bus == nil {
		c.bus = events.NewBus()
	}
	if c.nav == nil {
		c.nav = NavigatorFunc(func(reason string) {
			logger.Info("sign-in required", "target", SignInTarget(reason))
		})
	}
	if opts.Retry != nil {
		c.retry = *opts.Retry
	}
	if c.environment == "" {
		c.environment = "development"
	}
	if c.clientVersion == "" {
		c.clientVersion = version.ClientVersion()
	}
	if c.slowThreshold <= 0 {
		c.slowThreshold = DefaultSlowThreshold
	}

	c.coordinator = auth.NewCoordinator(c.creds, c.RefreshToken,
		auth.WithThreshold(opts.RefreshThreshold),
		auth.WithFailureHook(func(error) { c.teardown(ReasonTokenExpired) }),
		auth.WithSuccessHook(func(string) { c.state.Refreshed() }),
	)

	token, err := c.creds.Token()
	if err != nil {
		logger.Warn("stored token unreadable", "error", err)
	}
	c.state = auth.NewStateMachine(token != "")

	return c, nil
}

// Bus returns the network event bus.
func (c *Client) Bus() *events.Bus {
	return c.bus
}

// Session returns the session manager.
func (c *Client) Session() *session.Manager {
	return c.session
}

// Limiter returns the client-side rate limiter.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// Queue returns the request queue.
func (c *Client) Queue() *queue.Queue {
	return c.queue
}

// State returns the current authentication state.
func (c *Client) State() auth.State {
	return c.state.State()
}

// OnStateChange registers a callback for authentication state transitions.
func (c *Client) OnStateChange(fn func(from, to auth.State)) {
	c.state.OnChange(fn)
}

// Coordinator returns the token refresh coordinator.
func (c *Client) Coordinator() *auth.Coordinator {
	return c.coordinator
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// IsProduction reports whether internal error detail is suppressed.
func (c *Client) IsProduction() bool {
	return c.environment == "production"
}

// Resync re-reads stored credentials after another process changed them.
func (c *Client) Resync() {
	c.session.Reload()
	token, _ := c.creds.Token()
	c.state.Restore(token != "")
}

// resolve joins an absolute API path onto the base URL.
func (c *Client) resolve(path string) string {
	return c.baseURL.String() + path
}

// csrfToken returns the csrftoken cookie value for the API origin.
func (c *Client) csrfToken() string {
	for _, ck := range c.jar.Cookies(c.baseURL) {
		if ck.Name == csrfCookieName {
			return ck.Value
		}
	}
	return ""
}

// teardown clears local credentials and, when this call is the one that
// moved the client out of Authenticated, redirects to sign-in once.
func (c *Client) teardown(reason string) {
	expired := c.state.Expire()

	c.clearLocal()

	if !expired {
		logger.Debug("teardown skipped redirect; not authenticated", "reason", reason)
		return
	}

	logger.Warn("signing out", "reason", reason)
	c.state.Reset()
	c.nav.RedirectToSignIn(reason)
}

// signOutLocal is a user-initiated sign-out: teardown without a redirect.
func (c *Client) signOutLocal() {
	if c.state.Expire() {
		c.state.Reset()
	}
	c.clearLocal()
}

func (c *Client) clearLocal() {
	if err := c.creds.Clear(); err != nil {
		logger.Error("failed to clear credentials", "error", err)
	}
	for _, key := range []string{KeyWatchlist, KeyPortfolio} {
		if err := c.store.Remove(key); err != nil {
			logger.Error("failed to clear cached data", "key", key, "error", err)
		}
	}
	c.session.EndSession()
}
