package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/j-veylop/stockscanner-tui/internal/auth"
	"github.com/j-veylop/stockscanner-tui/internal/logger"
	"github.com/j-veylop/stockscanner-tui/internal/models"
)

// API paths.
const (
	pathLogin       = "/api/auth/login/"
	pathLogout      = "/api/auth/logout/"
	pathRefresh     = "/api/auth/refresh/"
	pathCSRF        = "/api/auth/csrf/"
	pathHealth      = "/api/health/"
	pathStocks      = "/api/stocks/"
	pathMarketStats = "/api/market-stats/"
	pathWatchlist   = "/api/watchlist/"
	pathWatchAdd    = "/api/watchlist/add/"
	pathPortfolio   = "/api/portfolio/"
	pathProfile     = "/api/user/profile/"
	pathRevenue     = "/revenue/summary/"
)

// Login authenticates, stores the credential and starts a session.
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, &Error{Kind: KindClient, Message: "Username and password are required."}
	}

	// A new sign-in replaces whatever credential is stored.
	if token, _ := c.creds.Token(); token != "" {
		c.signOutLocal()
	}
	c.primeCSRF(ctx)

	resp, err := fetch[models.LoginResponse](ctx, c, http.MethodPost, pathLogin,
		models.LoginRequest{Username: username, Password: password})
	if err != nil {
		var e *Error
		if errors.As(err, &e) && e.Kind == KindUnauthorized {
			e.Message = "Invalid username or password."
		}
		return nil, err
	}
	if resp.Token == "" {
		return nil, Sanitize(errors.New("login response did not include a token"), c.IsProduction())
	}

	if err := c.creds.Save(resp.Token, resp.User); err != nil {
		return nil, Sanitize(err, c.IsProduction())
	}
	c.session.StartSession()
	c.state.Login()

	logger.Info("signed in", "user", resp.User.DisplayName())
	return resp.User, nil
}

// Logout notifies the server, then clears local credentials and the session.
// Local state is cleared even when the server call fails. The server is not
// called once the token has passed its expiry.
func (c *Client) Logout(ctx context.Context) error {
	var serverErr error
	if c.IsAuthenticated() && c.session.IsSessionValid() {
		serverErr = c.call(withSignOut(ctx), http.MethodPost, pathLogout, struct{}{}, nil)
		if serverErr != nil {
			logger.Warn("server logout failed", "error", serverErr)
		}
	}

	c.signOutLocal()

	logger.Info("signed out")
	return serverErr
}

// IsAuthenticated reports whether a token is stored and not past its expiry.
func (c *Client) IsAuthenticated() bool {
	token, err := c.creds.Token()
	if err != nil || token == "" {
		return false
	}
	if exp, ok := auth.ExpiresAt(token); ok && !exp.After(c.now()) {
		return false
	}
	return true
}

// TokenExpiry returns the exp claim of the stored token. ok is false when
// signed out or when the token carries no readable expiry.
func (c *Client) TokenExpiry() (exp time.Time, ok bool) {
	token, err := c.creds.Token()
	if err != nil || token == "" {
		return time.Time{}, false
	}
	return auth.ExpiresAt(token)
}

// CurrentUser returns the stored user record, or nil when signed out.
func (c *Client) CurrentUser() *models.User {
	user, err := c.creds.User()
	if err != nil {
		logger.Warn("stored user unreadable", "error", err)
		return nil
	}
	return user
}

// RefreshToken exchanges token for a new one. It bypasses the request
// pipeline so it can run while a queued request waits on it.
func (c *Client) RefreshToken(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(pathRefresh), bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if csrf := c.csrfToken(); csrf != "" {
		req.Header.Set(csrfHeaderName, csrf)
	}
	c.setClientHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read refresh response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("refresh failed (status %d): %s", resp.StatusCode, string(body))
	}

	var tr models.TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to parse refresh response: %w", err)
	}
	return tr.Token, nil
}

// primeCSRF fetches the csrftoken cookie when the jar has none. Failure is
// not fatal; the server decides whether the header is required.
func (c *Client) primeCSRF(ctx context.Context) {
	if c.csrfToken() != "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(pathCSRF), nil)
	if err != nil {
		return
	}
	c.setClientHeaders(req)
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debug("csrf priming failed", "error", err)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	h, err := fetch[models.HealthStatus](ctx, c, http.MethodGet, pathHealth, nil)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Stocks lists stocks matching q.
func (c *Client) Stocks(ctx context.Context, q models.StockQuery) (*models.StockPage, error) {
	q = q.Normalized()

	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Sort != "" {
		params.Set("ordering", q.Sort)
	}

	page, err := fetch[models.StockPage](ctx, c, http.MethodGet, pathStocks+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Stock returns one stock by ticker.
func (c *Client) Stock(ctx context.Context, ticker string) (*models.Stock, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, &Error{Kind: KindClient, Message: "A ticker is required."}
	}
	s, err := fetch[models.Stock](ctx, c, http.MethodGet, pathStocks+url.PathEscape(ticker)+"/", nil)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// MarketStats returns market-wide statistics.
func (c *Client) MarketStats(ctx context.Context) (*models.MarketStats, error) {
	s, err := fetch[models.MarketStats](ctx, c, http.MethodGet, pathMarketStats, nil)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Watchlist returns the user's watchlist and caches it.
func (c *Client) Watchlist(ctx context.Context) ([]models.WatchlistItem, error) {
	items, err := fetch[[]models.WatchlistItem](ctx, c, http.MethodGet, pathWatchlist, nil)
	if err != nil {
		return nil, err
	}
	c.cache(KeyWatchlist, items)
	return items, nil
}

// CachedWatchlist returns the last fetched watchlist without a network call.
func (c *Client) CachedWatchlist() []models.WatchlistItem {
	var items []models.WatchlistItem
	c.cached(KeyWatchlist, &items)
	return items
}

// AddToWatchlist adds a ticker to the watchlist.
func (c *Client) AddToWatchlist(ctx context.Context, req models.WatchlistAddRequest) (*models.WatchlistItem, error) {
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Ticker == "" {
		return nil, &Error{Kind: KindClient, Message: "A ticker is required."}
	}
	item, err := fetch[models.WatchlistItem](ctx, c, http.MethodPost, pathWatchAdd, req)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveFromWatchlist deletes a watchlist entry by id.
func (c *Client) RemoveFromWatchlist(ctx context.Context, id string) error {
	if id == "" {
		return &Error{Kind: KindClient, Message: "A watchlist id is required."}
	}
	return c.call(ctx, http.MethodDelete, pathWatchlist+url.PathEscape(id)+"/", nil, nil)
}

// Portfolio returns the user's holdings and caches them.
func (c *Client) Portfolio(ctx context.Context) (*models.Portfolio, error) {
	p, err := fetch[models.Portfolio](ctx, c, http.MethodGet, pathPortfolio, nil)
	if err != nil {
		return nil, err
	}
	c.cache(KeyPortfolio, p)
	return &p, nil
}

// CachedPortfolio returns the last fetched portfolio, or nil.
func (c *Client) CachedPortfolio() *models.Portfolio {
	var p models.Portfolio
	if !c.cached(KeyPortfolio, &p) {
		return nil
	}
	return &p
}

// Profile fetches the user profile and refreshes the stored user record.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	u, err := fetch[models.User](ctx, c, http.MethodGet, pathProfile, nil)
	if err != nil {
		return nil, err
	}
	if token, _ := c.creds.Token(); token != "" {
		if err := c.creds.Save(token, &u); err != nil {
			logger.Warn("failed to update stored user", "error", err)
		}
	}
	return &u, nil
}

// RevenueSummary returns the revenue report.
func (c *Client) RevenueSummary(ctx context.Context) (*models.RevenueSummary, error) {
	r, err := fetch[models.RevenueSummary](ctx, c, http.MethodGet, pathRevenue, nil)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) cache(key string, value any) {
	if err := c.store.Set(key, value, true); err != nil {
		logger.Warn("failed to cache response", "key", key, "error", err)
	}
}

func (c *Client) cached(key string, dst any) bool {
	found, err := c.store.Get(key, dst, true)
	if err != nil {
		logger.Debug("cached value unreadable", "key", key, "error", err)
		return false
	}
	return found
}
