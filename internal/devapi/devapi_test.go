package devapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/j-veylop/stockscanner-tui/internal/api"
	"github.com/j-veylop/stockscanner-tui/internal/auth"
	"github.com/j-veylop/stockscanner-tui/internal/devapi"
	"github.com/j-veylop/stockscanner-tui/internal/models"
	"github.com/j-veylop/stockscanner-tui/internal/storage"
)

type fixture struct {
	server   *devapi.Server
	http     *httptest.Server
	client   *api.Client
	store    *storage.Storage
	redirect *api.RedirectRecorder
}

func newFixture(t *testing.T, cfg devapi.Config) *fixture {
	t.Helper()

	srv, err := devapi.New(cfg)
	if err != nil {
		t.Fatalf("devapi.New failed: %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	store, err := storage.New(storage.NewMemoryBackend(), "devapi-test")
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}

	rec := &api.RedirectRecorder{}
	noRetry := api.NoRetry()
	client, err := api.New(api.Options{
		BaseURL:   ts.URL,
		Store:     store,
		Navigator: rec,
		Retry:     &noRetry,
	})
	if err != nil {
		t.Fatalf("api.New failed: %v", err)
	}

	return &fixture{server: srv, http: ts, client: client, store: store, redirect: rec}
}

func TestLoginWatchlistLogout(t *testing.T) {
	f := newFixture(t, devapi.Config{})
	ctx := context.Background()

	user, err := f.client.Login(ctx, "demo", "demo1234")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.Username != "demo" {
		t.Errorf("Username = %q, want demo", user.Username)
	}
	if f.client.State() != auth.Authenticated {
		t.Errorf("State = %v, want Authenticated", f.client.State())
	}

	item, err := f.client.AddToWatchlist(ctx, models.WatchlistAddRequest{Ticker: "nvda", Notes: "earnings"})
	if err != nil {
		t.Fatalf("AddToWatchlist failed: %v", err)
	}
	if item.Ticker != "NVDA" || item.ID == "" {
		t.Errorf("item = %+v, want NVDA with an id", item)
	}

	_, err = f.client.AddToWatchlist(ctx, models.WatchlistAddRequest{Ticker: "NVDA"})
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
		t.Errorf("duplicate add error = %v, want 409", err)
	}

	items, err := f.client.Watchlist(ctx)
	if err != nil {
		t.Fatalf("Watchlist failed: %v", err)
	}
	if len(items) != 1 || items[0].CurrentPrice == 0 {
		t.Fatalf("Watchlist = %+v, want one priced item", items)
	}

	if err := f.client.RemoveFromWatchlist(ctx, item.ID); err != nil {
		t.Fatalf("RemoveFromWatchlist failed: %v", err)
	}
	if items, _ := f.client.Watchlist(ctx); len(items) != 0 {
		t.Errorf("Watchlist after remove = %+v, want empty", items)
	}

	token, _ := auth.NewCredentials(f.store).Token()
	if err := f.client.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if f.client.IsAuthenticated() {
		t.Error("client still authenticated after logout")
	}

	// The old token is revoked server side.
	req, _ := http.NewRequest(http.MethodGet, f.http.URL+"/api/watchlist/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("revoked token status = %d, want 401", resp.StatusCode)
	}
}

func TestLogin_InvalidPassword(t *testing.T) {
	f := newFixture(t, devapi.Config{})

	_, err := f.client.Login(context.Background(), "demo", "wrong")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Login error = %v, want *api.Error", err)
	}
	if apiErr.Message != "Invalid username or password." {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if f.client.IsAuthenticated() {
		t.Error("client authenticated after failed login")
	}
}

func TestCSRF_RequiredWithoutBearer(t *testing.T) {
	f := newFixture(t, devapi.Config{})

	body := strings.NewReader(`{"username":"demo","password":"demo1234"}`)
	resp, err := http.Post(f.http.URL+"/api/auth/login/", "application/json", body)
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == "csrftoken" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("response did not set the csrftoken cookie")
	}
}

func TestSecurityAndRateLimitHeaders(t *testing.T) {
	f := newFixture(t, devapi.Config{RateLimit: 2})

	get := func() *http.Response {
		resp, err := http.Get(f.http.URL + "/api/health/")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		resp.Body.Close()
		return resp
	}

	first := get()
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Referrer-Policy", "Content-Security-Policy"} {
		if first.Header.Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
	if got := first.Header.Get("X-RateLimit-Remaining"); got != "1" {
		t.Errorf("X-RateLimit-Remaining = %q, want 1", got)
	}

	get()
	third := get()
	if third.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", third.StatusCode)
	}
	if third.Header.Get("Retry-After") == "" {
		t.Error("429 without Retry-After")
	}
}

func TestExpiredToken(t *testing.T) {
	f := newFixture(t, devapi.Config{})

	token, err := f.server.IssueToken("demo", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, f.http.URL+"/api/portfolio/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestNearExpiryTokenIsRefreshed(t *testing.T) {
	f := newFixture(t, devapi.Config{})

	token, err := f.server.IssueToken("demo", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	creds := auth.NewCredentials(f.store)
	if err := creds.Save(token, &models.User{ID: 1, Username: "demo"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	f.client.Session().StartSession()
	f.client.Resync()

	if _, err := f.client.Portfolio(context.Background()); err != nil {
		t.Fatalf("Portfolio failed: %v", err)
	}

	fresh, _ := creds.Token()
	if fresh == token {
		t.Fatal("token was not refreshed")
	}
	exp, ok := auth.ExpiresAt(fresh)
	if !ok || time.Until(exp) < 30*time.Minute {
		t.Errorf("refreshed expiry = %v, want about an hour out", exp)
	}
	if f.client.Coordinator().RefreshCalls() != 1 {
		t.Errorf("RefreshCalls = %d, want 1", f.client.Coordinator().RefreshCalls())
	}
}

func TestStocksQuery(t *testing.T) {
	f := newFixture(t, devapi.Config{})
	ctx := context.Background()

	tests := []struct {
		name      string
		query     models.StockQuery
		wantCount int
		wantFirst string
		wantNext  bool
	}{
		{"All", models.StockQuery{}, 10, "AAPL", false},
		{"Search", models.StockQuery{Search: "micro"}, 2, "AMD", false},
		{"TopVolume", models.StockQuery{Sort: "-volume", Limit: 3}, 10, "NVDA", true},
		{"Losers", models.StockQuery{Sort: "change", Limit: 1}, 10, "AMD", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.client.Stocks(ctx, tt.query)
			if err != nil {
				t.Fatalf("Stocks failed: %v", err)
			}
			if page.Count != tt.wantCount {
				t.Errorf("Count = %d, want %d", page.Count, tt.wantCount)
			}
			if len(page.Results) == 0 || page.Results[0].Ticker != tt.wantFirst {
				t.Errorf("first = %+v, want %s", page.Results, tt.wantFirst)
			}
			if (page.Next != "") != tt.wantNext {
				t.Errorf("Next = %q, wantNext %v", page.Next, tt.wantNext)
			}
		})
	}

	_, err := f.client.Stock(ctx, "NOPE")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("Stock(NOPE) error = %v, want 404", err)
	}
}

func TestMarketStats(t *testing.T) {
	f := newFixture(t, devapi.Config{})

	stats, err := f.client.MarketStats(context.Background())
	if err != nil {
		t.Fatalf("MarketStats failed: %v", err)
	}
	if stats.TotalStocks != 10 || stats.Gainers != 5 || stats.Losers != 4 || stats.Unchanged != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(stats.TopGainers) != 3 || stats.TopGainers[0].Ticker != "TSLA" {
		t.Errorf("TopGainers = %+v, want TSLA first", stats.TopGainers)
	}
	if len(stats.TopLosers) != 3 || stats.TopLosers[0].Ticker != "AMD" {
		t.Errorf("TopLosers = %+v, want AMD first", stats.TopLosers)
	}
}

func TestRevenueSummary_PremiumOnly(t *testing.T) {
	tests := []struct {
		user, password string
		wantStatus     int
	}{
		{"demo", "demo1234", http.StatusForbidden},
		{"premium", "premium1234", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			f := newFixture(t, devapi.Config{})
			ctx := context.Background()
			if _, err := f.client.Login(ctx, tt.user, tt.password); err != nil {
				t.Fatalf("Login failed: %v", err)
			}

			summary, err := f.client.RevenueSummary(ctx)
			if tt.wantStatus == http.StatusOK {
				if err != nil {
					t.Fatalf("RevenueSummary failed: %v", err)
				}
				if summary.ActiveMembers != 1 {
					t.Errorf("ActiveMembers = %d, want 1", summary.ActiveMembers)
				}
				return
			}
			var apiErr *api.Error
			if !errors.As(err, &apiErr) || apiErr.Status != tt.wantStatus {
				t.Errorf("error = %v, want status %d", err, tt.wantStatus)
			}
		})
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	f := newFixture(t, devapi.Config{})

	resp, err := http.Get(f.http.URL + "/api/nothing/")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound || body["detail"] == "" {
		t.Errorf("status = %d body = %v", resp.StatusCode, body)
	}
}
