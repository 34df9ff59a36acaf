package devapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/j-veylop/stockscanner-tui/internal/logger"
	"github.com/j-veylop/stockscanner-tui/internal/models"
	"github.com/j-veylop/stockscanner-tui/internal/version"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthStatus{Status: "ok", Version: version.ClientVersion()})
}

// handleCSRF exists so clients can obtain the cookie before their first
// unsafe request; the csrf middleware sets it.
func (s *Server) handleCSRF(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"detail": "CSRF cookie set."})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[req.Username]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username or password.")
		return
	}

	token, err := s.issueToken(acc.user.ID, acc.user.Username, s.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not issue token.")
		return
	}

	user := acc.user
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: &user, Message: "Login successful."})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	token, err := s.issueToken(claims.UserID, claims.Username, s.tokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not issue token.")
		return
	}
	s.revoke(claims)
	writeJSON(w, http.StatusOK, models.TokenResponse{Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.revoke(claimsFrom(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	query := models.StockQuery{
		Search: q.Get("search"),
		Sort:   q.Get("ordering"),
		Limit:  limit,
		Offset: offset,
	}.Normalized()

	s.mu.Lock()
	all := append([]models.Stock(nil), s.stocks...)
	s.mu.Unlock()

	filtered := all[:0]
	needle := strings.ToLower(query.Search)
	for _, st := range all {
		if needle == "" ||
			strings.Contains(strings.ToLower(st.Ticker), needle) ||
			strings.Contains(strings.ToLower(st.CompanyName), needle) {
			filtered = append(filtered, st)
		}
	}
	sortStocks(filtered, query.Sort)

	page := models.StockPage{Count: len(filtered)}
	start := min(query.Offset, len(filtered))
	end := min(start+query.Limit, len(filtered))
	page.Results = filtered[start:end]
	if end < len(filtered) {
		next := r.URL.Query()
		next.Set("offset", strconv.Itoa(end))
		page.Next = r.URL.Path + "?" + next.Encode()
	}
	writeJSON(w, http.StatusOK, page)
}

func sortStocks(stocks []models.Stock, ordering string) {
	desc := strings.HasPrefix(ordering, "-")
	key := strings.TrimPrefix(ordering, "-")

	less := func(a, b models.Stock) bool { return a.Ticker < b.Ticker }
	switch key {
	case "volume":
		less = func(a, b models.Stock) bool { return a.Volume < b.Volume }
	case "price", "current_price":
		less = func(a, b models.Stock) bool { return a.CurrentPrice < b.CurrentPrice }
	case "change", "price_change_percent":
		less = func(a, b models.Stock) bool { return a.ChangePercent < b.ChangePercent }
	case "market_cap":
		less = func(a, b models.Stock) bool { return a.MarketCap < b.MarketCap }
	}

	sort.SliceStable(stocks, func(i, j int) bool {
		if desc {
			return less(stocks[j], stocks[i])
		}
		return less(stocks[i], stocks[j])
	})
}

func (s *Server) findStock(ticker string) (models.Stock, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.stocks {
		if strings.EqualFold(st.Ticker, ticker) {
			return st, true
		}
	}
	return models.Stock{}, false
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	st, ok := s.findStock(mux.Vars(r)["ticker"])
	if !ok {
		writeError(w, http.StatusNotFound, "Stock not found.")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleMarketStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	stocks := append([]models.Stock(nil), s.stocks...)
	s.mu.Unlock()

	stats := models.MarketStats{TotalStocks: len(stocks), UpdatedAt: s.clock().UTC()}
	var sum float64
	for _, st := range stocks {
		switch {
		case st.ChangePercent > 0:
			stats.Gainers++
		case st.ChangePercent < 0:
			stats.Losers++
		default:
			stats.Unchanged++
		}
		sum += st.ChangePercent
		stats.TotalVolume += st.Volume
	}
	if len(stocks) > 0 {
		stats.AverageChange = sum / float64(len(stocks))
	}

	sortStocks(stocks, "-change")
	n := min(3, len(stocks))
	stats.TopGainers = append([]models.Stock(nil), stocks[:n]...)
	for i := len(stocks) - 1; i >= len(stocks)-n; i-- {
		stats.TopLosers = append(stats.TopLosers, stocks[i])
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	id := claimsFrom(r).UserID

	s.mu.Lock()
	items := append([]models.WatchlistItem{}, s.watchlists[id]...)
	s.mu.Unlock()

	for i := range items {
		if st, ok := s.findStock(items[i].Ticker); ok {
			items[i].CurrentPrice = st.CurrentPrice
		}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request) {
	var req models.WatchlistAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Ticker == "" {
		writeError(w, http.StatusBadRequest, "A ticker is required.")
		return
	}

	st, ok := s.findStock(req.Ticker)
	if !ok {
		writeError(w, http.StatusNotFound, "Stock not found.")
		return
	}

	userID := claimsFrom(r).UserID
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range s.watchlists[userID] {
		if it.Ticker == st.Ticker {
			writeError(w, http.StatusConflict, st.Ticker+" is already on your watchlist.")
			return
		}
	}

	item := models.WatchlistItem{
		ID:           uuid.NewString(),
		Ticker:       st.Ticker,
		CompanyName:  st.CompanyName,
		Notes:        req.Notes,
		AlertPrice:   req.AlertPrice,
		CurrentPrice: st.CurrentPrice,
		AddedAt:      s.now().UTC(),
	}
	s.watchlists[userID] = append(s.watchlists[userID], item)
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["id"]
	userID := claimsFrom(r).UserID

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.watchlists[userID]
	for i, it := range items {
		if it.ID == itemID {
			s.watchlists[userID] = append(items[:i], items[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Watchlist item not found.")
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p := s.portfolios[claimsFrom(r).UserID]
	p.Holdings = append([]models.Holding{}, p.Holdings...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acc, ok := s.accounts[claimsFrom(r).Username]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "User not found.")
		return
	}
	writeJSON(w, http.StatusOK, acc.user)
}

func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acc, ok := s.accounts[claimsFrom(r).Username]
	members := 0
	for _, a := range s.accounts {
		if a.user.IsPremium {
			members++
		}
	}
	s.mu.Unlock()

	if !ok || !acc.user.IsPremium {
		writeError(w, http.StatusForbidden, "A premium membership is required.")
		return
	}

	writeJSON(w, http.StatusOK, models.RevenueSummary{
		Period:           s.clock().UTC().Format("2006-01"),
		Currency:         "USD",
		TotalRevenue:     float64(members) * 29.99,
		ActiveMembers:    members,
		NewMembers:       members,
		AverageOrderSize: 29.99,
	})
}
