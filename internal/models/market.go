// Package models defines data structures and domain types.
package models

import (
	"strings"
	"time"
)

// Stock is a single scanner row.
type Stock struct {
	LastUpdated   time.Time `json:"last_updated"`
	Ticker        string    `json:"ticker"`
	CompanyName   string    `json:"company_name"`
	Exchange      string    `json:"exchange,omitempty"`
	Sector        string    `json:"sector,omitempty"`
	CurrentPrice  float64   `json:"current_price"`
	PriceChange   float64   `json:"price_change"`
	ChangePercent float64   `json:"price_change_percent"`
	Volume        int64     `json:"volume"`
	MarketCap     float64   `json:"market_cap"`
	PERatio       float64   `json:"pe_ratio,omitempty"`
}

// IsGainer reports whether the stock is up on the day.
func (s *Stock) IsGainer() bool {
	return s.ChangePercent > 0
}

// StockPage is a paginated stock listing.
type StockPage struct {
	Results []Stock `json:"results"`
	Count   int     `json:"count"`
	Next    string  `json:"next,omitempty"`
}

// StockQuery filters a stock listing.
type StockQuery struct {
	Search string
	Sort   string
	Limit  int
	Offset int
}

// Normalized returns the query with defaults applied.
func (q StockQuery) Normalized() StockQuery {
	q.Search = strings.TrimSpace(q.Search)
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// MarketStats summarizes the market as a whole.
type MarketStats struct {
	UpdatedAt     time.Time `json:"updated_at"`
	TopGainers    []Stock   `json:"top_gainers,omitempty"`
	TopLosers     []Stock   `json:"top_losers,omitempty"`
	TotalStocks   int       `json:"total_stocks"`
	Gainers       int       `json:"gainers"`
	Losers        int       `json:"losers"`
	Unchanged     int       `json:"unchanged"`
	AverageChange float64   `json:"average_change"`
	TotalVolume   int64     `json:"total_volume"`
}

// WatchlistItem is an entry on the user's watchlist.
type WatchlistItem struct {
	AddedAt      time.Time `json:"added_at"`
	ID           string    `json:"id"`
	Ticker       string    `json:"ticker"`
	CompanyName  string    `json:"company_name,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CurrentPrice float64   `json:"current_price,omitempty"`
	AlertPrice   float64   `json:"alert_price,omitempty"`
}

// WatchlistAddRequest is the body of the watchlist add endpoint.
type WatchlistAddRequest struct {
	Ticker     string  `json:"ticker"`
	Notes      string  `json:"notes,omitempty"`
	AlertPrice float64 `json:"alert_price,omitempty"`
}

// Holding is a single portfolio position.
type Holding struct {
	Ticker       string  `json:"ticker"`
	Shares       float64 `json:"shares"`
	AverageCost  float64 `json:"average_cost"`
	CurrentPrice float64 `json:"current_price"`
}

// MarketValue returns the position value at the current price.
func (h Holding) MarketValue() float64 {
	return h.Shares * h.CurrentPrice
}

// GainLoss returns the unrealized gain or loss of the position.
func (h Holding) GainLoss() float64 {
	return h.Shares * (h.CurrentPrice - h.AverageCost)
}

// Portfolio is the user's set of holdings.
type Portfolio struct {
	UpdatedAt time.Time `json:"updated_at"`
	Holdings  []Holding `json:"holdings"`
	Cash      float64   `json:"cash"`
}

// TotalValue returns holdings plus cash.
func (p *Portfolio) TotalValue() float64 {
	total := p.Cash
	for _, h := range p.Holdings {
		total += h.MarketValue()
	}
	return total
}

// TotalGainLoss returns the sum of unrealized gains across holdings.
func (p *Portfolio) TotalGainLoss() float64 {
	var total float64
	for _, h := range p.Holdings {
		total += h.GainLoss()
	}
	return total
}

// RevenueSummary is served under /revenue/ for premium accounts.
type RevenueSummary struct {
	Period           string  `json:"period"`
	Currency         string  `json:"currency"`
	TotalRevenue     float64 `json:"total_revenue"`
	ActiveMembers    int     `json:"active_members"`
	NewMembers       int     `json:"new_members"`
	ChurnedMembers   int     `json:"churned_members"`
	AverageOrderSize float64 `json:"average_order_size"`
}

// HealthStatus is returned by the health endpoint.
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
