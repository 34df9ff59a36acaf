package devapi

import (
	"time"

	"github.com/j-veylop/stockscanner-tui/internal/models"
)

// DemoUser is a seeded account.
type DemoUser struct {
	Username string
	Password string
	Premium  bool
}

// DemoUsers are created by New when no users are configured.
var DemoUsers = []DemoUser{
	{Username: "demo", Password: "demo1234"},
	{Username: "premium", Password: "premium1234", Premium: true},
}

func seedStocks(now time.Time) []models.Stock {
	rows := []struct {
		ticker, name, exchange, sector string
		price, change                  float64
		volume                         int64
		marketCap, pe                  float64
	}{
		{"AAPL", "Apple Inc.", "NASDAQ", "Technology", 189.84, 1.12, 52_000_000, 2.95e12, 29.4},
		{"MSFT", "Microsoft Corporation", "NASDAQ", "Technology", 415.50, -0.48, 21_300_000, 3.09e12, 36.1},
		{"NVDA", "NVIDIA Corporation", "NASDAQ", "Technology", 121.79, 3.87, 310_000_000, 2.99e12, 71.2},
		{"AMZN", "Amazon.com Inc.", "NASDAQ", "Consumer Cyclical", 183.66, 0.65, 38_500_000, 1.91e12, 51.8},
		{"JPM", "JPMorgan Chase & Co.", "NYSE", "Financial Services", 198.12, -1.02, 9_100_000, 5.69e11, 11.9},
		{"XOM", "Exxon Mobil Corporation", "NYSE", "Energy", 113.45, -2.31, 17_800_000, 5.05e11, 13.7},
		{"JNJ", "Johnson & Johnson", "NYSE", "Healthcare", 147.30, 0.00, 6_400_000, 3.54e11, 21.5},
		{"TSLA", "Tesla Inc.", "NASDAQ", "Consumer Cyclical", 177.48, 5.44, 98_700_000, 5.66e11, 45.3},
		{"KO", "The Coca-Cola Company", "NYSE", "Consumer Defensive", 62.87, 0.21, 11_200_000, 2.71e11, 25.1},
		{"AMD", "Advanced Micro Devices Inc.", "NASDAQ", "Technology", 160.21, -3.05, 61_000_000, 2.59e11, 235.6},
	}

	stocks := make([]models.Stock, 0, len(rows))
	for _, r := range rows {
		stocks = append(stocks, models.Stock{
			Ticker:        r.ticker,
			CompanyName:   r.name,
			Exchange:      r.exchange,
			Sector:        r.sector,
			CurrentPrice:  r.price,
			ChangePercent: r.change,
			PriceChange:   r.price * r.change / 100,
			Volume:        r.volume,
			MarketCap:     r.marketCap,
			PERatio:       r.pe,
			LastUpdated:   now,
		})
	}
	return stocks
}

func seedPortfolio(now time.Time) models.Portfolio {
	return models.Portfolio{
		Cash: 2500,
		Holdings: []models.Holding{
			{Ticker: "AAPL", Shares: 10, AverageCost: 150.00, CurrentPrice: 189.84},
			{Ticker: "NVDA", Shares: 25, AverageCost: 95.50, CurrentPrice: 121.79},
			{Ticker: "XOM", Shares: 15, AverageCost: 118.20, CurrentPrice: 113.45},
		},
		UpdatedAt: now,
	}
}
