package models

import (
	"testing"
	"time"
)

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want string
	}{
		{"Nil", nil, ""},
		{"FullName", &User{FirstName: "Ada", LastName: "Lovelace", Username: "ada"}, "Ada Lovelace"},
		{"FirstOnly", &User{FirstName: "Ada", Username: "ada"}, "Ada"},
		{"Username", &User{Username: "ada", Email: "ada@example.com"}, "ada"},
		{"Email", &User{Email: "ada@example.com"}, "ada@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStoredCredential_Valid(t *testing.T) {
	var nilCred *StoredCredential
	if nilCred.Valid() {
		t.Error("nil credential should be invalid")
	}
	if (&StoredCredential{}).Valid() {
		t.Error("empty token should be invalid")
	}
	if !(&StoredCredential{Token: "t"}).Valid() {
		t.Error("credential with token should be valid")
	}
}

func TestStockQuery_Normalized(t *testing.T) {
	q := StockQuery{Search: "  aapl ", Limit: 0, Offset: -5}.Normalized()
	if q.Search != "aapl" {
		t.Errorf("Search = %q, want aapl", q.Search)
	}
	if q.Limit != 50 {
		t.Errorf("Limit = %d, want 50", q.Limit)
	}
	if q.Offset != 0 {
		t.Errorf("Offset = %d, want 0", q.Offset)
	}

	q = StockQuery{Limit: 1000}.Normalized()
	if q.Limit != 50 {
		t.Errorf("Limit = %d, want clamped 50", q.Limit)
	}
}

func TestPortfolio_Totals(t *testing.T) {
	p := &Portfolio{
		Cash: 100,
		Holdings: []Holding{
			{Ticker: "AAPL", Shares: 10, AverageCost: 150, CurrentPrice: 170},
			{Ticker: "MSFT", Shares: 2, AverageCost: 400, CurrentPrice: 350},
		},
	}

	if got, want := p.TotalValue(), 100.0+1700+700; got != want {
		t.Errorf("TotalValue() = %v, want %v", got, want)
	}
	if got, want := p.TotalGainLoss(), 200.0-100; got != want {
		t.Errorf("TotalGainLoss() = %v, want %v", got, want)
	}
}

func TestRequestRecord_Failed(t *testing.T) {
	tests := []struct {
		rec  RequestRecord
		want bool
	}{
		{RequestRecord{StatusCode: 200}, false},
		{RequestRecord{StatusCode: 404}, true},
		{RequestRecord{StatusCode: 0, Error: "dial tcp: refused"}, true},
	}
	for _, tt := range tests {
		if got := tt.rec.Failed(); got != tt.want {
			t.Errorf("Failed(%+v) = %v, want %v", tt.rec, got, tt.want)
		}
	}
}

func TestLatencySummary_ErrorRate(t *testing.T) {
	if (LatencySummary{}).ErrorRate() != 0 {
		t.Error("empty summary should have zero error rate")
	}
	s := LatencySummary{TotalRequests: 4, ErrorCount: 1}
	if s.ErrorRate() != 25 {
		t.Errorf("ErrorRate() = %v, want 25", s.ErrorRate())
	}
}

func TestNetworkStatus_Level(t *testing.T) {
	tests := []struct {
		status NetworkStatus
		want   string
	}{
		{NetworkStatus{}, "idle"},
		{NetworkStatus{LastStatus: 200, LastDurationMs: 50, LastAt: time.Now()}, "fast"},
		{NetworkStatus{LastStatus: 200, LastDurationMs: 500}, "moderate"},
		{NetworkStatus{LastStatus: 200, LastDurationMs: 1500}, "slow"},
	}
	for _, tt := range tests {
		if got := tt.status.Level(); got != tt.want {
			t.Errorf("Level() = %q, want %q", got, tt.want)
		}
	}
}
