package market

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/stockscanner-tui/internal/app"
	"github.com/j-veylop/stockscanner-tui/internal/auth"
	"github.com/j-veylop/stockscanner-tui/internal/models"
)

func loadedState() *app.State {
	state := app.NewState()
	state.SetLoading(app.ResourceInitial, false)
	state.SetMarket(&models.StockPage{
		Count: 2,
		Results: []models.Stock{
			{Ticker: "AAPL", CompanyName: "Apple Inc.", CurrentPrice: 189.84, ChangePercent: 1.12, Volume: 52_000_000, MarketCap: 2.95e12},
			{Ticker: "XOM", CompanyName: "Exxon Mobil Corporation", CurrentPrice: 113.45, ChangePercent: -2.31},
		},
	}, &models.MarketStats{
		TotalStocks: 2, Gainers: 1, Losers: 1, AverageChange: -0.6,
		TopGainers: []models.Stock{{Ticker: "AAPL", ChangePercent: 1.12}},
	})
	return state
}

func newLoaded() *Model {
	m := New(loadedState())
	m.SetSize(120, 40)
	m.Update(app.MarketLoadedMsg{})
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_Init(t *testing.T) {
	if New(app.NewState()).Init() == nil {
		t.Error("Init returned nil")
	}
}

func TestModel_ViewLoading(t *testing.T) {
	m := New(app.NewState())
	m.SetSize(80, 24)
	if m.View() == "" {
		t.Error("loading view is empty")
	}
}

func TestModel_View(t *testing.T) {
	m := newLoaded()
	view := m.View()

	for _, want := range []string{"Market Scanner", "AAPL", "Apple Inc.", "+1.12%", "2.95T", "▲ 1", "Press / to search"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_EmptyListing(t *testing.T) {
	state := app.NewState()
	state.SetLoading(app.ResourceInitial, false)
	state.SetQuery(models.StockQuery{Search: "zzz", Sort: "ticker"})
	m := New(state)
	m.SetSize(100, 30)

	if !strings.Contains(m.View(), "No stocks match") {
		t.Error("empty filtered listing should say so")
	}
}

func TestModel_Search(t *testing.T) {
	m := newLoaded()

	m.Update(runes("/"))
	if !m.CapturingInput() {
		t.Fatal("/ should focus search")
	}

	for _, r := range "app" {
		m.Update(runes(string(r)))
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.CapturingInput() {
		t.Error("enter should leave search mode")
	}
	if got := m.state.GetQuery().Search; got != "app" {
		t.Errorf("query search = %q, want app", got)
	}
	if msg, ok := cmd().(app.RefreshMsg); !ok || msg.Resource != app.ResourceMarket {
		t.Errorf("got %#v, want market refresh", cmd())
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil || m.state.GetQuery().Search != "" {
		t.Error("esc should clear an active filter and reload")
	}
}

func TestModel_SearchCancel(t *testing.T) {
	m := newLoaded()
	m.Update(runes("/"))
	m.Update(runes("x"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	if m.CapturingInput() || m.state.GetQuery().Search != "" {
		t.Error("esc in the search field should cancel without applying")
	}
}

func TestModel_SortCycle(t *testing.T) {
	m := newLoaded()

	var labels []string
	for range sortOptions {
		_, cmd := m.Update(runes("s"))
		if cmd == nil {
			t.Fatal("sort should trigger a reload")
		}
		labels = append(labels, m.SortLabel())
	}

	if labels[0] != "Top gainers" {
		t.Errorf("first sort = %q, want Top gainers", labels[0])
	}
	if labels[len(labels)-1] != "Ticker" {
		t.Errorf("sort should wrap back to Ticker, got %q", labels[len(labels)-1])
	}
}

func TestModel_AddToWatchlist(t *testing.T) {
	m := newLoaded()

	if got := m.SelectedTicker(); got != "AAPL" {
		t.Fatalf("SelectedTicker = %q, want AAPL", got)
	}

	_, cmd := m.Update(runes("a"))
	if cmd == nil {
		t.Fatal("a should request an add")
	}
	if msg, ok := cmd().(app.AddToWatchlistMsg); !ok || msg.Ticker != "AAPL" {
		t.Errorf("got %#v", cmd())
	}

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if got := m.SelectedTicker(); got != "XOM" {
		t.Errorf("after down SelectedTicker = %q, want XOM", got)
	}
}

func TestModel_WatchedMarker(t *testing.T) {
	m := newLoaded()
	m.state.SetAuth(auth.Authenticated, &models.User{Username: "demo"})
	m.state.SetWatchlist([]models.WatchlistItem{{ID: "1", Ticker: "AAPL"}}, nil)
	m.Update(app.WatchlistLoadedMsg{})

	if !strings.Contains(m.View(), "★") {
		t.Error("watched ticker should be marked")
	}
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState())
	if len(m.ShortHelp()) != 3 || len(m.FullHelp()) != 2 {
		t.Error("help bindings mismatch")
	}
	m.searching = true
	if len(m.ShortHelp()) != 2 {
		t.Error("search help should list apply and cancel")
	}
}
