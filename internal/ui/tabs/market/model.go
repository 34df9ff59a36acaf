// Package market provides the stock scanner tab.
package market

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/stockscanner-tui/internal/app"
	"github.com/j-veylop/stockscanner-tui/internal/models"
	"github.com/j-veylop/stockscanner-tui/internal/ui/components"
)

// sortOption is one entry of the sort cycle.
type sortOption struct {
	ordering string
	label    string
}

var sortOptions = []sortOption{
	{"ticker", "Ticker"},
	{"-change", "Top gainers"},
	{"change", "Top losers"},
	{"-volume", "Volume"},
	{"-market_cap", "Market cap"},
	{"-price", "Price"},
}

const (
	colTicker = iota
	colCompany
)

var baseColumns = []table.Column{
	{Title: "Ticker", Width: 7},
	{Title: "Company", Width: 24},
	{Title: "Price", Width: 10},
	{Title: "Change", Width: 9},
	{Title: "Chg %", Width: 8},
	{Title: "Volume", Width: 8},
	{Title: "Mkt Cap", Width: 8},
	{Title: "", Width: 1},
}

// keyMap defines the key bindings specific to the market tab.
type keyMap struct {
	Search key.Binding
	Sort   key.Binding
	Add    key.Binding
	Clear  key.Binding
	Apply  key.Binding
}

// defaultKeyMap returns the default key bindings for the market tab.
func defaultKeyMap() keyMap {
	return keyMap{
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Sort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "cycle sort"),
		),
		Add: key.NewBinding(
			key.WithKeys("a", "+"),
			key.WithHelp("a", "add to watchlist"),
		),
		Clear: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear search"),
		),
		Apply: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "apply search"),
		),
	}
}

// Model represents the market tab state.
type Model struct {
	state     *app.State
	table     table.Model
	search    textinput.Model
	spinner   components.LoadingSpinner
	keys      keyMap
	width     int
	height    int
	sortIndex int
	searching bool
}

// New creates a new market model.
func New(state *app.State) *Model {
	search := textinput.New()
	search.Placeholder = "ticker or company name"
	search.Prompt = "/ "
	search.CharLimit = 40
	search.Width = 30

	return &Model{
		state:   state,
		table:   components.NewTable(baseColumns, 10),
		search:  search,
		spinner: components.NewSpinner("Loading market data..."),
		keys:    defaultKeyMap(),
	}
}

// Init initializes the market tab.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// CapturingInput reports whether the search field has focus.
func (m *Model) CapturingInput() bool {
	return m.searching
}

// Update handles messages for the market tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	if m.searching {
		return m.updateSearch(msg)
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))

	case app.MarketLoadedMsg, app.WatchlistLoadedMsg, app.AuthChangedMsg:
		m.updateTableData()

	case app.ThemeChangedMsg:
		m.table.SetStyles(components.TableStyles())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner.Track(m.state.IsLoading(app.ResourceMarket))
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(m.state.GetQuery().Search)
		m.search.CursorEnd()
		return m.search.Focus()

	case key.Matches(msg, m.keys.Sort):
		m.sortIndex = (m.sortIndex + 1) % len(sortOptions)
		q := m.state.GetQuery()
		q.Sort = sortOptions[m.sortIndex].ordering
		return m.setQuery(q)

	case key.Matches(msg, m.keys.Add):
		if ticker := m.SelectedTicker(); ticker != "" {
			return func() tea.Msg { return app.AddToWatchlistMsg{Ticker: ticker} }
		}

	case key.Matches(msg, m.keys.Clear):
		if m.state.GetQuery().Search != "" {
			q := m.state.GetQuery()
			q.Search = ""
			return m.setQuery(q)
		}

	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return cmd
	}
	return nil
}

// updateSearch handles keys while the search field has focus.
func (m *Model) updateSearch(msg tea.Msg) (app.Tab, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Apply):
			m.searching = false
			m.search.Blur()
			q := m.state.GetQuery()
			q.Search = m.search.Value()
			q.Offset = 0
			return m, m.setQuery(q)

		case key.Matches(msg, m.keys.Clear):
			m.searching = false
			m.search.Blur()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// setQuery stores q and asks the root model to reload the listing.
func (m *Model) setQuery(q models.StockQuery) tea.Cmd {
	m.state.SetQuery(q)
	return func() tea.Msg { return app.RefreshMsg{Resource: app.ResourceMarket} }
}

// SelectedTicker returns the ticker of the highlighted row.
func (m *Model) SelectedTicker() string {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return ""
	}
	return row[colTicker]
}

// SortLabel returns the name of the active sort.
func (m *Model) SortLabel() string {
	ordering := m.state.GetQuery().Sort
	for _, o := range sortOptions {
		if o.ordering == ordering {
			return o.label
		}
	}
	return ordering
}

// updateTableData rebuilds the rows from the shared state.
func (m *Model) updateTableData() {
	stocks := m.state.GetStocks()
	rows := make([]table.Row, 0, len(stocks))

	for _, s := range stocks {
		watched := ""
		if m.state.IsWatched(s.Ticker) {
			watched = "★"
		}
		rows = append(rows, table.Row{
			s.Ticker,
			s.CompanyName,
			fmt.Sprintf("%.2f", s.CurrentPrice),
			fmt.Sprintf("%+.2f", s.PriceChange),
			components.FormatPercent(s.ChangePercent),
			components.FormatCompact(float64(s.Volume)),
			components.FormatCompact(s.MarketCap),
			watched,
		})
	}

	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// SetSize sets the available size for the market tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(max(height-12, 3))
	m.table.SetColumns(components.FlexColumns(baseColumns, colCompany, width-8, 12, 40))
	m.search.Width = max(min(width-20, 40), 10)
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	if m.searching {
		return []key.Binding{m.keys.Apply, m.keys.Clear}
	}
	return []key.Binding{m.keys.Search, m.keys.Sort, m.keys.Add}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Search, m.keys.Clear},
		{m.keys.Sort, m.keys.Add},
	}
}
