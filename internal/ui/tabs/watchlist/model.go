// Package watchlist provides the watchlist and portfolio tab.
package watchlist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/stockscanner-tui/internal/app"
	"github.com/j-veylop/stockscanner-tui/internal/ui/components"
)

const colCompany = 1

var baseColumns = []table.Column{
	{Title: "Ticker", Width: 7},
	{Title: "Company", Width: 22},
	{Title: "Price", Width: 10},
	{Title: "Alert", Width: 10},
	{Title: "Notes", Width: 18},
	{Title: "Added", Width: 10},
}

// keyMap defines the key bindings specific to the watchlist tab.
type keyMap struct {
	Delete key.Binding
	SignIn key.Binding
	Yes    key.Binding
	No     key.Binding
}

// defaultKeyMap returns the default key bindings for the watchlist tab.
func defaultKeyMap() keyMap {
	return keyMap{
		Delete: key.NewBinding(
			key.WithKeys("d", "delete", "x"),
			key.WithHelp("d", "remove"),
		),
		SignIn: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "sign in"),
		),
		Yes: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "confirm"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
			key.WithHelp("n", "cancel"),
		),
	}
}

// Model represents the watchlist tab state.
type Model struct {
	state         *app.State
	table         table.Model
	spinner       components.LoadingSpinner
	keys          keyMap
	ids           []string
	width         int
	height        int
	confirmDelete bool
	deleteID      string
	deleteTicker  string
}

// New creates a new watchlist model.
func New(state *app.State) *Model {
	return &Model{
		state:   state,
		table:   components.NewTable(baseColumns, 8),
		spinner: components.NewSpinner("Loading watchlist..."),
		keys:    defaultKeyMap(),
	}
}

// Init initializes the watchlist tab.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// CapturingInput reports whether the delete confirmation is open.
func (m *Model) CapturingInput() bool {
	return m.confirmDelete
}

// Update handles messages for the watchlist tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	if m.confirmDelete {
		return m.updateDeleteConfirm(msg)
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))

	case app.WatchlistLoadedMsg, app.AuthChangedMsg:
		m.updateTableData()

	case app.ThemeChangedMsg:
		m.table.SetStyles(components.TableStyles())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner.Track(m.state.IsLoading(app.ResourceWatchlist))
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if !m.state.IsSignedIn() {
		if key.Matches(msg, m.keys.SignIn) {
			return func() tea.Msg { return app.ShowSignInMsg{} }
		}
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Delete):
		cursor := m.table.Cursor()
		row := m.table.SelectedRow()
		if len(row) > 0 && cursor < len(m.ids) {
			m.confirmDelete = true
			m.deleteID = m.ids[cursor]
			m.deleteTicker = row[0]
		}
		return nil

	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return cmd
	}
}

// updateDeleteConfirm handles the delete confirmation.
func (m *Model) updateDeleteConfirm(msg tea.Msg) (app.Tab, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if _, loaded := msg.(app.WatchlistLoadedMsg); loaded {
			m.updateTableData()
		}
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Yes):
		id, ticker := m.deleteID, m.deleteTicker
		m.resetConfirm()
		return m, func() tea.Msg {
			return app.RemoveFromWatchlistMsg{ID: id, Ticker: ticker}
		}
	case key.Matches(keyMsg, m.keys.No):
		m.resetConfirm()
	}
	return m, nil
}

func (m *Model) resetConfirm() {
	m.confirmDelete = false
	m.deleteID = ""
	m.deleteTicker = ""
}

// updateTableData rebuilds the rows from the shared state.
func (m *Model) updateTableData() {
	items := m.state.GetWatchlist()
	rows := make([]table.Row, 0, len(items))
	m.ids = m.ids[:0]

	for _, item := range items {
		price, alert := "-", "-"
		if item.CurrentPrice > 0 {
			price = fmt.Sprintf("%.2f", item.CurrentPrice)
		}
		if item.AlertPrice > 0 {
			alert = fmt.Sprintf("%.2f", item.AlertPrice)
		}
		added := "-"
		if !item.AddedAt.IsZero() {
			added = item.AddedAt.Local().Format("2006-01-02")
		}
		rows = append(rows, table.Row{item.Ticker, item.CompanyName, price, alert, item.Notes, added})
		m.ids = append(m.ids, item.ID)
	}

	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// SetSize sets the available size for the watchlist tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(max(height/2-4, 3))
	m.table.SetColumns(components.FlexColumns(baseColumns, colCompany, width-8, 12, 36))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	if m.confirmDelete {
		return []key.Binding{m.keys.Yes, m.keys.No}
	}
	if !m.state.IsSignedIn() {
		return []key.Binding{m.keys.SignIn}
	}
	return []key.Binding{m.keys.Delete}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Delete, m.keys.SignIn},
		{m.keys.Yes, m.keys.No},
	}
}
