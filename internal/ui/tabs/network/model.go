// Package network provides the request log and latency tab.
package network

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/stockscanner-tui/internal/app"
	"github.com/j-veylop/stockscanner-tui/internal/models"
	"github.com/j-veylop/stockscanner-tui/internal/services"
)

const (
	recentLimit      = 15
	minReloadSpacing = 2 * time.Second
)

// timeRange is a lookback window in hours.
type timeRange int

var timeRanges = []timeRange{1, 6, 24, 168}

func (r timeRange) String() string {
	switch {
	case r >= 168:
		return "7 days"
	case r == 1:
		return "1 hour"
	default:
		return fmt.Sprintf("%d hours", int(r))
	}
}

// keyMap defines the key bindings specific to the network tab.
type keyMap struct {
	ToggleRange key.Binding
	Up          key.Binding
	Down        key.Binding
}

// defaultKeyMap returns the default key bindings for the network tab.
func defaultKeyMap() keyMap {
	return keyMap{
		ToggleRange: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle time range"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// requestLogLoadedMsg carries the request log aggregates.
type requestLogLoadedMsg struct {
	summary *models.LatencySummary
	hourly  []models.HourlyLatency
	recent  []models.RequestRecord
	hours   int
}

// requestLogErrorMsg is sent when the request log cannot be read.
type requestLogErrorMsg struct {
	err string
}

// Model represents the network tab state.
type Model struct {
	state    *app.State
	services *services.Manager
	keys     keyMap
	viewport viewport.Model
	width    int
	height   int

	rangeIndex int
	summary    *models.LatencySummary
	hourly     []models.HourlyLatency
	recent     []models.RequestRecord
	loading    bool
	lastLoad   time.Time
	errorMsg   string
}

// New creates a new network model.
func New(state *app.State, svc *services.Manager) *Model {
	return &Model{
		state:      state,
		services:   svc,
		keys:       defaultKeyMap(),
		viewport:   viewport.New(0, 0),
		rangeIndex: 2,
	}
}

// Init initializes the network tab.
func (m *Model) Init() tea.Cmd {
	return m.reload()
}

func (m *Model) hours() int {
	return int(timeRanges[m.rangeIndex])
}

// reload starts a load unless one is already running.
func (m *Model) reload() tea.Cmd {
	if m.loading {
		return nil
	}
	m.loading = true
	m.lastLoad = time.Now()
	return m.loadRequestLogCmd()
}

// loadRequestLogCmd reads the aggregates and recent rows from the request log.
func (m *Model) loadRequestLogCmd() tea.Cmd {
	svc := m.services
	hours := m.hours()
	return func() tea.Msg {
		if svc == nil {
			return requestLogErrorMsg{err: "Services not initialized"}
		}

		msg := requestLogLoadedMsg{hours: hours}
		var g errgroup.Group
		g.Go(func() (err error) {
			msg.summary, err = svc.LatencySummary(hours)
			return err
		})
		g.Go(func() (err error) {
			msg.hourly, err = svc.HourlyLatency(hours)
			return err
		})
		g.Go(func() (err error) {
			msg.recent, err = svc.RecentRequests(recentLimit)
			return err
		})
		if err := g.Wait(); err != nil {
			return requestLogErrorMsg{err: err.Error()}
		}
		return msg
	}
}

// Update handles messages for the network tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case requestLogLoadedMsg:
		if msg.hours != m.hours() {
			break
		}
		m.summary = msg.summary
		m.hourly = msg.hourly
		m.recent = msg.recent
		m.loading = false
		m.errorMsg = ""

	case requestLogErrorMsg:
		m.loading = false
		m.errorMsg = msg.err
		cmds = append(cmds, func() tea.Msg {
			return app.AddNotificationMsg{
				Type:     app.NotificationError,
				Message:  fmt.Sprintf("Request log error: %s", msg.err),
				Duration: app.LongNotificationDuration,
			}
		})

	case app.NetworkUpdatedMsg:
		// Reload once the pipeline drains, at most every few seconds.
		if msg.Status.InFlight == 0 && time.Since(m.lastLoad) >= minReloadSpacing {
			cmds = append(cmds, m.reload())
		}

	case app.RefreshMsg:
		cmds = append(cmds, m.reload())

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.ToggleRange):
		m.rangeIndex = (m.rangeIndex + 1) % len(timeRanges)
		m.loading = false
		return m.reload()

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
}

// SetSize sets the available size for the network tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{
		m.keys.ToggleRange,
		m.keys.Up,
		m.keys.Down,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.ToggleRange},
		{m.keys.Up, m.keys.Down},
	}
}
