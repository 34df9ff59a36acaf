// Package info provides the configuration, session and pipeline tab.
package info

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/stockscanner-tui/internal/app"
	"github.com/j-veylop/stockscanner-tui/internal/models"
	"github.com/j-veylop/stockscanner-tui/internal/services"
	"github.com/j-veylop/stockscanner-tui/internal/ui/components"
)

// keyMap defines the key bindings specific to the info tab.
type keyMap struct {
	Profile key.Binding
	Health  key.Binding
	Up      key.Binding
	Down    key.Binding
}

// defaultKeyMap returns the default key bindings for the info tab.
func defaultKeyMap() keyMap {
	return keyMap{
		Profile: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "load profile"),
		),
		Health: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "health check"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
	}
}

// profileLoadedMsg carries the account profile and, for premium
// members, the revenue summary.
type profileLoadedMsg struct {
	user    *models.User
	revenue *models.RevenueSummary
	err     error
}

// healthCheckedMsg carries the result of a health probe.
type healthCheckedMsg struct {
	health  *models.HealthStatus
	err     error
	latency time.Duration
}

// Model represents the info tab state.
type Model struct {
	state    *app.State
	services *services.Manager
	keys     keyMap
	viewport viewport.Model
	usage    components.UsageBar
	width    int
	height   int

	profile    *models.User
	revenue    *models.RevenueSummary
	profileErr string
	health     *models.HealthStatus
	healthErr  string
	healthTook time.Duration
	checkedAt  time.Time
}

// New creates a new info model.
func New(state *app.State, svc *services.Manager) *Model {
	usage := components.NewUsageBar(40)
	usage.SetLabel("Requests")
	return &Model{
		state:    state,
		services: svc,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
		usage:    usage,
	}
}

// Init initializes the info tab.
func (m *Model) Init() tea.Cmd {
	return m.syncUsage()
}

// syncUsage points the rate-limit bar at the limiter's current usage.
func (m *Model) syncUsage() tea.Cmd {
	if m.services == nil {
		return nil
	}
	l := m.services.Client().Limiter()
	if l.Limit() <= 0 {
		return nil
	}
	used := l.Limit() - l.Remaining()
	return m.usage.SetPercent(float64(used) / float64(l.Limit()) * 100)
}

// Update handles messages for the info tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case app.TickMsg, app.NetworkUpdatedMsg:
		cmds = append(cmds, m.syncUsage())

	case components.AnimationTickMsg:
		var cmd tea.Cmd
		m.usage, cmd = m.usage.Update(msg)
		cmds = append(cmds, cmd)

	case app.AuthChangedMsg:
		m.profile = nil
		m.revenue = nil
		m.profileErr = ""

	case profileLoadedMsg:
		m.profile = msg.user
		m.revenue = msg.revenue
		m.profileErr = ""
		if msg.err != nil {
			m.profileErr = msg.err.Error()
		}

	case healthCheckedMsg:
		m.health = msg.health
		m.healthTook = msg.latency
		m.checkedAt = time.Now()
		m.healthErr = ""
		if msg.err != nil {
			m.healthErr = msg.err.Error()
		}

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Profile):
		if !m.state.IsSignedIn() {
			return func() tea.Msg { return app.ShowSignInMsg{} }
		}
		return loadProfileCmd(m.services)

	case key.Matches(msg, m.keys.Health):
		return healthCheckCmd(m.services)

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
}

var errNoServices = errors.New("services not initialized")

func loadProfileCmd(svc *services.Manager) tea.Cmd {
	return func() tea.Msg {
		if svc == nil {
			return profileLoadedMsg{err: errNoServices}
		}
		ctx := context.Background()
		user, err := svc.Client().Profile(ctx)
		if err != nil {
			return profileLoadedMsg{err: err}
		}
		msg := profileLoadedMsg{user: user}
		if user.IsPremium {
			msg.revenue, msg.err = svc.Client().RevenueSummary(ctx)
		}
		return msg
	}
}

func healthCheckCmd(svc *services.Manager) tea.Cmd {
	return func() tea.Msg {
		if svc == nil {
			return healthCheckedMsg{err: errNoServices}
		}
		start := time.Now()
		health, err := svc.Client().Health(context.Background())
		return healthCheckedMsg{health: health, err: err, latency: time.Since(start)}
	}
}

// SetSize sets the available size for the info tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{
		m.keys.Profile,
		m.keys.Health,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Profile, m.keys.Health},
		{m.keys.Up, m.keys.Down},
	}
}
