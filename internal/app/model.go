// Package app implements the main Bubble Tea application with tab-based navigation.
package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/stockscanner-tui/internal/api"
	"github.com/j-veylop/stockscanner-tui/internal/auth"
	"github.com/j-veylop/stockscanner-tui/internal/logger"
	"github.com/j-veylop/stockscanner-tui/internal/services"
	"github.com/j-veylop/stockscanner-tui/internal/ui/components"
	"github.com/j-veylop/stockscanner-tui/internal/ui/styles"
)

// TabID represents the identifier for a tab in the application.
type TabID int

const (
	// TabMarket is the ID for the market tab.
	TabMarket TabID = iota
	// TabWatchlist is the ID for the watchlist tab.
	TabWatchlist
	// TabNetwork is the ID for the network tab.
	TabNetwork
	// TabInfo is the ID for the info tab.
	TabInfo
)

const signInFormWidth = 56

// String returns the string representation of the TabID.
func (t TabID) String() string {
	switch t {
	case TabMarket:
		return "Market"
	case TabWatchlist:
		return "Watchlist"
	case TabNetwork:
		return "Network"
	case TabInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// Tab defines the interface that all tabs must implement.
type Tab interface {
	// Init initializes the tab and returns any initial commands.
	Init() tea.Cmd

	// Update handles messages and returns the updated tab and any commands.
	Update(msg tea.Msg) (Tab, tea.Cmd)

	// View renders the tab content.
	View() string

	// SetSize sets the available size for the tab.
	SetSize(width, height int)

	// ShortHelp returns key bindings for the short help view.
	ShortHelp() []key.Binding

	// FullHelp returns key bindings for the full help view.
	FullHelp() [][]key.Binding
}

// InputCapturer is implemented by tabs that sometimes need every key, such
// as while a search field has focus.
type InputCapturer interface {
	CapturingInput() bool
}

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	Tab1    key.Binding
	Tab2    key.Binding
	Tab3    key.Binding
	Tab4    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Refresh key.Binding
	SignIn  key.Binding
	Theme   key.Binding
	Help    key.Binding
	Quit    key.Binding
	Escape  key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Tab1:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "market")),
		Tab2:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "watchlist")),
		Tab3:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "network")),
		Tab4:    key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "info")),
		NextTab: key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab/→", "next tab")),
		PrevTab: key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab/←", "prev tab")),
		Refresh: key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh")),
		SignIn:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "sign in/out")),
		Theme:   key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "toggle theme")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Escape:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Refresh, k.SignIn, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab1, k.Tab2, k.Tab3, k.Tab4},
		{k.NextTab, k.PrevTab},
		{k.Refresh, k.SignIn, k.Theme},
		{k.Help, k.Quit},
	}
}

// Styles defines the application chrome styles.
type Styles struct {
	TabBar      lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style

	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	Content lipgloss.Style
	Toast   lipgloss.Style

	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
}

// DefaultStyles builds the chrome styles from the active theme.
func DefaultStyles() Styles {
	return Styles{
		TabBar: lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).BorderForeground(styles.Subtle),
		ActiveTab:   lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).Padding(0, 2),
		InactiveTab: lipgloss.NewStyle().Foreground(styles.Subtle).Padding(0, 2),

		NotificationSuccess: lipgloss.NewStyle().Foreground(styles.Success).Padding(0, 1),
		NotificationError:   lipgloss.NewStyle().Foreground(styles.Error).Bold(true).Padding(0, 1),
		NotificationWarning: lipgloss.NewStyle().Foreground(styles.Warning).Padding(0, 1),
		NotificationInfo:    lipgloss.NewStyle().Foreground(styles.Info).Padding(0, 1),

		Content: lipgloss.NewStyle().Padding(1, 2),
		Toast:   styles.ToastStyle,

		Title:     lipgloss.NewStyle().Bold(true).Foreground(styles.Primary),
		Subtle:    lipgloss.NewStyle().Foreground(styles.Subtle),
		Highlight: lipgloss.NewStyle().Foreground(styles.Primary),
	}
}

// Model is the main application model.
type Model struct {
	// Tab management
	activeTab TabID
	tabs      []Tab
	tabNames  []string

	// Shared state
	state    *State
	services *services.Manager
	commands *Commands
	keymap   KeyMap
	styles   Styles

	// UI components
	spinner spinner.Model
	signIn  components.SignInForm

	// Window dimensions
	width  int
	height int

	// UI state
	showHelp   bool
	showSignIn bool
	ready      bool

	// Service subscription
	eventChannel chan services.ServiceEvent
}

// NewModel initializes a new application model and applies the stored theme.
func NewModel(mgr *services.Manager) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	state := NewState()
	if mgr != nil {
		styles.Apply(mgr.Theme())
		state.SetAuth(mgr.Client().State(), mgr.Client().CurrentUser())
		state.SetNetwork(mgr.NetworkStatus())
	}
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return &Model{
		activeTab: TabMarket,
		tabNames:  []string{"Market", "Watchlist", "Network", "Info"},
		tabs:      make([]Tab, 4), // Placeholder - tabs will be set externally
		state:     state,
		services:  mgr,
		commands:  NewCommands(mgr),
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		spinner:   s,
		signIn:    components.NewSignInForm(),
	}
}

// SetTabs sets the tabs for the model.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// GetState returns the application state.
func (m *Model) GetState() *State {
	return m.state
}

// GetServices returns the service manager.
func (m *Model) GetServices() *services.Manager {
	return m.services
}

// GetCommands returns the commands helper.
func (m *Model) GetCommands() *Commands {
	return m.commands
}

// GetActiveTab returns the currently active tab ID.
func (m *Model) GetActiveTab() TabID {
	return m.activeTab
}

// IsReady returns true if the model is ready (window size received).
func (m *Model) IsReady() bool {
	return m.ready
}

// IsSignInVisible reports whether the sign-in form is open.
func (m *Model) IsSignInVisible() bool {
	return m.showSignIn
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	m.state.SetLoadingNotification("Loading market data...")

	cmds := []tea.Cmd{
		m.spinner.Tick,
		defaultTickCmd(),
	}

	if m.services != nil {
		cmds = append(cmds, subscribeToServicesCmd(m.services))
		cmds = append(cmds, loadInitialData(m.services, m.state.GetQuery()))
	}

	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg, tea.KeyMsg, spinner.TickMsg:
		cmd, consumed := m.handleTeaMsg(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
		if consumed {
			return m, tea.Batch(cmds...)
		}

	case components.SignInSubmitMsg, components.SignInCancelMsg:
		cmds = append(cmds, m.handleSignInMsg(msg))
		return m, tea.Batch(cmds...)

	default:
		cmds = append(cmds, m.handleAppMsg(msg)...)
	}

	if isBroadcast(msg) {
		cmds = append(cmds, m.updateAllTabs(msg))
	} else if cmd := m.updateActiveTab(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// isBroadcast reports whether msg changes shared data that every tab renders.
func isBroadcast(msg tea.Msg) bool {
	switch msg.(type) {
	case tea.WindowSizeMsg, MarketLoadedMsg, WatchlistLoadedMsg, AuthChangedMsg,
		NetworkUpdatedMsg, ThemeChangedMsg:
		return true
	}
	return false
}

func (m *Model) handleTeaMsg(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case spinner.TickMsg:
		return m.handleSpinnerTick(msg), false
	}
	return nil, false
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case TickMsg:
		cmds = append(cmds, m.handleTick())
	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	case ServiceEventMsg:
		cmds = append(cmds, m.handleServiceEventMsg(msg)...)
	case MarketLoadedMsg:
		cmds = append(cmds, m.handleMarketLoaded(msg)...)
	case WatchlistLoadedMsg:
		cmds = append(cmds, m.handleWatchlistLoaded(msg)...)
	case AddToWatchlistMsg:
		cmds = append(cmds, m.handleAddToWatchlist(msg)...)
	case RemoveFromWatchlistMsg:
		if m.services != nil {
			cmds = append(cmds, removeFromWatchlistCmd(m.services, msg.ID, msg.Ticker))
		}
	case WatchlistChangedMsg:
		cmds = append(cmds, m.handleWatchlistChanged(msg)...)
	case LoginResultMsg:
		cmds = append(cmds, m.handleLoginResult(msg)...)
	case LogoutMsg:
		if m.services != nil {
			cmds = append(cmds, logoutCmd(m.services))
		}
	case LogoutResultMsg:
		if msg.Error != nil {
			cmds = append(cmds, notifyWarningCmd("Signed out locally: "+msg.Error.Error()))
		} else {
			cmds = append(cmds, notifyInfoCmd("Signed out"))
		}
	case ShowSignInMsg:
		cmds = append(cmds, m.openSignIn(msg.Message))
	case ThemeChangedMsg:
		if msg.Error != nil {
			logger.Warn("Failed to persist theme", "theme", msg.Theme, "error", msg.Error)
		}
	case AddNotificationMsg:
		cmds = append(cmds, m.handleAddNotification(msg)...)
	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	case ClearExpiredNotificationsMsg:
		m.state.ClearExpiredNotifications()
	case StartLoadingMsg:
		m.state.SetLoading(msg.Resource, true)
		m.state.SetLoadingNotification("Refreshing...")
	case StopLoadingMsg:
		m.stopLoading(msg.Resource)
	case ErrorMsg:
		cmds = append(cmds, notifyErrorCmd(msg.Error.Error()))
	case RefreshMsg:
		cmds = append(cmds, m.handleRefresh(msg)...)
	case TabSwitchMsg:
		m.activeTab = msg.Tab
		m.updateTabSizes()
	case ToggleHelpMsg:
		m.showHelp = !m.showHelp
	}
	return cmds
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.updateTabSizes()
}

func (m *Model) handleSpinnerTick(msg spinner.TickMsg) tea.Cmd {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return cmd
}

func (m *Model) handleTick() tea.Cmd {
	m.state.ClearExpiredNotifications()
	return defaultTickCmd()
}

func (m *Model) stopLoading(resource string) {
	m.state.SetLoading(resource, false)
	if resource != ResourceInitial {
		m.state.SetLoading(ResourceInitial, false)
	}
	if !m.state.AnyLoading() {
		m.state.ClearLoadingNotification()
	}
}

func (m *Model) handleServiceEventMsg(msg ServiceEventMsg) []tea.Cmd {
	var cmds []tea.Cmd
	if cmd := m.handleServiceEvent(msg.Event); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if m.eventChannel != nil {
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	}
	return cmds
}

func (m *Model) handleMarketLoaded(msg MarketLoadedMsg) []tea.Cmd {
	m.stopLoading(ResourceMarket)
	m.state.SetMarket(msg.Page, msg.Stats)
	if msg.Error != nil {
		return []tea.Cmd{notifyErrorCmd(msg.Error.Error())}
	}
	return nil
}

func (m *Model) handleWatchlistLoaded(msg WatchlistLoadedMsg) []tea.Cmd {
	m.stopLoading(ResourceWatchlist)
	if msg.Error != nil {
		if msg.Items != nil {
			m.state.SetWatchlist(msg.Items, nil)
		}
		if needsSignIn(msg.Error) {
			return nil
		}
		return []tea.Cmd{notifyErrorCmd(msg.Error.Error())}
	}
	m.state.SetWatchlist(msg.Items, msg.Portfolio)
	return nil
}

func (m *Model) handleAddToWatchlist(msg AddToWatchlistMsg) []tea.Cmd {
	if m.services == nil {
		return nil
	}
	if !m.state.IsSignedIn() {
		return []tea.Cmd{m.openSignIn(api.ReasonMessage(api.ReasonAuthRequired))}
	}
	if m.state.IsWatched(msg.Ticker) {
		return []tea.Cmd{notifyInfoCmd(msg.Ticker + " is already on your watchlist")}
	}
	return []tea.Cmd{addToWatchlistCmd(m.services, msg.Ticker)}
}

func (m *Model) handleWatchlistChanged(msg WatchlistChangedMsg) []tea.Cmd {
	var cmds []tea.Cmd
	switch {
	case msg.Error != nil && needsSignIn(msg.Error):
		return nil
	case msg.Error != nil:
		cmds = append(cmds, notifyErrorCmd(msg.Error.Error()))
	case msg.Removed:
		cmds = append(cmds, notifySuccessCmd(fmt.Sprintf("Removed %s from watchlist", msg.Ticker)))
	default:
		cmds = append(cmds, notifySuccessCmd(fmt.Sprintf("Added %s to watchlist", msg.Ticker)))
	}
	if m.services != nil {
		cmds = append(cmds, loadWatchlistCmd(m.services))
	}
	return cmds
}

func (m *Model) handleLoginResult(msg LoginResultMsg) []tea.Cmd {
	if msg.Error != nil {
		m.signIn.SetError(msg.Error.Error())
		return nil
	}
	m.showSignIn = false
	m.state.ClearSignIn()
	var cmds []tea.Cmd
	cmds = append(cmds, notifySuccessCmd("Signed in as "+msg.User.DisplayName()))
	if m.services != nil {
		cmds = append(cmds, loadWatchlistCmd(m.services))
	}
	return cmds
}

func (m *Model) handleSignInMsg(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case components.SignInSubmitMsg:
		if m.services == nil {
			return nil
		}
		return loginCmd(m.services, msg.Username, msg.Password)
	case components.SignInCancelMsg:
		m.showSignIn = false
		m.state.ClearSignIn()
	}
	return nil
}

func (m *Model) openSignIn(reason string) tea.Cmd {
	m.showSignIn = true
	m.showHelp = false
	return m.signIn.Reset(reason)
}

func (m *Model) handleAddNotification(msg AddNotificationMsg) []tea.Cmd {
	var cmds []tea.Cmd
	id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
	if msg.Duration > 0 {
		cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
	}
	return cmds
}

func (m *Model) handleRefresh(msg RefreshMsg) []tea.Cmd {
	var cmds []tea.Cmd
	if m.services == nil {
		return cmds
	}

	switch msg.Resource {
	case ResourceAll:
		m.state.SetLoading(ResourceMarket, true)
		cmds = append(cmds, loadMarketCmd(m.services, m.state.GetQuery()))
		if m.state.IsSignedIn() {
			m.state.SetLoading(ResourceWatchlist, true)
			cmds = append(cmds, loadWatchlistCmd(m.services))
		}
	case ResourceMarket:
		m.state.SetLoading(ResourceMarket, true)
		cmds = append(cmds, loadMarketCmd(m.services, m.state.GetQuery()))
	case ResourceWatchlist:
		if !m.state.IsSignedIn() {
			return []tea.Cmd{m.openSignIn(api.ReasonMessage(api.ReasonAuthRequired))}
		}
		m.state.SetLoading(ResourceWatchlist, true)
		cmds = append(cmds, loadWatchlistCmd(m.services))
	}
	if len(cmds) > 0 {
		m.state.SetLoadingNotification("Refreshing...")
	}
	return cmds
}

func (m *Model) updateActiveTab(msg tea.Msg) tea.Cmd {
	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		var cmd tea.Cmd
		m.tabs[m.activeTab], cmd = m.tabs[m.activeTab].Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) updateAllTabs(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	for i, tab := range m.tabs {
		if tab == nil {
			continue
		}
		var cmd tea.Cmd
		m.tabs[i], cmd = tab.Update(msg)
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m *Model) updateTabSizes() {
	contentHeight := max(0, m.height-5)

	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
}

func (m *Model) activeTabCapturesInput() bool {
	if int(m.activeTab) >= len(m.tabs) || m.tabs[m.activeTab] == nil {
		return false
	}
	c, ok := m.tabs[m.activeTab].(InputCapturer)
	return ok && c.CapturingInput()
}

// handleKeyMsg handles keyboard input. The second result reports whether
// the key was consumed and must not reach the active tab.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return tea.Quit, true
	}

	if m.showSignIn {
		var cmd tea.Cmd
		m.signIn, cmd = m.signIn.Update(msg)
		return cmd, true
	}

	if m.activeTabCapturesInput() {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		return nil, true

	case key.Matches(msg, m.keymap.Escape):
		if m.showHelp {
			m.showHelp = false
			return nil, true
		}

	case key.Matches(msg, m.keymap.Tab1):
		return m.switchTab(TabMarket), true

	case key.Matches(msg, m.keymap.Tab2):
		return m.switchTab(TabWatchlist), true

	case key.Matches(msg, m.keymap.Tab3):
		return m.switchTab(TabNetwork), true

	case key.Matches(msg, m.keymap.Tab4):
		return m.switchTab(TabInfo), true

	case key.Matches(msg, m.keymap.NextTab):
		if !m.showHelp {
			return m.switchTab(TabID((int(m.activeTab) + 1) % len(m.tabs))), true
		}
		return nil, true

	case key.Matches(msg, m.keymap.PrevTab):
		if !m.showHelp {
			return m.switchTab(TabID((int(m.activeTab) - 1 + len(m.tabs)) % len(m.tabs))), true
		}
		return nil, true

	case key.Matches(msg, m.keymap.Refresh):
		return tea.Batch(m.handleRefresh(RefreshMsg{Resource: ResourceAll})...), true

	case key.Matches(msg, m.keymap.SignIn):
		if m.state.IsSignedIn() {
			return func() tea.Msg { return LogoutMsg{} }, true
		}
		return m.openSignIn(""), true

	case key.Matches(msg, m.keymap.Theme):
		return m.toggleTheme(), true
	}

	return nil, false
}

func (m *Model) switchTab(id TabID) tea.Cmd {
	m.activeTab = id
	m.updateTabSizes()
	if id == TabWatchlist && m.state.IsSignedIn() && m.services != nil {
		m.state.SetLoading(ResourceWatchlist, true)
		return loadWatchlistCmd(m.services)
	}
	return nil
}

func (m *Model) toggleTheme() tea.Cmd {
	theme := styles.Apply(styles.Next(styles.Current()))
	m.styles = DefaultStyles()
	m.spinner.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	notify := func() tea.Msg { return ThemeChangedMsg{Theme: theme} }
	if m.services == nil {
		return notify
	}
	return setThemeCmd(m.services, theme)
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.AuthChangedEvent:
		return m.handleAuthChanged(e)

	case services.SignInRequiredEvent:
		m.state.RequireSignIn(e.Reason, e.Message)
		return m.openSignIn(e.Message)

	case services.NetworkEvent:
		m.state.SetNetwork(e.Status)
		status := e.Status
		return func() tea.Msg { return NetworkUpdatedMsg{Status: status} }

	case services.StorageChangedEvent:
		return m.handleStorageChanged()

	case services.ErrorEvent:
		return notifyErrorCmd(fmt.Sprintf("[%s] %v", e.Service, e.Error))
	}

	return nil
}

func (m *Model) handleAuthChanged(e services.AuthChangedEvent) tea.Cmd {
	m.state.SetAuth(e.State, e.User)
	forward := func() tea.Msg { return AuthChangedMsg{State: e.State, User: e.User} }

	if e.State == auth.Authenticated && e.From != auth.Authenticated && m.services != nil {
		return tea.Batch(forward, loadWatchlistCmd(m.services))
	}
	return forward
}

// handleStorageChanged picks up changes another process made to the shared
// credential store.
func (m *Model) handleStorageChanged() tea.Cmd {
	if m.services == nil {
		return nil
	}
	var cmds []tea.Cmd
	if theme := m.services.Theme(); theme != "" && theme != styles.Current() {
		styles.Apply(theme)
		m.styles = DefaultStyles()
		cmds = append(cmds, func() tea.Msg { return ThemeChangedMsg{Theme: theme} })
	}
	client := m.services.Client()
	m.state.SetAuth(client.State(), client.CurrentUser())
	if client.IsAuthenticated() {
		cmds = append(cmds, loadWatchlistCmd(m.services))
	}
	return tea.Batch(cmds...)
}

// View renders the application UI.
func (m *Model) View() string {
	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
	}

	if !m.ready {
		b.WriteString(m.styles.Content.Render(fmt.Sprintf("%s Loading...", m.spinner.View())))
		return b.String()
	}

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		b.WriteString(m.tabs[m.activeTab].View())
	} else {
		b.WriteString(m.renderPlaceholder())
	}

	mainView := b.String()

	switch {
	case m.showSignIn:
		mainView = m.overlayCentered(mainView, m.signIn.View(signInFormWidth))
	case m.showHelp:
		mainView = m.overlayCentered(mainView, m.renderHelp())
	}

	if notifications := m.renderNotifications(); len(notifications) > 0 {
		return m.overlayToasts(mainView, notifications)
	}

	return mainView
}

func (m *Model) overlayCentered(mainView string, overlay string) string {
	mainLines := strings.Split(mainView, "\n")
	overlayLines := strings.Split(overlay, "\n")
	for len(mainLines) < m.height {
		mainLines = append(mainLines, "")
	}

	overlayHeight := len(overlayLines)
	overlayWidth := lipgloss.Width(overlay)

	y := max((m.height-overlayHeight)/2, 0)
	x := max((m.width-overlayWidth)/2, 0)

	for i, overlayLine := range overlayLines {
		mainY := y + i
		if mainY >= len(mainLines) {
			break
		}

		mainLine := mainLines[mainY]

		left := ansi.Truncate(mainLine, x, "")
		right := ansi.TruncateLeft(mainLine, x+overlayWidth, "")

		if lipgloss.Width(left) < x {
			left += strings.Repeat(" ", x-lipgloss.Width(left))
		}

		mainLines[mainY] = left + overlayLine + right
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderNavbar() string {
	var tabs []string

	for i, name := range m.tabNames {
		if TabID(i) == m.activeTab {
			tabs = append(tabs, m.styles.ActiveTab.Render(fmt.Sprintf("[%d] %s", i+1, name)))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render(fmt.Sprintf(" %d  %s", i+1, name)))
		}
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	status := m.renderStatus()

	gap := m.width - lipgloss.Width(tabBar) - lipgloss.Width(status) - 4
	if gap > 0 {
		tabBar = tabBar + strings.Repeat(" ", gap) + status
	}

	return m.styles.TabBar.Width(m.width).Render(tabBar)
}

// renderStatus renders the latency indicator and the signed-in user.
func (m *Model) renderStatus() string {
	net := m.state.GetNetwork()
	level := net.Level()
	levelStyle := styles.GetLatencyStyle(level)

	latency := levelStyle.Render("● idle")
	if level != "idle" {
		latency = levelStyle.Render(fmt.Sprintf("● %dms", net.LastDurationMs))
	}
	if net.InFlight > 0 {
		latency = m.spinner.View() + " " + latency
	}
	if spark := components.RenderLatencySparkline(net.RecentMs, 12); spark != "" {
		latency += " " + spark
	}

	user := styles.AnonymousStyle.Render("signed out")
	if u := m.state.GetUser(); u != nil && m.state.IsSignedIn() {
		user = m.styles.Highlight.Render(u.DisplayName())
		if u.IsPremium {
			user += " " + styles.PremiumStyle.Render("★")
		}
	}

	return latency + m.styles.Subtle.Render("  │  ") + user
}

func (m *Model) renderNotifications() []string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return nil
	}

	toasts := make([]string, 0, len(notifications))
	for _, n := range notifications {
		var style lipgloss.Style
		var prefix string

		switch n.Type {
		case NotificationSuccess:
			style = m.styles.NotificationSuccess
			prefix = "[OK]"
		case NotificationError:
			style = m.styles.NotificationError
			prefix = "[ERR]"
		case NotificationWarning:
			style = m.styles.NotificationWarning
			prefix = "[WARN]"
		case NotificationInfo:
			style = m.styles.NotificationInfo
			prefix = "[INFO]"
		case NotificationLoading:
			style = m.styles.NotificationInfo
			prefix = m.spinner.View()
		}

		content := style.Render(fmt.Sprintf("%s %s", prefix, n.Message))
		toasts = append(toasts, m.styles.Toast.Render(content))
	}

	return toasts
}

func (m *Model) overlayToasts(mainView string, toasts []string) string {
	if len(toasts) == 0 {
		return mainView
	}

	toastStack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
	toastLines := strings.Split(toastStack, "\n")
	mainLines := strings.Split(mainView, "\n")

	toastWidth := lipgloss.Width(toastStack)
	startX := max(m.width-toastWidth-2, 0)

	startY := 2

	for i, toastLine := range toastLines {
		lineIdx := startY + i
		if lineIdx >= len(mainLines) {
			break
		}

		mainLine := mainLines[lineIdx]
		mainLineWidth := lipgloss.Width(mainLine)

		if mainLineWidth < startX {
			padding := strings.Repeat(" ", startX-mainLineWidth)
			mainLines[lineIdx] = mainLine + padding + toastLine
		} else {
			truncated := ansi.Truncate(mainLine, startX, "")
			mainLines[lineIdx] = truncated + toastLine
		}
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderHelp() string {
	var lines []string

	lines = append(lines, m.styles.Title.Render("Keyboard Shortcuts"))
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("Navigation"))
	lines = append(lines, "  1-4        Switch tabs")
	lines = append(lines, "  Tab        Next tab")
	lines = append(lines, "  Shift+Tab  Previous tab")
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("Actions"))
	lines = append(lines, "  r          Refresh data")
	lines = append(lines, "  L          Sign in / sign out")
	lines = append(lines, "  T          Toggle theme")
	lines = append(lines, "  ?          Toggle help")
	lines = append(lines, "  q/Ctrl+C   Quit")
	lines = append(lines, "")

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		tabHelp := m.tabs[m.activeTab].ShortHelp()
		if len(tabHelp) > 0 {
			lines = append(lines, m.styles.Highlight.Render(fmt.Sprintf("%s Tab", m.tabNames[m.activeTab])))
			for _, binding := range tabHelp {
				lines = append(lines, fmt.Sprintf("  %-10s %s", binding.Help().Key, binding.Help().Desc))
			}
		}
	}

	lines = append(lines, "")
	lines = append(lines, m.styles.Subtle.Render("Press ? or Esc to close"))

	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPlaceholder() string {
	content := fmt.Sprintf(
		"Tab %d: %s\n\n%s",
		m.activeTab+1,
		m.tabNames[m.activeTab],
		m.styles.Subtle.Render("This tab is not available."),
	)
	return m.styles.Content.Render(content)
}
