package app

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/stockscanner-tui/internal/api"
	"github.com/j-veylop/stockscanner-tui/internal/auth"
	"github.com/j-veylop/stockscanner-tui/internal/events"
	"github.com/j-veylop/stockscanner-tui/internal/models"
	"github.com/j-veylop/stockscanner-tui/internal/services"
	"github.com/j-veylop/stockscanner-tui/internal/ui/components"
	"github.com/j-veylop/stockscanner-tui/internal/ui/styles"
)

// stubTab records the messages it receives.
type stubTab struct {
	received  []tea.Msg
	capturing bool
}

func (s *stubTab) Init() tea.Cmd { return nil }

func (s *stubTab) Update(msg tea.Msg) (Tab, tea.Cmd) {
	s.received = append(s.received, msg)
	return s, nil
}

func (s *stubTab) View() string              { return "stub tab" }
func (s *stubTab) SetSize(int, int)          {}
func (s *stubTab) ShortHelp() []key.Binding  { return nil }
func (s *stubTab) FullHelp() [][]key.Binding { return nil }
func (s *stubTab) CapturingInput() bool      { return s.capturing }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func readyModel() *Model {
	m := NewModel(nil)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil)
	if model.state == nil {
		t.Error("State should be initialized")
	}
	if model.activeTab != TabMarket {
		t.Error("Default tab should be Market")
	}
	if len(model.tabs) != 4 {
		t.Errorf("Should have 4 tab placeholders, got %d", len(model.tabs))
	}
	if model.GetServices() != nil || model.GetCommands() == nil {
		t.Error("getters mismatch")
	}
}

func TestModel_Init(t *testing.T) {
	model := NewModel(nil)
	if model.Init() == nil {
		t.Error("Init returned nil command")
	}
	if n := model.state.GetNotifications(); len(n) != 1 || n[0].Type != NotificationLoading {
		t.Errorf("Init should show the loading notification, got %+v", n)
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	model := NewModel(nil)
	newModel, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 50})

	m, ok := newModel.(*Model)
	if !ok {
		t.Fatal("Update returned wrong model type")
	}
	if m.width != 100 || m.height != 50 {
		t.Errorf("size = %dx%d, want 100x50", m.width, m.height)
	}
	if !m.IsReady() {
		t.Error("Model should be ready after WindowSizeMsg")
	}
}

func TestModel_TabKeys(t *testing.T) {
	tests := []struct {
		name  string
		key   tea.KeyMsg
		start TabID
		want  TabID
	}{
		{"Digit2", runes("2"), TabMarket, TabWatchlist},
		{"Digit3", runes("3"), TabMarket, TabNetwork},
		{"Digit4", runes("4"), TabMarket, TabInfo},
		{"Digit1", runes("1"), TabInfo, TabMarket},
		{"NextWraps", tea.KeyMsg{Type: tea.KeyTab}, TabInfo, TabMarket},
		{"PrevWraps", tea.KeyMsg{Type: tea.KeyShiftTab}, TabMarket, TabInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := readyModel()
			m.activeTab = tt.start
			m.Update(tt.key)
			if m.GetActiveTab() != tt.want {
				t.Errorf("active tab = %v, want %v", m.GetActiveTab(), tt.want)
			}
		})
	}
}

func TestModel_TabSwitchMsg(t *testing.T) {
	m := readyModel()
	m.Update(TabSwitchMsg{Tab: TabNetwork})
	if m.activeTab != TabNetwork {
		t.Errorf("ActiveTab = %v, want Network", m.activeTab)
	}
}

func TestModel_Update_Tick(t *testing.T) {
	model := NewModel(nil)
	_, cmd := model.Update(TickMsg{Time: time.Now()})
	if cmd == nil {
		t.Error("TickMsg should return a command (next tick)")
	}
}

func TestModel_View(t *testing.T) {
	model := NewModel(nil)
	if !strings.Contains(model.View(), "Loading...") {
		t.Error("View should show Loading when not ready")
	}

	model = readyModel()
	view := model.View()
	for _, want := range []string{"Market", "Watchlist", "Network", "Info", "signed out", "idle"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
	if !strings.Contains(view, "not available") {
		t.Error("View should show placeholder text")
	}
}

func TestModel_Help(t *testing.T) {
	model := readyModel()

	model.Update(ToggleHelpMsg{})
	if !model.showHelp {
		t.Fatal("showHelp should be true")
	}
	if !strings.Contains(model.View(), "Keyboard Shortcuts") {
		t.Error("View should show help modal")
	}

	model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if model.showHelp {
		t.Error("esc should close help")
	}

	model.Update(runes("?"))
	if !model.showHelp {
		t.Error("? should open help")
	}
}

func TestModel_Notifications(t *testing.T) {
	model := readyModel()
	model.Update(AddNotificationMsg{Message: "Test Note", Type: NotificationInfo})

	if len(model.state.GetNotifications()) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(model.state.GetNotifications()))
	}
	if !strings.Contains(model.View(), "Test Note") {
		t.Error("View should show notification")
	}

	model.Update(RemoveNotificationMsg{ID: "nonexistent"})
	model.Update(ClearExpiredNotificationsMsg{})
	if len(model.state.GetNotifications()) != 1 {
		t.Error("unrelated removals should keep the notification")
	}
}

func TestModel_Loading(t *testing.T) {
	model := NewModel(nil)
	model.Init()

	model.Update(StartLoadingMsg{Resource: ResourceMarket})
	if !model.state.IsLoading(ResourceMarket) {
		t.Error("market should be loading")
	}

	model.Update(StopLoadingMsg{Resource: ResourceMarket})
	if model.state.AnyLoading() {
		t.Errorf("still loading: %v", model.state.GetLoadingResources())
	}
	if len(model.state.GetNotifications()) != 0 {
		t.Error("loading notification should be cleared once nothing loads")
	}
}

func TestModel_DataMessages(t *testing.T) {
	model := NewModel(nil)
	tab := &stubTab{}
	model.SetTabs([]Tab{tab, &stubTab{}, &stubTab{}, &stubTab{}})

	page := &models.StockPage{Results: []models.Stock{{Ticker: "AAPL"}}, Count: 1}
	model.Update(MarketLoadedMsg{Page: page, Stats: &models.MarketStats{}})
	if model.state.GetStockCount() != 1 || model.state.IsInitialLoading() {
		t.Error("market data should be stored and initial loading cleared")
	}
	if len(tab.received) == 0 {
		t.Error("market data should reach the tabs")
	}

	_, cmd := model.Update(MarketLoadedMsg{Error: errors.New("backend down")})
	if cmd == nil {
		t.Error("market error should produce a toast")
	}

	items := []models.WatchlistItem{{ID: "1", Ticker: "MSFT"}}
	model.Update(WatchlistLoadedMsg{Items: items, Error: api.ErrSessionExpired})
	if !model.state.IsWatched("MSFT") {
		t.Error("cached items should be shown on failure")
	}
	for _, n := range model.state.GetNotifications() {
		if n.Type == NotificationError {
			t.Error("sign-in errors must not toast")
		}
	}
}

func TestModel_WatchlistChanged(t *testing.T) {
	tests := []struct {
		name     string
		msg      WatchlistChangedMsg
		wantType NotificationType
		wantText string
		wantCmd  bool
	}{
		{"Added", WatchlistChangedMsg{Ticker: "AAPL"}, NotificationSuccess, "Added AAPL", true},
		{"Removed", WatchlistChangedMsg{Ticker: "AAPL", Removed: true}, NotificationSuccess, "Removed AAPL", true},
		{"Failed", WatchlistChangedMsg{Ticker: "AAPL", Error: errors.New("conflict")}, NotificationError, "conflict", true},
		{"NeedsSignIn", WatchlistChangedMsg{Ticker: "AAPL", Error: api.ErrUnauthorized}, 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := NewModel(nil)
			cmds := model.handleWatchlistChanged(tt.msg)
			if !tt.wantCmd {
				if len(cmds) != 0 {
					t.Errorf("got %d commands, want none", len(cmds))
				}
				return
			}
			msg, ok := cmds[0]().(AddNotificationMsg)
			if !ok {
				t.Fatalf("first command should notify, got %T", cmds[0]())
			}
			if msg.Type != tt.wantType || !strings.Contains(msg.Message, tt.wantText) {
				t.Errorf("notification = %+v", msg)
			}
		})
	}
}

func TestModel_SignInFlow(t *testing.T) {
	model := readyModel()

	model.Update(runes("L"))
	if !model.IsSignInVisible() {
		t.Fatal("L should open the sign-in form while signed out")
	}
	if !strings.Contains(model.View(), "Sign in") {
		t.Error("View should show the sign-in form")
	}

	// Keys go to the form, not the global bindings.
	_, cmd := model.Update(runes("q"))
	if cmd != nil {
		if _, quit := cmd().(tea.QuitMsg); quit {
			t.Fatal("q must be typed into the form")
		}
	}
	if model.activeTab != TabMarket {
		t.Error("tab keys must not switch tabs while the form is open")
	}

	model.Update(LoginResultMsg{Error: errors.New("Invalid username or password.")})
	if !model.IsSignInVisible() || !strings.Contains(model.View(), "Invalid username or password.") {
		t.Error("failed login should keep the form open with the error")
	}

	model.Update(LoginResultMsg{User: &models.User{Username: "demo"}})
	if model.IsSignInVisible() {
		t.Error("successful login should close the form")
	}

	model.Update(ShowSignInMsg{Message: "Please sign in."})
	model.Update(components.SignInCancelMsg{})
	if model.IsSignInVisible() {
		t.Error("cancel should close the form")
	}
}

func TestModel_SignOutKey(t *testing.T) {
	model := readyModel()
	model.state.SetAuth(auth.Authenticated, &models.User{Username: "demo"})

	cmd, _ := model.handleKeyMsg(runes("L"))
	if cmd == nil {
		t.Fatal("L should sign out while signed in")
	}
	if _, ok := cmd().(LogoutMsg); !ok {
		t.Errorf("got %T, want LogoutMsg", cmd())
	}
	if model.IsSignInVisible() {
		t.Error("sign out must not open the form")
	}
}

func TestModel_InputCapture(t *testing.T) {
	model := readyModel()
	tab := &stubTab{capturing: true}
	model.SetTabs([]Tab{tab, &stubTab{}, &stubTab{}, &stubTab{}})

	_, consumed := model.handleKeyMsg(runes("2"))
	if consumed || model.activeTab != TabMarket {
		t.Error("capturing tab should receive global keys")
	}
	model.Update(runes("q"))
	if len(tab.received) == 0 {
		t.Error("key should reach the capturing tab")
	}

	cmd, consumed := model.handleKeyMsg(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !consumed || cmd == nil {
		t.Error("ctrl+c always quits")
	}
}

func TestModel_ThemeToggle(t *testing.T) {
	t.Cleanup(func() { styles.Apply(styles.ThemeDark) })
	styles.Apply(styles.ThemeDark)

	model := readyModel()
	cmd, _ := model.handleKeyMsg(runes("T"))
	if cmd == nil {
		t.Fatal("theme key returned no command")
	}
	if styles.Current() != styles.ThemeLight {
		t.Errorf("theme = %q, want light", styles.Current())
	}
	if msg, ok := cmd().(ThemeChangedMsg); !ok || msg.Theme != styles.ThemeLight {
		t.Errorf("got %#v", cmd())
	}
}

func TestModel_HandleServiceEvent(t *testing.T) {
	model := readyModel()

	user := &models.User{Username: "demo", IsPremium: true}
	if cmd := model.handleServiceEvent(services.AuthChangedEvent{User: user, From: auth.Anonymous, State: auth.Authenticated}); cmd == nil {
		t.Error("auth change should be forwarded")
	}
	if !model.state.IsSignedIn() || !strings.Contains(model.View(), "demo") {
		t.Error("signed-in user should show in the navbar")
	}

	model.handleServiceEvent(services.SignInRequiredEvent{
		Reason:  api.ReasonSessionExpired,
		Message: api.ReasonMessage(api.ReasonSessionExpired),
	})
	if !model.IsSignInVisible() {
		t.Error("sign-in redirect should open the form")
	}
	if p := model.state.GetSignIn(); p == nil || p.Reason != api.ReasonSessionExpired {
		t.Errorf("prompt = %+v", p)
	}

	status := models.NetworkStatus{LastDurationMs: 420, LastStatus: 200, RecentMs: []float64{120, 420}}
	cmd := model.handleServiceEvent(services.NetworkEvent{Event: events.Event{Type: events.End}, Status: status})
	if msg, ok := cmd().(NetworkUpdatedMsg); !ok || msg.Status.LastDurationMs != 420 {
		t.Errorf("got %#v", cmd())
	}
	model.showSignIn = false
	if !strings.Contains(model.View(), "420ms") {
		t.Error("navbar should show the last latency")
	}

	if model.handleServiceEvent(services.ErrorEvent{Service: "db", Error: errors.New("locked")}) == nil {
		t.Error("error event should trigger notification command")
	}
	if model.handleServiceEvent(services.StorageChangedEvent{}) != nil {
		t.Error("storage change without services is ignored")
	}
}

func TestModel_AddToWatchlistRequiresSignIn(t *testing.T) {
	mgr := newTestManager(t)
	model := NewModel(mgr)
	model.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	model.Update(AddToWatchlistMsg{Ticker: "AAPL"})
	if !model.IsSignInVisible() {
		t.Fatal("adding while signed out should open the sign-in form")
	}

	model.showSignIn = false
	signIn(t, mgr)
	model.state.SetAuth(mgr.Client().State(), mgr.Client().CurrentUser())
	model.state.SetWatchlist([]models.WatchlistItem{{ID: "1", Ticker: "AAPL"}}, nil)

	cmds := model.handleAddToWatchlist(AddToWatchlistMsg{Ticker: "AAPL"})
	if msg, ok := cmds[0]().(AddNotificationMsg); !ok || !strings.Contains(msg.Message, "already") {
		t.Errorf("duplicate add should only notify, got %#v", cmds[0]())
	}
}

func TestModel_RefreshWatchlistRequiresSignIn(t *testing.T) {
	mgr := newTestManager(t)
	model := NewModel(mgr)

	model.Update(RefreshMsg{Resource: ResourceWatchlist})
	if !model.IsSignInVisible() {
		t.Error("refreshing the watchlist while signed out should prompt sign-in")
	}

	model.showSignIn = false
	model.Update(RefreshMsg{Resource: ResourceMarket})
	if !model.state.IsLoading(ResourceMarket) {
		t.Error("market refresh should mark market loading")
	}
}

func TestModel_HandleSpinnerTick(t *testing.T) {
	model := NewModel(nil)
	_, cmd := model.Update(spinner.TickMsg{})
	if cmd == nil {
		t.Error("Spinner tick should return command")
	}
}

func TestTabID_String(t *testing.T) {
	tests := []struct {
		want string
		id   TabID
	}{
		{"Market", TabMarket},
		{"Watchlist", TabWatchlist},
		{"Network", TabNetwork},
		{"Info", TabInfo},
		{"Unknown", TabID(999)},
	}
	for _, tt := range tests {
		if got := tt.id.String(); got != tt.want {
			t.Errorf("TabID(%d).String() = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()
	if len(km.ShortHelp()) == 0 {
		t.Error("ShortHelp empty")
	}
	if len(km.FullHelp()) != 4 {
		t.Errorf("FullHelp has %d groups, want 4", len(km.FullHelp()))
	}
}
