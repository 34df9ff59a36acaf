// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"strconv"
	"sync"
	"time"

	"github.com/j-veylop/stockscanner-tui/internal/auth"
	"github.com/j-veylop/stockscanner-tui/internal/models"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	maxNotifications = 10
)

// Loadable resources.
const (
	ResourceInitial   = "initial"
	ResourceMarket    = "market"
	ResourceWatchlist = "watchlist"
	ResourceNetwork   = "network"
	ResourceAll       = "all"
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	CreatedAt time.Time
	ID        string
	Message   string
	Type      NotificationType
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// LoadingState tracks loading states for different resources.
type LoadingState struct {
	Initial   bool
	Market    bool
	Watchlist bool
	Network   bool
}

// SignInPrompt is the pending request to show the sign-in form.
type SignInPrompt struct {
	Reason  string
	Message string
}

// State is the UI state shared between the root model and the tabs. The
// root model writes it from Update; tabs read it from View.
type State struct {
	mu sync.RWMutex

	User      *models.User
	AuthState auth.State
	SignIn    *SignInPrompt

	Query     models.StockQuery
	Stocks    *models.StockPage
	Stats     *models.MarketStats
	Watchlist []models.WatchlistItem
	Portfolio *models.Portfolio
	Network   models.NetworkStatus

	Loading LoadingState

	LastUpdated time.Time

	notifications   []Notification
	notificationSeq int
}

// NewState creates an empty state that is waiting for its first load.
func NewState() *State {
	return &State{
		Query:         models.StockQuery{Sort: "ticker"},
		Watchlist:     make([]models.WatchlistItem, 0),
		notifications: make([]Notification, 0),
		Loading: LoadingState{
			Initial: true,
		},
	}
}

// SetLoading sets the loading state for a specific resource.
func (s *State) SetLoading(resource string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch resource {
	case ResourceInitial:
		s.Loading.Initial = loading
	case ResourceMarket:
		s.Loading.Market = loading
	case ResourceWatchlist:
		s.Loading.Watchlist = loading
	case ResourceNetwork:
		s.Loading.Network = loading
	case ResourceAll:
		s.Loading.Market = loading
		s.Loading.Watchlist = loading
	}
}

// AnyLoading returns true if any resource is currently loading.
func (s *State) AnyLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.Loading.Initial ||
		s.Loading.Market ||
		s.Loading.Watchlist ||
		s.Loading.Network
}

// IsInitialLoading returns true if initial data is still loading.
func (s *State) IsInitialLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Initial
}

// IsLoading reports whether a single resource is loading.
func (s *State) IsLoading(resource string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch resource {
	case ResourceInitial:
		return s.Loading.Initial
	case ResourceMarket:
		return s.Loading.Market
	case ResourceWatchlist:
		return s.Loading.Watchlist
	case ResourceNetwork:
		return s.Loading.Network
	}
	return false
}

// GetLoadingResources returns a list of currently loading resources.
func (s *State) GetLoadingResources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var resources []string
	if s.Loading.Initial {
		resources = append(resources, ResourceInitial)
	}
	if s.Loading.Market {
		resources = append(resources, ResourceMarket)
	}
	if s.Loading.Watchlist {
		resources = append(resources, ResourceWatchlist)
	}
	if s.Loading.Network {
		resources = append(resources, ResourceNetwork)
	}
	return resources
}

// SetAuth records the signed-in user and auth state. A nil user clears
// everything that belongs to the previous account.
func (s *State) SetAuth(state auth.State, user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.AuthState = state
	s.User = user
	if state != auth.Authenticated {
		s.User = nil
		s.Watchlist = make([]models.WatchlistItem, 0)
		s.Portfolio = nil
	}
}

// GetUser returns the signed-in user, or nil.
func (s *State) GetUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.User
}

// GetAuthState returns the auth state last reported by the client.
func (s *State) GetAuthState() auth.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.AuthState
}

// IsSignedIn reports whether the client is authenticated.
func (s *State) IsSignedIn() bool {
	return s.GetAuthState() == auth.Authenticated
}

// RequireSignIn records a pending sign-in prompt.
func (s *State) RequireSignIn(reason, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SignIn = &SignInPrompt{Reason: reason, Message: message}
}

// ClearSignIn drops the pending sign-in prompt.
func (s *State) ClearSignIn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SignIn = nil
}

// GetSignIn returns the pending sign-in prompt, or nil.
func (s *State) GetSignIn() *SignInPrompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SignIn
}

// SetQuery replaces the stock listing query.
func (s *State) SetQuery(q models.StockQuery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Query = q
}

// GetQuery returns the stock listing query.
func (s *State) GetQuery() models.StockQuery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Query
}

// SetMarket stores the latest listing and market summary. Nil arguments
// keep the previous value.
func (s *State) SetMarket(page *models.StockPage, stats *models.MarketStats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if page != nil {
		s.Stocks = page
	}
	if stats != nil {
		s.Stats = stats
	}
	s.LastUpdated = time.Now()
}

// GetStocks returns a copy of the current stock rows.
func (s *State) GetStocks() []models.Stock {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Stocks == nil {
		return nil
	}
	stocks := make([]models.Stock, len(s.Stocks.Results))
	copy(stocks, s.Stocks.Results)
	return stocks
}

// GetStockCount returns the total number of stocks matching the query.
func (s *State) GetStockCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Stocks == nil {
		return 0
	}
	return s.Stocks.Count
}

// GetStats returns the market summary.
func (s *State) GetStats() *models.MarketStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stats
}

// SetWatchlist replaces the watchlist and portfolio. A nil portfolio keeps the previous one.
func (s *State) SetWatchlist(items []models.WatchlistItem, portfolio *models.Portfolio) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Watchlist = items
	if portfolio != nil {
		s.Portfolio = portfolio
	}
	s.LastUpdated = time.Now()
}

// GetWatchlist returns a copy of the watchlist.
func (s *State) GetWatchlist() []models.WatchlistItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.WatchlistItem, len(s.Watchlist))
	copy(items, s.Watchlist)
	return items
}

// IsWatched reports whether ticker is already on the watchlist.
func (s *State) IsWatched(ticker string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.Watchlist {
		if item.Ticker == ticker {
			return true
		}
	}
	return false
}

// GetPortfolio returns the portfolio, or nil.
func (s *State) GetPortfolio() *models.Portfolio {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Portfolio
}

// SetNetwork stores the latest pipeline snapshot.
func (s *State) SetNetwork(status models.NetworkStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Network = status
}

// GetNetwork returns the latest pipeline snapshot.
func (s *State) GetNetwork() models.NetworkStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Network
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := time.Now().Format("20060102150405") + "-" + strconv.Itoa(s.notificationSeq)

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// ClearAllNotifications removes all notifications.
func (s *State) ClearAllNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = make([]Notification, 0)
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// GetLastUpdated returns the last time market or watchlist data arrived.
func (s *State) GetLastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastUpdated
}

// TimeSinceUpdate returns the duration since the last update.
func (s *State) TimeSinceUpdate() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LastUpdated.IsZero() {
		return 0
	}
	return time.Since(s.LastUpdated)
}
