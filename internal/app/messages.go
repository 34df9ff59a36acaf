package app

import (
	"time"

	"github.com/j-veylop/stockscanner-tui/internal/auth"
	"github.com/j-veylop/stockscanner-tui/internal/models"
	"github.com/j-veylop/stockscanner-tui/internal/services"
)

// TickMsg is sent periodically to expire notifications and age the session display.
type TickMsg struct {
	Time time.Time
}

// StartLoadingMsg indicates that loading has started for a resource.
type StartLoadingMsg struct {
	Resource string
}

// StopLoadingMsg indicates that loading has stopped for a resource.
type StopLoadingMsg struct {
	Resource string
}

// MarketLoadedMsg carries a stock listing and the market summary.
type MarketLoadedMsg struct {
	Page  *models.StockPage
	Stats *models.MarketStats
	Error error
}

// WatchlistLoadedMsg carries the watchlist and portfolio of the signed-in user.
type WatchlistLoadedMsg struct {
	Items     []models.WatchlistItem
	Portfolio *models.Portfolio
	Error     error
}

// AddToWatchlistMsg asks the root model to add a ticker to the watchlist.
type AddToWatchlistMsg struct {
	Ticker string
}

// RemoveFromWatchlistMsg asks the root model to remove a watchlist entry.
type RemoveFromWatchlistMsg struct {
	ID     string
	Ticker string
}

// WatchlistChangedMsg reports the result of an add or remove.
type WatchlistChangedMsg struct {
	Error   error
	Ticker  string
	Removed bool
}

// LoginResultMsg reports the result of a sign-in attempt.
type LoginResultMsg struct {
	User  *models.User
	Error error
}

// LogoutMsg asks the root model to sign out.
type LogoutMsg struct{}

// LogoutResultMsg reports the result of a sign-out.
type LogoutResultMsg struct {
	Error error
}

// AuthChangedMsg mirrors an auth state transition for the tabs.
type AuthChangedMsg struct {
	User  *models.User
	State auth.State
}

// ShowSignInMsg opens the sign-in form.
type ShowSignInMsg struct {
	Reason  string
	Message string
}

// NetworkUpdatedMsg carries a new pipeline snapshot for the tabs.
type NetworkUpdatedMsg struct {
	Status models.NetworkStatus
}

// ThemeChangedMsg reports a theme switch.
type ThemeChangedMsg struct {
	Error error
	Theme string
}

// RefreshMsg requests a refresh of a specific resource.
type RefreshMsg struct {
	Resource string
}

// AddNotificationMsg requests adding a notification.
type AddNotificationMsg struct {
	Message  string
	Type     NotificationType
	Duration time.Duration
}

// RemoveNotificationMsg requests removing a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ClearExpiredNotificationsMsg triggers cleanup of expired notifications.
type ClearExpiredNotificationsMsg struct{}

// SubscriptionEventMsg hands the service event channel to the root model.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ServiceEventMsg wraps a service event for the Bubble Tea message system.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help overlay.
type ToggleHelpMsg struct{}
