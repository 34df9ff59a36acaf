package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/stockscanner-tui/internal/api"
	"github.com/j-veylop/stockscanner-tui/internal/models"
	"github.com/j-veylop/stockscanner-tui/internal/services"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second
)

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// defaultTickCmd returns a command that sends a TickMsg after the default interval.
func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// loadInitialData loads the public market data and, when a credential is
// already stored, the signed-in user's watchlist.
func loadInitialData(mgr *services.Manager, q models.StockQuery) tea.Cmd {
	cmds := []tea.Cmd{loadMarketCmd(mgr, q)}
	if mgr.Client().IsAuthenticated() {
		cmds = append(cmds, loadWatchlistCmd(mgr))
	}
	return tea.Batch(cmds...)
}

// loadMarketCmd fetches the stock listing and market summary together.
func loadMarketCmd(mgr *services.Manager, q models.StockQuery) tea.Cmd {
	return func() tea.Msg {
		var msg MarketLoadedMsg
		g, ctx := errgroup.WithContext(context.Background())
		g.Go(func() error {
			page, err := mgr.Client().Stocks(ctx, q)
			msg.Page = page
			return err
		})
		g.Go(func() error {
			stats, err := mgr.Client().MarketStats(ctx)
			msg.Stats = stats
			return err
		})
		msg.Error = g.Wait()
		return msg
	}
}

// loadWatchlistCmd fetches the watchlist and portfolio. Both endpoints need
// a session, so a failure on either is reported once.
func loadWatchlistCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		items, err := mgr.Client().Watchlist(ctx)
		if err != nil {
			return WatchlistLoadedMsg{Items: mgr.Client().CachedWatchlist(), Error: err}
		}
		portfolio, err := mgr.Client().Portfolio(ctx)
		return WatchlistLoadedMsg{Items: items, Portfolio: portfolio, Error: err}
	}
}

// loginCmd signs in with the given credentials.
func loginCmd(mgr *services.Manager, username, password string) tea.Cmd {
	return func() tea.Msg {
		user, err := mgr.Client().Login(context.Background(), username, password)
		return LoginResultMsg{User: user, Error: err}
	}
}

// logoutCmd signs out. Local credentials are cleared even when the server call fails.
func logoutCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		return LogoutResultMsg{Error: mgr.Client().Logout(context.Background())}
	}
}

// addToWatchlistCmd adds a ticker to the watchlist.
func addToWatchlistCmd(mgr *services.Manager, ticker string) tea.Cmd {
	return func() tea.Msg {
		_, err := mgr.Client().AddToWatchlist(context.Background(), models.WatchlistAddRequest{Ticker: ticker})
		return WatchlistChangedMsg{Ticker: ticker, Error: err}
	}
}

// removeFromWatchlistCmd removes a watchlist entry.
func removeFromWatchlistCmd(mgr *services.Manager, id, ticker string) tea.Cmd {
	return func() tea.Msg {
		err := mgr.Client().RemoveFromWatchlist(context.Background(), id)
		return WatchlistChangedMsg{Ticker: ticker, Removed: true, Error: err}
	}
}

// setThemeCmd persists the theme preference.
func setThemeCmd(mgr *services.Manager, theme string) tea.Cmd {
	return func() tea.Msg {
		return ThemeChangedMsg{Theme: theme, Error: mgr.SetTheme(theme)}
	}
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch, _ := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

// needsSignIn reports whether err is handled by the sign-in prompt rather
// than a toast.
func needsSignIn(err error) bool {
	return errors.Is(err, api.ErrSessionExpired) ||
		errors.Is(err, api.ErrUnauthorized) ||
		errors.Is(err, api.ErrTokenRefresh)
}

// notifySuccessCmd returns a command that adds a success notification.
func notifySuccessCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationSuccess,
			Message:  message,
			Duration: DefaultNotificationDuration,
		}
	}
}

// notifyErrorCmd returns a command that adds an error notification.
func notifyErrorCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationError,
			Message:  message,
			Duration: LongNotificationDuration,
		}
	}
}

// notifyWarningCmd returns a command that adds a warning notification.
func notifyWarningCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationWarning,
			Message:  message,
			Duration: DefaultNotificationDuration,
		}
	}
}

// notifyInfoCmd returns a command that adds an info notification.
func notifyInfoCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationInfo,
			Message:  message,
			Duration: QuickNotificationDuration,
		}
	}
}

// Commands provides a public interface to the command functions for tabs.
type Commands struct {
	manager *services.Manager
}

// NewCommands creates a new Commands instance.
func NewCommands(mgr *services.Manager) *Commands {
	return &Commands{manager: mgr}
}

// Refresh asks the root model to reload a resource.
func (c *Commands) Refresh(resource string) tea.Cmd {
	return func() tea.Msg { return RefreshMsg{Resource: resource} }
}

// AddToWatchlist asks the root model to add a ticker.
func (c *Commands) AddToWatchlist(ticker string) tea.Cmd {
	return func() tea.Msg { return AddToWatchlistMsg{Ticker: ticker} }
}

// RemoveFromWatchlist asks the root model to remove a watchlist entry.
func (c *Commands) RemoveFromWatchlist(id, ticker string) tea.Cmd {
	return func() tea.Msg { return RemoveFromWatchlistMsg{ID: id, Ticker: ticker} }
}

// ShowSignIn opens the sign-in form without a reason.
func (c *Commands) ShowSignIn() tea.Cmd {
	return func() tea.Msg { return ShowSignInMsg{} }
}

// NotifySuccess returns a command that adds a success notification.
func (c *Commands) NotifySuccess(message string) tea.Cmd {
	return notifySuccessCmd(message)
}

// NotifyError returns a command that adds an error notification.
func (c *Commands) NotifyError(message string) tea.Cmd {
	return notifyErrorCmd(message)
}

// NotifyWarning returns a command that adds a warning notification.
func (c *Commands) NotifyWarning(message string) tea.Cmd {
	return notifyWarningCmd(message)
}

// NotifyInfo returns a command that adds an info notification.
func (c *Commands) NotifyInfo(message string) tea.Cmd {
	return notifyInfoCmd(message)
}
