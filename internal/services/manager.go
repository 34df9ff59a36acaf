// Package services provides service orchestration for the TUI and CLI.
package services

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/j-veylop/stockscanner-tui/internal/api"
	"github.com/j-veylop/stockscanner-tui/internal/auth"
	"github.com/j-veylop/stockscanner-tui/internal/config"
	"github.com/j-veylop/stockscanner-tui/internal/db"
	"github.com/j-veylop/stockscanner-tui/internal/events"
	"github.com/j-veylop/stockscanner-tui/internal/logger"
	"github.com/j-veylop/stockscanner-tui/internal/models"
	"github.com/j-veylop/stockscanner-tui/internal/queue"
	"github.com/j-veylop/stockscanner-tui/internal/ratelimit"
	"github.com/j-veylop/stockscanner-tui/internal/session"
	"github.com/j-veylop/stockscanner-tui/internal/storage"
)

const (
	// KeyTheme stores the UI theme preference.
	KeyTheme = "theme"

	requestLogRetention  = 7 * 24 * time.Hour
	recentLatencySamples = 40
)

type (
	// AuthChangedEvent is emitted when the client's auth state changes.
	AuthChangedEvent struct {
		User  *models.User
		From  auth.State
		State auth.State
	}

	// SignInRequiredEvent is emitted when the client forces a sign-out.
	SignInRequiredEvent struct {
		Reason  string
		Target  string
		Message string
	}

	// NetworkEvent is emitted for every network bus event, together with the
	// updated pipeline snapshot.
	NetworkEvent struct {
		Event  events.Event
		Status models.NetworkStatus
	}

	// StorageChangedEvent is emitted when another process changed stored keys.
	StorageChangedEvent struct {
		Keys []string
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (AuthChangedEvent) isServiceEvent()    {}
func (SignInRequiredEvent) isServiceEvent() {}
func (NetworkEvent) isServiceEvent()        {}
func (StorageChangedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()          {}

// Notifier shows a desktop notification.
type Notifier func(title, body string) error

// Option customizes a Manager.
type Option func(*Manager)

// WithTransport replaces the HTTP transport of the API client.
func WithTransport(rt http.RoundTripper) Option {
	return func(m *Manager) { m.transport = rt }
}

// WithNotifier replaces desktop notifications.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notify = n }
}

// Manager wires storage, the API client, the network bus and the request
// log together and routes their events to subscribers.
type Manager struct {
	mu          sync.RWMutex
	statusMu    sync.Mutex
	cfg         *config.Config
	client      *api.Client
	store       *storage.Storage
	database    *db.DB
	file        *storage.FileBackend
	bus         *events.Bus
	busEvents   <-chan events.Event
	unsubscribe func()
	transport   http.RoundTripper
	notify      Notifier
	eventChan   chan ServiceEvent
	routerDone  chan struct{}
	subscribers []chan<- ServiceEvent
	inFlight    map[string]struct{}
	status      models.NetworkStatus
	closeOnce   sync.Once
}

// NewManager creates a new service manager.
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:        cfg,
		notify:     func(title, body string) error { return beeep.Notify(title, body, "") },
		eventChan:  make(chan ServiceEvent, 100),
		routerDone: make(chan struct{}),
		inFlight:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	var err error
	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := m.openStorage(); err != nil {
		_ = m.database.Close()
		return nil, err
	}

	if err := m.openClient(); err != nil {
		_ = m.closeStorage()
		_ = m.database.Close()
		return nil, err
	}

	if n, err := m.database.PruneRequests(requestLogRetention); err != nil {
		logger.Warn("failed to prune request log", "error", err)
	} else if n > 0 {
		logger.Debug("pruned request log", "rows", n)
	}

	go m.routeEvents()

	return m, nil
}

func (m *Manager) openStorage() error {
	var backend storage.Backend = m.database

	if m.cfg.StorageBackend == config.StorageFile {
		fb, err := storage.NewFileBackend(m.cfg.CredentialsPath)
		if err != nil {
			return fmt.Errorf("failed to open credentials file: %w", err)
		}
		m.file = fb
		backend = fb
	}

	store, err := storage.New(backend, m.cfg.StorageSecret)
	if err != nil {
		_ = m.closeStorage()
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	m.store = store
	return nil
}

func (m *Manager) closeStorage() error {
	if m.file == nil {
		return nil
	}
	return m.file.Close()
}

func (m *Manager) openClient() error {
	m.bus = events.NewBus()
	m.busEvents, m.unsubscribe = m.bus.Subscribe(256)

	retry := api.DefaultRetryPolicy()
	retry.MaxAttempts = m.cfg.RetryMaxAttempts
	if m.cfg.RetryBaseDelay > 0 {
		retry.BaseDelay = m.cfg.RetryBaseDelay
	}

	client, err := api.New(api.Options{
		Transport:        m.transport,
		Store:            m.store,
		Bus:              m.bus,
		Navigator:        api.NavigatorFunc(m.handleSignInRequired),
		Session:          session.NewManager(m.cfg.SessionIdleTimeout, session.WithStore(m.store)),
		Limiter:          ratelimit.New(m.cfg.RateLimitMax, m.cfg.RateLimitWindow),
		Queue:            queue.New(m.cfg.QueueConcurrency),
		Retry:            &retry,
		BaseURL:          m.cfg.APIBaseURL,
		Environment:      m.cfg.Environment,
		Timeout:          m.cfg.RequestTimeout,
		RefreshThreshold: m.cfg.TokenRefreshThreshold,
		SlowThreshold:    m.cfg.SlowRequestThreshold,
	})
	if err != nil {
		m.unsubscribe()
		return fmt.Errorf("failed to create API client: %w", err)
	}

	client.OnStateChange(func(from, to auth.State) {
		m.broadcast(AuthChangedEvent{From: from, State: to, User: client.CurrentUser()})
	})
	m.client = client
	return nil
}

// routeEvents routes network and storage events to subscribers. It returns
// once the bus subscription is closed and drained.
func (m *Manager) routeEvents() {
	defer close(m.routerDone)

	var fileEvents <-chan storage.Event
	if m.file != nil {
		fileEvents = m.file.Events()
	}

	for {
		select {
		case ev, ok := <-m.busEvents:
			if !ok {
				return
			}
			m.handleNetworkEvent(ev)

		case ev, ok := <-fileEvents:
			if !ok {
				fileEvents = nil
				continue
			}
			m.handleStorageEvent(ev)
		}
	}
}

func (m *Manager) handleNetworkEvent(ev events.Event) {
	status := m.recordStatus(ev)

	switch ev.Type {
	case events.End, events.Error:
		m.logRequest(ev)
	}

	if ev.Type == events.End && ev.Status == http.StatusTooManyRequests {
		m.notifyDesktop("Stock Scanner", "The server is rate limiting requests. Slow down for a moment.")
	}

	m.broadcast(NetworkEvent{Event: ev, Status: status})
}

// recordStatus folds ev into the live pipeline snapshot.
func (m *Manager) recordStatus(ev events.Event) models.NetworkStatus {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()

	switch ev.Type {
	case events.Start:
		m.inFlight[ev.RequestID] = struct{}{}

	case events.Slow:
		m.status.SlowCount++

	case events.End:
		delete(m.inFlight, ev.RequestID)
		m.status.LastAt = ev.Time
		m.status.LastURL = ev.URL
		m.status.LastStatus = ev.Status
		m.status.LastDurationMs = ev.Duration.Milliseconds()
		m.status.RecentMs = append(m.status.RecentMs, float64(ev.Duration.Milliseconds()))
		if len(m.status.RecentMs) > recentLatencySamples {
			m.status.RecentMs = m.status.RecentMs[len(m.status.RecentMs)-recentLatencySamples:]
		}

	case events.Error:
		delete(m.inFlight, ev.RequestID)
		m.status.ErrorCount++
	}

	m.status.InFlight = len(m.inFlight)
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() models.NetworkStatus {
	s := m.status
	s.RecentMs = append([]float64(nil), m.status.RecentMs...)
	return s
}

func (m *Manager) logRequest(ev events.Event) {
	rec := &models.RequestRecord{
		Timestamp:  ev.Time,
		RequestID:  ev.RequestID,
		Method:     ev.Method,
		URL:        ev.URL,
		StatusCode: ev.Status,
		DurationMs: ev.Duration.Milliseconds(),
		Slow:       ev.Duration > m.slowThreshold(),
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
	}
	if err := m.database.InsertRequest(rec); err != nil {
		logger.Error("failed to log request", "error", err)
	}
}

func (m *Manager) slowThreshold() time.Duration {
	if m.cfg.SlowRequestThreshold > 0 {
		return m.cfg.SlowRequestThreshold
	}
	return api.DefaultSlowThreshold
}

func (m *Manager) handleStorageEvent(ev storage.Event) {
	switch ev.Type {
	case storage.EventChanged:
		logger.Info("stored credentials changed externally", "keys", ev.Keys)
		m.client.Resync()
		m.broadcast(StorageChangedEvent{Keys: ev.Keys})

	case storage.EventError:
		m.broadcast(ErrorEvent{Service: "storage", Error: ev.Error})
	}
}

func (m *Manager) handleSignInRequired(reason string) {
	msg := api.ReasonMessage(reason)
	logger.Info("sign-in required", "target", api.SignInTarget(reason))

	m.notifyDesktop("Stock Scanner: signed out", msg)
	m.broadcast(SignInRequiredEvent{
		Reason:  reason,
		Target:  api.SignInTarget(reason),
		Message: msg,
	})
}

func (m *Manager) notifyDesktop(title, body string) {
	if m.notify == nil {
		return
	}
	if err := m.notify(title, body); err != nil {
		logger.Debug("desktop notification failed", "error", err)
	}
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	select {
	case m.eventChan <- event:
	default:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return event
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Client returns the API client.
func (m *Manager) Client() *api.Client {
	return m.client
}

// Store returns secure storage.
func (m *Manager) Store() *storage.Storage {
	return m.store
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Config returns the configuration the manager was built from.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// NetworkStatus returns the live pipeline snapshot.
func (m *Manager) NetworkStatus() models.NetworkStatus {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	return m.snapshotLocked()
}

// RecentRequests returns the newest logged requests.
func (m *Manager) RecentRequests(limit int) ([]models.RequestRecord, error) {
	return m.database.GetRecentRequests(limit)
}

// LatencySummary aggregates logged requests over the last hours.
func (m *Manager) LatencySummary(hours int) (*models.LatencySummary, error) {
	return m.database.GetLatencySummary(hours)
}

// HourlyLatency returns per-hour request statistics over the last hours.
func (m *Manager) HourlyLatency(hours int) ([]models.HourlyLatency, error) {
	return m.database.GetHourlyLatency(hours)
}

// Theme returns the stored theme name, or "" when none is set.
func (m *Manager) Theme() string {
	var name string
	if _, err := m.store.Get(KeyTheme, &name, false); err != nil {
		logger.Debug("stored theme unreadable", "error", err)
		return ""
	}
	return name
}

// SetTheme stores the theme name.
func (m *Manager) SetTheme(name string) error {
	return m.store.Set(KeyTheme, name, false)
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	var errs []error

	m.closeOnce.Do(func() {
		// Pending events still reach the request log.
		m.unsubscribe()
		<-m.routerDone

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		m.bus.Close()

		if err := m.closeStorage(); err != nil {
			errs = append(errs, err)
		}
		if err := m.database.Close(); err != nil {
			errs = append(errs, err)
		}
	})

	return errors.Join(errs...)
}
