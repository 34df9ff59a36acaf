// Package session tracks user activity against an idle timeout.
package session

import (
	"sync"
	"time"

	"github.com/j-veylop/stockscanner-tui/internal/logger"
)

// StorageKey is the key the session record is persisted under.
const StorageKey = "session"

// DefaultIdleTimeout is how long a session survives without activity.
const DefaultIdleTimeout = 30 * time.Minute

// Session is the persisted session record.
type Session struct {
	StartedAt      time.Time `json:"startedAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// Store persists the session record. storage.Storage satisfies it.
type Store interface {
	Set(key string, value any, encrypt bool) error
	Get(key string, dst any, decrypt bool) (bool, error)
	Remove(key string) error
}

// Manager tracks the current session. It is safe for concurrent use.
type Manager struct {
	mu          sync.Mutex
	store       Store
	now         func() time.Time
	current     *Session
	idleTimeout time.Duration
	loaded      bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithStore persists the session so separate processes share it.
func WithStore(store Store) Option {
	return func(m *Manager) { m.store = store }
}

// NewManager creates a Manager. A non-positive idleTimeout uses DefaultIdleTimeout.
func NewManager(idleTimeout time.Duration, opts ...Option) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	m := &Manager{
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IdleTimeout returns the configured idle threshold.
func (m *Manager) IdleTimeout() time.Duration {
	return m.idleTimeout
}

// StartSession begins a new session at the current time.
func (m *Manager) StartSession() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.current = &Session{StartedAt: now, LastActivityAt: now}
	m.loaded = true
	m.persistLocked()
}

// UpdateActivity refreshes the last-activity timestamp. Without a session it does nothing.
func (m *Manager) UpdateActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadLocked()
	if m.current == nil {
		return
	}
	m.current.LastActivityAt = m.now()
	m.persistLocked()
}

// IsSessionValid reports whether a session exists and has not idled out.
func (m *Manager) IsSessionValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadLocked()
	if m.current == nil {
		return false
	}
	return m.now().Sub(m.current.LastActivityAt) <= m.idleTimeout
}

// EndSession destroys the session.
func (m *Manager) EndSession() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = nil
	m.loaded = true
	if m.store != nil {
		if err := m.store.Remove(StorageKey); err != nil {
			logger.Warn("failed to remove session", "error", err)
		}
	}
}

// Current returns a copy of the session, or nil when there is none.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadLocked()
	if m.current == nil {
		return nil
	}
	s := *m.current
	return &s
}

// Remaining returns the time left before the session idles out.
func (m *Manager) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loadLocked()
	if m.current == nil {
		return 0
	}
	left := m.idleTimeout - m.now().Sub(m.current.LastActivityAt)
	if left < 0 {
		return 0
	}
	return left
}

// Reload drops the cached session so the next call reads the store again.
func (m *Manager) Reload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = false
	m.current = nil
}

// loadLocked reads the persisted session once (must hold lock).
func (m *Manager) loadLocked() {
	if m.loaded || m.store == nil {
		return
	}
	m.loaded = true

	var s Session
	found, err := m.store.Get(StorageKey, &s, false)
	if err != nil {
		logger.Warn("failed to load session", "error", err)
		return
	}
	if found && !s.LastActivityAt.IsZero() {
		m.current = &s
	}
}

func (m *Manager) persistLocked() {
	if m.store == nil || m.current == nil {
		return
	}
	if err := m.store.Set(StorageKey, m.current, false); err != nil {
		logger.Warn("failed to persist session", "error", err)
	}
}
