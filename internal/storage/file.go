package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/stockscanner-tui/internal/logger"
)

// credentialsFile is the JSON document written by FileBackend.
type credentialsFile struct {
	Entries map[string]json.RawMessage `json:"entries"`
	Version int                        `json:"version"`
}

// Event represents a file backend event.
type Event struct {
	Error error
	Keys  []string
	Type  EventType
}

// EventType defines the type of file backend event.
type EventType int

const (
	// EventChanged means the file was modified by another process.
	EventChanged EventType = iota
	// EventError reports a watcher or reload failure.
	EventError
)

// FileBackend stores values in a single JSON file and watches it for
// changes made by other processes.
type FileBackend struct {
	mu            sync.RWMutex
	entries       map[string]json.RawMessage
	filePath      string
	watcher       *fsnotify.Watcher
	onChange      func(keys []string)
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
	closeOnce     sync.Once
}

// NewFileBackend loads (or creates) the file at filePath and starts watching it.
func NewFileBackend(filePath string) (*FileBackend, error) {
	if filePath == "" {
		return nil, errors.New("credentials path is empty")
	}

	f := &FileBackend{
		entries:   make(map[string]json.RawMessage),
		filePath:  filePath,
		eventChan: make(chan Event, 16),
		stopChan:  make(chan struct{}),
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	entries, err := f.readFile()
	switch {
	case err == nil:
		f.entries = entries
	case os.IsNotExist(err):
		if err := f.saveLocked(); err != nil {
			return nil, fmt.Errorf("failed to create credentials file: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to load credentials file: %w", err)
	}

	if err := f.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	return f, nil
}

// Path returns the backing file path.
func (f *FileBackend) Path() string {
	return f.filePath
}

// Events returns the channel of external change notifications.
func (f *FileBackend) Events() <-chan Event {
	return f.eventChan
}

// OnChange registers a callback invoked after an external modification is loaded.
func (f *FileBackend) OnChange(fn func(keys []string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = fn
}

// GetValue returns the stored bytes for key.
func (f *FileBackend) GetValue(key string) ([]byte, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// PutValue stores value, which must be valid JSON, and rewrites the file.
func (f *FileBackend) PutValue(key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %s is not valid JSON", key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var compact bytes.Buffer
	if err := json.Compact(&compact, value); err != nil {
		return err
	}

	prev, had := f.entries[key]
	f.entries[key] = compact.Bytes()
	if err := f.saveLocked(); err != nil {
		// Rollback
		if had {
			f.entries[key] = prev
		} else {
			delete(f.entries, key)
		}
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// DeleteValue removes key and rewrites the file.
func (f *FileBackend) DeleteValue(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.entries[key]
	if !had {
		return nil
	}
	delete(f.entries, key)
	if err := f.saveLocked(); err != nil {
		f.entries[key] = prev
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Keys returns the stored keys in lexical order.
func (f *FileBackend) Keys() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	keys := make([]string, 0, len(f.entries))
	for k := range f.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *FileBackend) readFile() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return nil, err
	}

	var file credentialsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	// MarshalIndent reformats nested values; compact them so entries compare
	// byte-for-byte with what PutValue stored.
	entries := make(map[string]json.RawMessage, len(file.Entries))
	for k, v := range file.Entries {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return nil, fmt.Errorf("failed to parse entry %s: %w", k, err)
		}
		entries[k] = buf.Bytes()
	}
	return entries, nil
}

// saveLocked writes the entries to disk (must hold lock).
func (f *FileBackend) saveLocked() error {
	data, err := json.MarshalIndent(credentialsFile{Entries: f.entries, Version: 1}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	// Write to temp file first, then rename
	tmpFile := f.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, f.filePath); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// startWatcher starts the file system watcher.
func (f *FileBackend) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	f.watcher = watcher

	// Watch the directory to catch rename-based replacement
	if err := watcher.Add(filepath.Dir(f.filePath)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go f.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (f *FileBackend) watchLoop() {
	const debounceInterval = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filepath.Base(f.filePath) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				f.mu.Lock()
				if f.debounceTimer != nil {
					f.debounceTimer.Stop()
				}
				f.debounceTimer = time.AfterFunc(debounceInterval, f.handleFileChange)
				f.mu.Unlock()
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.sendEvent(Event{Type: EventError, Error: err})

		case <-f.stopChan:
			return
		}
	}
}

// handleFileChange reloads entries and reports keys that differ from memory.
// Our own writes reload identical content and produce no event. The read
// happens under the lock so a concurrent PutValue cannot be rolled back.
func (f *FileBackend) handleFileChange() {
	f.mu.Lock()
	entries, err := f.readFile()
	if os.IsNotExist(err) {
		// File removed externally: treat as cleared
		entries, err = make(map[string]json.RawMessage), nil
	}
	if err != nil {
		f.mu.Unlock()
		f.sendEvent(Event{Type: EventError, Error: err})
		return
	}

	changed := diffKeys(f.entries, entries)
	if len(changed) > 0 {
		f.entries = entries
	}
	onChange := f.onChange
	f.mu.Unlock()

	if len(changed) == 0 {
		return
	}

	logger.Debug("credentials file changed externally", "keys", changed)
	f.sendEvent(Event{Type: EventChanged, Keys: changed})
	if onChange != nil {
		onChange(changed)
	}
}

func diffKeys(a, b map[string]json.RawMessage) []string {
	if maps.EqualFunc(a, b, func(x, y json.RawMessage) bool { return bytes.Equal(x, y) }) {
		return nil
	}

	var keys []string
	for k, v := range a {
		if w, ok := b[k]; !ok || !bytes.Equal(v, w) {
			keys = append(keys, k)
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// sendEvent sends an event to the event channel non-blocking.
func (f *FileBackend) sendEvent(event Event) {
	select {
	case f.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-f.eventChan:
		default:
		}
		select {
		case f.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher and cleans up resources.
func (f *FileBackend) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.stopChan)

		f.mu.Lock()
		if f.debounceTimer != nil {
			f.debounceTimer.Stop()
		}
		f.mu.Unlock()

		if f.watcher != nil {
			err = f.watcher.Close()
		}
	})
	return err
}
