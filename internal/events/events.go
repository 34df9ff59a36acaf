// Package events provides an in-process bus for network request events.
package events

import (
	"sync"
	"time"
)

// Type identifies a network event.
type Type string

// Event types emitted by the request pipeline.
const (
	Start Type = "start"
	End   Type = "end"
	Slow  Type = "slow"
	Error Type = "error"
)

// Event describes one point in a request's lifecycle.
type Event struct {
	Time      time.Time
	Err       error
	Type      Type
	RequestID string
	Method    string
	URL       string
	Duration  time.Duration
	Status    int
}

// DefaultBuffer is the subscriber channel size used when none is given.
const DefaultBuffer = 64

// Bus fans events out to subscribers. Publishing never blocks; a subscriber
// that falls behind loses its oldest events.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a function that unsubscribes
// and closes it. Subscribing to a closed bus returns a closed channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers ev to every subscriber.
func (b *Bus) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	// Write lock: the drop-oldest receive must not race another publisher's send.
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		send(ch, ev)
	}
}

// Subscribers returns the number of active subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later publishes are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}

// send delivers non-blocking, dropping the oldest event when full.
func send(ch chan Event, ev Event) {
	select {
	case ch <- ev:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
