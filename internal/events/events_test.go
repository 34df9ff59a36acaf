package events

import (
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := NewBus()
	ch, unsubscribe := b.Subscribe(4)
	defer unsubscribe()

	b.Publish(Event{Type: Start, Method: "GET", URL: "/api/stocks/"})

	select {
	case ev := <-ch:
		if ev.Type != Start || ev.URL != "/api/stocks/" {
			t.Errorf("unexpected event %+v", ev)
		}
		if ev.Time.IsZero() {
			t.Error("expected Publish to stamp the event time")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_FanOut(t *testing.T) {
	b := NewBus()
	a, ua := b.Subscribe(1)
	c, uc := b.Subscribe(1)
	defer ua()
	defer uc()

	if b.Subscribers() != 2 {
		t.Fatalf("Subscribers() = %d, want 2", b.Subscribers())
	}

	b.Publish(Event{Type: End, Status: 200})

	for _, ch := range []<-chan Event{a, c} {
		if ev := <-ch; ev.Status != 200 {
			t.Errorf("unexpected event %+v", ev)
		}
	}
}

func TestBus_DropsOldestWhenFull(t *testing.T) {
	b := NewBus()
	ch, unsubscribe := b.Subscribe(2)
	defer unsubscribe()

	for i := 1; i <= 5; i++ {
		b.Publish(Event{Type: End, Status: i})
	}

	first, second := <-ch, <-ch
	if first.Status != 4 || second.Status != 5 {
		t.Errorf("got statuses %d,%d; want 4,5", first.Status, second.Status)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	ch, unsubscribe := b.Subscribe(1)

	unsubscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
	if b.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d, want 0", b.Subscribers())
	}

	// Must not panic on a closed subscriber
	b.Publish(Event{Type: Error})
}

func TestBus_Close(t *testing.T) {
	b := NewBus()
	ch, unsubscribe := b.Subscribe(1)
	b.Close()
	b.Close()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}

	late, _ := b.Subscribe(1)
	if _, ok := <-late; ok {
		t.Error("subscribing after Close should return a closed channel")
	}
	b.Publish(Event{Type: Start})
}

func TestBus_ConcurrentPublish(t *testing.T) {
	b := NewBus()
	ch, unsubscribe := b.Subscribe(8)
	defer unsubscribe()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				b.Publish(Event{Type: Slow})
			}
		}()
	}
	wg.Wait()

	if n := len(ch); n != 8 {
		t.Errorf("buffered events = %d, want 8", n)
	}
}
