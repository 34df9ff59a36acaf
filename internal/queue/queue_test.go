package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueue_PropagatesError(t *testing.T) {
	q := New(1)
	want := errors.New("boom")

	err := q.Add(context.Background(), func(context.Context) error { return want })
	if err != want {
		t.Errorf("Add() error = %v, want the same error value", err)
	}
}

func TestSubmit(t *testing.T) {
	q := New(1)

	got, err := Submit(context.Background(), q, func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Errorf("Submit() = %d, %v; want 42, nil", got, err)
	}
}

func TestQueue_Concurrency(t *testing.T) {
	tests := []struct {
		name  string
		limit int
	}{
		{"Serial", 1},
		{"Three", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New(tt.limit)

			var running, peak atomic.Int32
			var wg sync.WaitGroup
			for range 12 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = q.Add(context.Background(), func(context.Context) error {
						n := running.Add(1)
						for {
							p := peak.Load()
							if n <= p || peak.CompareAndSwap(p, n) {
								break
							}
						}
						time.Sleep(5 * time.Millisecond)
						running.Add(-1)
						return nil
					})
				}()
			}
			wg.Wait()

			if int(peak.Load()) > tt.limit {
				t.Errorf("peak concurrency = %d, want <= %d", peak.Load(), tt.limit)
			}
			if q.Pending() != 0 {
				t.Errorf("Pending() = %d after drain, want 0", q.Pending())
			}
		})
	}
}

func TestQueue_FIFOAdmission(t *testing.T) {
	q := New(1)
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = q.Add(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Add(context.Background(), func(context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		// Let each waiter enqueue before the next
		waitForPending(t, q, i+2)
		time.Sleep(5 * time.Millisecond)
	}

	close(release)
	wg.Wait()

	for i, v := range order {
		if v != i {
			t.Fatalf("admission order = %v, want ascending", order)
		}
	}
}

func TestQueue_ContextCancelledWhileWaiting(t *testing.T) {
	q := New(1)
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = q.Add(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ran := false
	err := q.Add(ctx, func(context.Context) error {
		ran = true
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Add() error = %v, want deadline exceeded", err)
	}
	if ran {
		t.Error("fn should not run when admission is cancelled")
	}
}

func TestNew_DefaultConcurrency(t *testing.T) {
	if got := New(0).Concurrency(); got != DefaultConcurrency {
		t.Errorf("Concurrency() = %d, want %d", got, DefaultConcurrency)
	}
}

func waitForPending(t *testing.T, q *Queue, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for q.Pending() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d pending calls, have %d", n, q.Pending())
		}
		time.Sleep(time.Millisecond)
	}
}
