package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/j-veylop/stockscanner-tui/internal/events"
	"github.com/j-veylop/stockscanner-tui/internal/storage"
)

// MockRoundTripper routes requests to RoundTripFunc and records them.
type MockRoundTripper struct {
	RoundTripFunc func(req *http.Request) (*http.Response, error)
	mu            sync.Mutex
	requests      []*http.Request
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.RoundTripFunc(req)
}

// Calls returns how many requests hit path.
func (m *MockRoundTripper) Calls(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r.URL.Path == path {
			n++
		}
	}
	return n
}

// Total returns how many requests were made.
func (m *MockRoundTripper) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Last returns the most recent request to path.
func (m *MockRoundTripper) Last(path string) *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.requests) - 1; i >= 0; i-- {
		if m.requests[i].URL.Path == path {
			return m.requests[i]
		}
	}
	return nil
}

func jsonResponse(status int, v any) *http.Response {
	body, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Header: http.Header{
			"Content-Type":           {"application/json"},
			"X-Content-Type-Options": {"nosniff"},
		},
		Body: io.NopCloser(strings.NewReader(string(body))),
	}
}

func testToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "trader",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		ID:        time.Now().Format(time.RFC3339Nano),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return s
}

type testEnv struct {
	client   *Client
	backend  *storage.MemoryBackend
	store    *storage.Storage
	rt       *MockRoundTripper
	redirect *RedirectRecorder
	events   <-chan events.Event
}

func newTestEnv(t *testing.T, rt *MockRoundTripper, mutate func(*Options)) *testEnv {
	t.Helper()

	backend := storage.NewMemoryBackend()
	store, err := storage.New(backend, "test-secret")
	if err != nil {
		t.Fatalf("storage.New failed: %v", err)
	}

	rec := &RedirectRecorder{}
	bus := events.NewBus()
	ch, unsubscribe := bus.Subscribe(256)
	t.Cleanup(unsubscribe)

	noRetry := NoRetry()
	opts := Options{
		BaseURL:       "https://scanner.test",
		Environment:   "test",
		ClientVersion: "1.2.3",
		Store:         store,
		Bus:           bus,
		Navigator:     rec,
		Transport:     rt,
		Retry:         &noRetry,
	}
	if mutate != nil {
		mutate(&opts)
	}

	c, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	return &testEnv{client: c, backend: backend, store: store, rt: rt, redirect: rec, events: ch}
}

// drain returns the events published so far.
func (e *testEnv) drain() []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-e.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}
