package auth

import "sync"

// State is the authentication state of the client.
type State int

const (
	// Anonymous has no credential.
	Anonymous State = iota
	// Authenticated holds a credential and a live session.
	Authenticated
	// Expired lost its credential and awaits teardown.
	Expired
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// StateMachine guards auth state transitions. It is safe for concurrent use.
type StateMachine struct {
	mu       sync.Mutex
	onChange func(from, to State)
	state    State
}

// NewStateMachine starts in Authenticated when a credential is already
// stored, otherwise in Anonymous.
func NewStateMachine(authenticated bool) *StateMachine {
	sm := &StateMachine{state: Anonymous}
	if authenticated {
		sm.state = Authenticated
	}
	return sm
}

// OnChange registers a callback run after every transition.
func (sm *StateMachine) OnChange(fn func(from, to State)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onChange = fn
}

// State returns the current state.
func (sm *StateMachine) State() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state
}

// Login moves to Authenticated.
func (sm *StateMachine) Login() {
	sm.transition(func(s State) (State, bool) { return Authenticated, s != Authenticated })
}

// Refreshed is the Authenticated self-loop after a successful token refresh.
// It reports false when the client is no longer authenticated.
func (sm *StateMachine) Refreshed() bool {
	return sm.State() == Authenticated
}

// Expire moves Authenticated to Expired and reports whether it did.
// Only the caller that receives true performs teardown.
func (sm *StateMachine) Expire() bool {
	return sm.transition(func(s State) (State, bool) { return Expired, s == Authenticated })
}

// Reset moves Expired to Anonymous once teardown is complete.
func (sm *StateMachine) Reset() {
	sm.transition(func(s State) (State, bool) { return Anonymous, s == Expired })
}

// Restore re-synchronizes with stored credentials changed outside this
// process, without going through Expired.
func (sm *StateMachine) Restore(authenticated bool) {
	sm.transition(func(s State) (State, bool) {
		if authenticated {
			return Authenticated, s != Authenticated
		}
		return Anonymous, s != Anonymous
	})
}

func (sm *StateMachine) transition(next func(State) (State, bool)) bool {
	sm.mu.Lock()
	from := sm.state
	to, ok := next(from)
	if !ok {
		sm.mu.Unlock()
		return false
	}
	sm.state = to
	onChange := sm.onChange
	sm.mu.Unlock()

	if onChange != nil {
		onChange(from, to)
	}
	return true
}
