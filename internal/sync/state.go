package sync

import (
	"log/slog"
	"sync"
)

// State represents the current sync condition of one collection
type State string

// Possible collection sync states
const (
	// StateUninitialized means the collection has never completed a cycle
	// on this device and the next cycle will run a full download.
	StateUninitialized State = "uninitialized"

	// StateSyncing means a cycle for the collection is in flight.
	StateSyncing State = "syncing"

	// StateIdle means the last cycle completed successfully.
	StateIdle State = "idle"

	// StateError means the last cycle failed; the checkpoint was left
	// untouched so the next cycle retries the same window.
	StateError State = "error"
)

// stateTracker holds the per-collection sync state. All transitions go
// through set so every change is logged in one place.
type stateTracker struct {
	mu     sync.Mutex
	states map[string]State
	logger *slog.Logger
}

func newStateTracker(logger *slog.Logger) *stateTracker {
	return &stateTracker{
		states: make(map[string]State),
		logger: logger,
	}
}

// set transitions a collection to the given state, logging the change.
func (t *stateTracker) set(collection string, next State) {
	t.mu.Lock()
	prev, ok := t.states[collection]
	t.states[collection] = next
	t.mu.Unlock()

	if !ok {
		prev = StateUninitialized
	}
	if prev != next {
		t.logger.Debug("Sync state changed",
			slog.String("collection", collection),
			slog.String("from", string(prev)),
			slog.String("to", string(next)))
	}
}

// get returns the collection's state, StateUninitialized if never set.
func (t *stateTracker) get(collection string) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.states[collection]; ok {
		return s
	}
	return StateUninitialized
}

// snapshot returns a copy of every tracked collection's state.
func (t *stateTracker) snapshot() map[string]State {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]State, len(t.states))
	for c, s := range t.states {
		out[c] = s
	}
	return out
}
