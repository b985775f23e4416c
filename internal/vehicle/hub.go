package vehicle

import (
	"context"
	"sync"
)

// Hub is the (state, notifier) pair of spec §4.B: exactly one writer (the
// flight-link telemetry receiver) mutates state under an exclusive lock and
// broadcasts on every replacement; any number of readers take a cloned
// snapshot without ever blocking the writer for long.
//
// The broadcast uses the close-and-replace idiom instead of sync.Cond
// because the waiter here (the snapshot logger; fan-out subscribers sample
// Snapshot on their own ticker and never wait) needs a context-cancellable
// wait, which sync.Cond cannot express. Closing
// a channel wakes every current waiter exactly once and does not queue
// missed signals — precisely the "level-insensitive" notification spec §4.B
// requires.
type Hub struct {
	mu     sync.RWMutex
	state  *State
	waitCh chan struct{}
}

// NewHub returns a Hub seeded with an empty State.
func NewHub() *Hub {
	return &Hub{
		state:  NewState(),
		waitCh: make(chan struct{}),
	}
}

// Snapshot returns a cloned copy of the live state. Safe to call from any
// goroutine; never blocks the writer for more than the clone itself takes.
func (h *Hub) Snapshot() *State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.Clone()
}

// Replace installs a new state wholesale (telemetry is last-writer-wins,
// spec §4.C/§5 — no merge, no sequence numbers) and wakes every waiter.
func (h *Hub) Replace(s *State) {
	h.mu.Lock()
	h.state = s
	old := h.waitCh
	h.waitCh = make(chan struct{})
	h.mu.Unlock()
	close(old)
}

// Wait blocks until the next Replace or until ctx is done. A waiter that
// arrives between a signal and the next update is not guaranteed a wake
// (spec §4.B); it should immediately read the current Snapshot on return,
// which is what Logger.Run does.
func (h *Hub) Wait(ctx context.Context) error {
	h.mu.RLock()
	ch := h.waitCh
	h.mu.RUnlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
