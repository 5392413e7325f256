package realtime

import (
	"sync"
	"time"
)

// DefaultDebounceWindow is the delay applied to realtime pushes so that
// bursts of rapid events for the same subject coalesce into a single push.
const DefaultDebounceWindow = 50 * time.Millisecond

// Debouncer delays function execution per logical key. Scheduling a key that
// already has a pending execution cancels and replaces it, so only the latest
// scheduled function for a key runs.
//
// This is purely an emission-smoothing optimization for realtime pushes; it
// must never guard persisted state.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	timers map[string]*time.Timer
	closed bool
}

// NewDebouncer creates a Debouncer with the given delay window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule runs fn after the debounce window elapses, unless the same key is
// scheduled again first, in which case the earlier fn is dropped.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	if pending, ok := d.timers[key]; ok {
		pending.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		// Only clear the slot if it still holds this timer; a newer
		// schedule for the key may have replaced it already.
		if d.timers[key] == timer {
			delete(d.timers, key)
		}
		closed := d.closed
		d.mu.Unlock()

		if !closed {
			fn()
		}
	})
	d.timers[key] = timer
}

// Pending returns the number of keys with an execution still scheduled.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Close cancels all pending executions. The Debouncer is unusable afterwards.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}
