// Package debounce coalesces bursts of triggers into one trailing call.
package debounce

import (
	"sync"
	"time"

	"github.com/focosview/focosview/internal/platform/clock"
)

// Debouncer runs fn once, wait after the last Trigger. Each Trigger
// restarts the window.
type Debouncer struct {
	mu      sync.Mutex
	clock   clock.Clock
	wait    time.Duration
	fn      func()
	timer   clock.Timer
	stopped bool
}

// New returns a Debouncer driving fn.
func New(c clock.Clock, wait time.Duration, fn func()) *Debouncer {
	return &Debouncer{clock: c, wait: wait, fn: fn}
}

// Trigger (re)starts the window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.wait, d.fn)
}

// SetWait changes the window for subsequent triggers.
func (d *Debouncer) SetWait(wait time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wait = wait
}

// Cancel drops a pending call. The debouncer stays usable.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Stop drops a pending call and ignores further triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Keyed keeps one independent window per key, e.g. one per search box.
type Keyed[K comparable] struct {
	mu      sync.Mutex
	clock   clock.Clock
	wait    time.Duration
	timers  map[K]clock.Timer
	stopped bool
}

// NewKeyed returns an empty keyed debouncer.
func NewKeyed[K comparable](c clock.Clock, wait time.Duration) *Keyed[K] {
	return &Keyed[K]{clock: c, wait: wait, timers: make(map[K]clock.Timer)}
}

// Trigger restarts the window of key; fn replaces any pending call for it.
func (k *Keyed[K]) Trigger(key K, fn func()) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.stopped {
		return
	}
	if t, ok := k.timers[key]; ok {
		t.Stop()
	}
	var timer clock.Timer
	timer = k.clock.AfterFunc(k.wait, func() {
		k.mu.Lock()
		if k.timers[key] == timer {
			delete(k.timers, key)
		}
		k.mu.Unlock()
		fn()
	})
	k.timers[key] = timer
}

// Stop drops every pending call and ignores further triggers.
func (k *Keyed[K]) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.stopped = true
	for key, t := range k.timers {
		t.Stop()
		delete(k.timers, key)
	}
}
