package view

import (
	"sync"
	"time"
)

// Debouncer coalesces a burst of inputs into the last one: the callback
// fires once the input has been quiet for the interval. Typing into the
// search box goes through one of these so each keystroke does not trigger a
// filter pass.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	timer    *time.Timer
	fn       func(string)
}

// NewDebouncer wires a callback behind a quiet interval.
func NewDebouncer(interval time.Duration, fn func(string)) *Debouncer {
	return &Debouncer{interval: interval, fn: fn}
}

// Set records the latest input and restarts the quiet timer.
func (d *Debouncer) Set(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() { d.fn(value) })
}

// Stop cancels any pending fire.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
