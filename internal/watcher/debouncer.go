package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer merges bursts of events into batches. A batch is emitted once
// no new event has arrived for the window, in first-seen path order.
// Events for the same path are folded into one:
//   - CREATE then MODIFY stays CREATE
//   - CREATE then DELETE disappears
//   - DELETE then CREATE becomes MODIFY
//   - otherwise the latest operation wins
type Debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	pending map[string]FileEvent
	order   []string
	output  chan []FileEvent
	timer   *time.Timer
	stopped bool
	dropped int
}

// NewDebouncer creates a debouncer that emits after window of quiet.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]FileEvent),
		output:  make(chan []FileEvent, 10),
	}
}

// Add records an event and restarts the quiet window.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	prev, ok := d.pending[event.Path]
	if !ok {
		d.pending[event.Path] = event
		d.order = append(d.order, event.Path)
	} else if merged, keep := fold(prev, event); keep {
		d.pending[event.Path] = merged
	} else {
		delete(d.pending, event.Path)
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// fold merges next into prev. keep is false when the two cancel out.
func fold(prev, next FileEvent) (merged FileEvent, keep bool) {
	switch {
	case prev.Operation == OpCreate && next.Operation == OpModify:
		prev.Timestamp = next.Timestamp
		return prev, true
	case prev.Operation == OpCreate && next.Operation == OpDelete:
		return FileEvent{}, false
	case prev.Operation == OpDelete && next.Operation == OpCreate:
		next.Operation = OpModify
		return next, true
	default:
		return next, true
	}
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	events := make([]FileEvent, 0, len(d.pending))
	for _, path := range d.order {
		if ev, ok := d.pending[path]; ok {
			events = append(events, ev)
		}
	}
	d.pending = make(map[string]FileEvent)
	d.order = nil
	if len(events) == 0 {
		return
	}

	select {
	case d.output <- events:
	default:
		d.dropped++
		slog.Warn("debounce_batch_dropped",
			slog.Int("batch_size", len(events)),
			slog.Int("total_dropped", d.dropped))
	}
}

// Output returns the channel of batches. It is closed by Stop.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.output
}

// Stop discards pending events and closes the output channel.
// Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
