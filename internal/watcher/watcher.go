package watcher

import (
	"fmt"
	"time"

	"github.com/Aman-CERP/docsearch/internal/errors"
)

// Operation represents the type of change observed on the watched file.
type Operation int

const (
	// OpCreate indicates the file appeared.
	OpCreate Operation = iota
	// OpModify indicates the file content changed.
	OpModify
	// OpDelete indicates the file was removed or renamed away.
	OpDelete
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a single observed change.
type FileEvent struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Options configures a FileWatcher.
type Options struct {
	// DebounceWindow is how long the watcher waits for further changes
	// before emitting a batch.
	DebounceWindow time.Duration

	// PollInterval is used when fsnotify is unavailable or ForcePolling is set.
	PollInterval time.Duration

	// EventBufferSize is the capacity of the batch channel.
	EventBufferSize int

	// ForcePolling skips fsnotify. Network filesystems often need it.
	ForcePolling bool
}

// DefaultOptions returns sensible defaults for watching a source file.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  500 * time.Millisecond,
		PollInterval:    2 * time.Second,
		EventBufferSize: 16,
	}
}

// Validate checks if the options are valid.
func (o Options) Validate() error {
	if o.DebounceWindow < 0 {
		return errors.ConfigError(fmt.Sprintf("debounce window must not be negative, got %s", o.DebounceWindow), nil)
	}
	if o.PollInterval < 0 {
		return errors.ConfigError(fmt.Sprintf("poll interval must not be negative, got %s", o.PollInterval), nil)
	}
	if o.EventBufferSize < 0 {
		return errors.ConfigError(fmt.Sprintf("event buffer size must not be negative, got %d", o.EventBufferSize), nil)
	}
	return nil
}

// WithDefaults returns a copy of options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
