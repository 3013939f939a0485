package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/docsearch/internal/errors"
)

// Watching modes reported by FileWatcher.Mode.
const (
	ModeFsnotify = "fsnotify"
	ModePolling  = "polling"
)

// FileWatcher emits debounced change batches for a single file.
type FileWatcher struct {
	path      string
	opts      Options
	logger    *slog.Logger
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	events    chan []FileEvent
	errors    chan error
	stopCh    chan struct{}
	running   atomic.Bool

	mu      sync.RWMutex
	stopped bool

	droppedBatches atomic.Uint64
}

// NewFileWatcher prepares a watcher for path. The file itself may be
// missing, its parent directory must exist.
func NewFileWatcher(path string, opts Options, logger *slog.Logger) (*FileWatcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("cannot resolve %s", path), err)
	}
	if info, err := os.Stat(filepath.Dir(abs)); err != nil || !info.IsDir() {
		return nil, errors.New(errors.ErrCodeFileNotFound,
			fmt.Sprintf("directory of %s does not exist", abs), err)
	}

	w := &FileWatcher{
		path:      abs,
		opts:      opts,
		logger:    logger,
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			logger.Warn("fsnotify_unavailable",
				slog.String("path", abs),
				slog.String("error", err.Error()),
				slog.String("fallback", ModePolling))
		} else {
			w.fsWatcher = fsw
		}
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *FileWatcher) Path() string {
	return w.path
}

// Mode returns ModeFsnotify or ModePolling.
func (w *FileWatcher) Mode() string {
	if w.fsWatcher != nil {
		return ModeFsnotify
	}
	return ModePolling
}

// Run watches until ctx is cancelled or Stop is called. It may be called
// once.
func (w *FileWatcher) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return errors.ValidationError("watcher is already running", nil)
	}
	go w.forward()

	w.logger.Info("watch_started",
		slog.String("path", w.path),
		slog.String("mode", w.Mode()),
		slog.Duration("debounce", w.opts.DebounceWindow))

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Add(filepath.Dir(w.path)); err != nil {
			_ = w.Stop()
			return errors.New(errors.ErrCodeSourceUnavailable,
				fmt.Sprintf("cannot watch %s", filepath.Dir(w.path)), err)
		}
		return w.runFsnotify(ctx)
	}
	return w.runPolling(ctx)
}

func (w *FileWatcher) runFsnotify(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *FileWatcher) runPolling(ctx context.Context) error {
	p := newPoller(w.path)
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case now := <-ticker.C:
			if ev, changed := p.check(now); changed {
				w.debouncer.Add(ev)
			}
		}
	}
}

// handle converts fsnotify events for the watched file. Events for
// siblings in the same directory are ignored.
func (w *FileWatcher) handle(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}

	var op Operation
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = OpDelete
	default:
		return
	}
	w.debouncer.Add(FileEvent{Path: w.path, Operation: op, Timestamp: time.Now()})
}

func (w *FileWatcher) forward() {
	for batch := range w.debouncer.Output() {
		w.emitEvents(batch)
	}
}

func (w *FileWatcher) emitEvents(batch []FileEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}

	select {
	case w.events <- batch:
	default:
		count := w.droppedBatches.Add(1)
		w.logger.Warn("watch_batch_dropped",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped_batches", count))
	}
}

func (w *FileWatcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}

	select {
	case w.errors <- err:
	default:
	}
}

// Events returns the channel of debounced batches. It is closed by Stop.
func (w *FileWatcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns watcher errors. It is closed by Stop.
func (w *FileWatcher) Errors() <-chan error {
	return w.errors
}

// DroppedBatches returns the number of batches dropped because nobody was
// reading Events.
func (w *FileWatcher) DroppedBatches() uint64 {
	return w.droppedBatches.Load()
}

// Stop releases the watcher. Safe to call multiple times.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()

	var err error
	if w.fsWatcher != nil {
		err = w.fsWatcher.Close()
	}
	close(w.events)
	close(w.errors)
	return err
}
