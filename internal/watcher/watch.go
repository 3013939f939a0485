package watcher

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/docsearch/internal/errors"
)

// Handler reacts to a batch of changes, typically by re-indexing the file.
type Handler func(ctx context.Context, batch []FileEvent) error

// Watch runs w and calls handle for every batch whose final state is not a
// deletion. Handler errors are logged and watching continues, unless the
// error is fatal. Watch returns nil when ctx is cancelled.
func Watch(ctx context.Context, w *FileWatcher, handle Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- w.Run(ctx)
	}()

	events, errs := w.Events(), w.Errors()
	for {
		select {
		case batch, ok := <-events:
			if !ok {
				return settle(ctx, <-runErr)
			}
			if removed(batch) {
				w.logger.Warn("watched_file_removed", slog.String("path", w.Path()))
				continue
			}
			if err := handle(ctx, batch); err != nil {
				if errors.IsFatal(err) {
					_ = w.Stop()
					<-runErr
					return err
				}
				w.logger.Warn("reindex_failed", errors.LogArgs(err)...)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}

// removed reports whether the last event of the batch deletes the file.
func removed(batch []FileEvent) bool {
	return len(batch) > 0 && batch[len(batch)-1].Operation == OpDelete
}

func settle(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
