package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/errors"
)

func fastOptions(polling bool) Options {
	return Options{
		DebounceWindow: 30 * time.Millisecond,
		PollInterval:   20 * time.Millisecond,
		ForcePolling:   polling,
	}
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(line + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func nextBatch(t *testing.T, w *FileWatcher) []FileEvent {
	t.Helper()
	select {
	case batch, ok := <-w.Events():
		require.True(t, ok, "events closed")
		return batch
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for batch")
	}
	return nil
}

func TestNewFileWatcher_MissingDirectory(t *testing.T) {
	_, err := NewFileWatcher(filepath.Join(t.TempDir(), "nope", "docs.jsonl"), Options{}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileNotFound, errors.GetCode(err))
}

func TestNewFileWatcher_InvalidOptions(t *testing.T) {
	_, err := NewFileWatcher(filepath.Join(t.TempDir(), "docs.jsonl"), Options{PollInterval: -1}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
}

func TestFileWatcher_DetectsChanges(t *testing.T) {
	for _, polling := range []bool{false, true} {
		name := ModeFsnotify
		if polling {
			name = ModePolling
		}
		t.Run(name, func(t *testing.T) {
			// Given: a watcher on an existing file
			dir := t.TempDir()
			path := filepath.Join(dir, "docs.jsonl")
			appendLine(t, path, `{"id":"1"}`)

			w, err := NewFileWatcher(path, fastOptions(polling), nil)
			require.NoError(t, err)
			assert.Equal(t, name, w.Mode())
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go func() { _ = w.Run(ctx) }()
			time.Sleep(100 * time.Millisecond)

			// When: a sibling and then the watched file change
			appendLine(t, filepath.Join(dir, "other.jsonl"), `{"id":"x"}`)
			appendLine(t, path, `{"id":"2"}`)

			// Then: one batch names only the watched file
			batch := nextBatch(t, w)
			require.Len(t, batch, 1)
			assert.Equal(t, w.Path(), batch[0].Path)
			assert.Equal(t, OpModify, batch[0].Operation)
			require.NoError(t, w.Stop())
		})
	}
}

func TestFileWatcher_RunTwice(t *testing.T) {
	w, err := NewFileWatcher(filepath.Join(t.TempDir(), "docs.jsonl"), fastOptions(true), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	err = w.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
	require.NoError(t, w.Stop())
}

func TestFileWatcher_ContextCancelStops(t *testing.T) {
	// Given: a running watcher
	w, err := NewFileWatcher(filepath.Join(t.TempDir(), "docs.jsonl"), fastOptions(false), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	// When: the context is cancelled
	cancel()

	// Then: Run returns and the channels are closed
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	_, ok := <-w.Events()
	assert.False(t, ok)
	_, ok = <-w.Errors()
	assert.False(t, ok)
}

func TestFileWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewFileWatcher(filepath.Join(t.TempDir(), "docs.jsonl"), fastOptions(false), nil)
	require.NoError(t, err)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.Zero(t, w.DroppedBatches())
}

func TestWatch_CallsHandlerUntilCancelled(t *testing.T) {
	// Given: a watched file and a handler recording batches
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	w, err := NewFileWatcher(path, fastOptions(true), nil)
	require.NoError(t, err)

	calls := make(chan []FileEvent, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, w, func(_ context.Context, batch []FileEvent) error {
			calls <- batch
			return fmt.Errorf("temporary failure")
		})
	}()
	time.Sleep(100 * time.Millisecond)

	// When: the file is created and then modified
	appendLine(t, path, `{"id":"1"}`)
	select {
	case batch := <-calls:
		assert.Equal(t, OpCreate, batch[0].Operation)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called for create")
	}
	appendLine(t, path, `{"id":"2"}`)

	// Then: a failing handler does not stop watching
	select {
	case batch := <-calls:
		assert.Equal(t, OpModify, batch[0].Operation)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called for modify")
	}

	// When: the file is removed
	require.NoError(t, os.Remove(path))

	// Then: the handler is not called
	select {
	case batch := <-calls:
		t.Fatalf("unexpected handler call: %v", batch)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return")
	}
}

func TestWatch_FatalHandlerErrorStops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.jsonl")
	w, err := NewFileWatcher(path, fastOptions(true), nil)
	require.NoError(t, err)

	corrupt := errors.New(errors.ErrCodeCorruptIndex, "index is corrupt", nil)
	require.True(t, errors.IsFatal(corrupt))

	done := make(chan error, 1)
	go func() {
		done <- Watch(context.Background(), w, func(context.Context, []FileEvent) error {
			return corrupt
		})
	}()
	time.Sleep(100 * time.Millisecond)
	appendLine(t, path, `{"id":"1"}`)

	select {
	case err := <-done:
		assert.Equal(t, errors.ErrCodeCorruptIndex, errors.GetCode(err))
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop on a fatal error")
	}
}
