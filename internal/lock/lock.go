// Package lock provides the cross-process single-writer lock of an index
// directory.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/Aman-CERP/docsearch/internal/errors"
)

// FileName is the lock file created inside the index directory.
const FileName = ".writer.lock"

// WriterLock guards an index directory against concurrent writers,
// including writers in other processes.
type WriterLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New returns an unlocked lock for dir. The lock file is <dir>/.writer.lock.
func New(dir string) *WriterLock {
	path := filepath.Join(dir, FileName)
	return &WriterLock{
		path:  path,
		flock: flock.New(path),
	}
}

// Acquire takes the lock without blocking. It returns an
// ERR_208_WRITER_LOCKED error when another writer holds it.
func (l *WriterLock) Acquire() error {
	if l.locked {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return errors.New(errors.ErrCodeWriterLocked, "index is locked by another writer", nil).
			WithDetail("lock", l.path).
			WithSuggestion("Stop the other indexing process or wait for it to finish")
	}
	l.locked = true
	return nil
}

// Release drops the lock. Releasing an unlocked lock is a no-op.
func (l *WriterLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *WriterLock) Path() string { return l.path }

// Locked reports whether this lock is held.
func (l *WriterLock) Locked() bool { return l.locked }
