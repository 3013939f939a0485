// Package watcher re-runs indexing when a document source file changes.
//
// A FileWatcher observes a single file. It watches the file's parent
// directory with fsnotify so that editors which replace a file by renaming
// a temporary copy over it are still noticed, and falls back to polling the
// file's size and modification time when fsnotify is unavailable.
//
// Raw events are coalesced by a Debouncer and delivered as batches. Watch
// drives a Handler with those batches until its context is cancelled.
package watcher
