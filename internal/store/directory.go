// Package store adapts bleve to the indexer and searcher.
//
// A Directory is the storage location for one index. It hands out one open
// Writer at a time and any number of Readers. Every Reader searches a
// point-in-time snapshot taken when it was opened and never observes later
// writes. Disk directories open a read-only view per Reader unless the index
// is already open in this process for a Writer; the index then stays open
// until the Writer and every Reader sharing it are closed.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/pkg/document"
)

var errClosed = errors.OpenError("directory is closed", nil)

// IndexDirName is the bleve index directory inside a disk Directory.
const IndexDirName = "index"

// Config controls how a Directory creates its index.
type Config struct {
	// Analyzer is the bleve analyzer used for analyzed fields.
	// Exact fields always use the keyword analyzer.
	Analyzer string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Analyzer: simple.Name}
}

// Analyzers lists the analyzer names accepted by Config.
func Analyzers() []string {
	return []string{simple.Name, standard.Name, en.AnalyzerName, keyword.Name}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for _, name := range Analyzers() {
		if c.Analyzer == name {
			return nil
		}
	}
	return errors.ConfigError(fmt.Sprintf("unknown analyzer %q", c.Analyzer), nil).
		WithSuggestion("Use one of: " + strings.Join(Analyzers(), ", "))
}

// Directory is the storage location of an index.
type Directory struct {
	path string
	cfg  Config

	mu      sync.Mutex
	mem     bleve.Index
	live    *sharedIndex
	writing bool
}

// sharedIndex is a disk index opened in this process. It is closed when
// its last user releases it.
type sharedIndex struct {
	index bleve.Index
	refs  int
}

// OpenMemory returns a Directory whose index lives only in memory.
func OpenMemory(cfg Config) (*Directory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := newIndexMapping(cfg)
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, errors.OpenError("failed to create in-memory index", err)
	}
	return &Directory{cfg: cfg, mem: idx}, nil
}

// OpenDisk returns a Directory rooted at path, creating the path if needed.
// The index itself is created by the first Writer.
func OpenDisk(path string, cfg Config) (*Directory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, errors.OpenError(fmt.Sprintf("failed to create directory %s", path), err)
	}
	d := &Directory{path: path, cfg: cfg}
	if err := validateIndexIntegrity(d.indexPath()); err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "index is corrupted", err).
			WithDetail("path", d.indexPath()).
			WithSuggestion("Remove the index directory and re-index")
	}
	return d, nil
}

// Path returns the directory root, or "" for an in-memory directory.
func (d *Directory) Path() string { return d.path }

// InMemory reports whether the directory is memory-backed.
func (d *Directory) InMemory() bool { return d.path == "" }

// Config returns the directory configuration.
func (d *Directory) Config() Config { return d.cfg }

func (d *Directory) indexPath() string {
	return filepath.Join(d.path, IndexDirName)
}

// Writer opens the index for writing, creating it on first use. Only one
// Writer may be open per Directory.
func (d *Directory) Writer() (*Writer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.writing {
		return nil, errors.New(errors.ErrCodeWriterLocked, "index already has an open writer", nil)
	}
	if d.InMemory() {
		if d.mem == nil {
			return nil, errClosed
		}
		d.writing = true
		return newWriter(d.mem, d.releaseMemoryWriter), nil
	}

	// Readers may still hold the index of a previous writer.
	if d.live == nil {
		idx, err := bleve.Open(d.indexPath())
		if err == bleve.ErrorIndexPathDoesNotExist {
			slog.Debug("index_create", slog.String("path", d.indexPath()),
				slog.String("analyzer", d.cfg.Analyzer))
			idx, err = bleve.New(d.indexPath(), newIndexMapping(d.cfg))
		}
		if err != nil {
			return nil, openFailure(d.indexPath(), err)
		}
		d.live = &sharedIndex{index: idx}
	}
	shared := d.live
	shared.refs++
	d.writing = true
	return newWriter(shared.index, func() error {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.writing = false
		return d.unref(shared)
	}), nil
}

func (d *Directory) releaseMemoryWriter() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writing = false
	return nil
}

// unref drops one reference to s and closes it with the last one.
// Callers hold d.mu.
func (d *Directory) unref(s *sharedIndex) error {
	s.refs--
	if s.refs > 0 {
		return nil
	}
	if d.live == s {
		d.live = nil
	}
	return s.index.Close()
}

// Reader opens a snapshot of the index for searching.
func (d *Directory) Reader() (*Reader, error) {
	d.mu.Lock()
	idx, release := d.mem, func() error { return nil }
	if idx == nil && d.live != nil {
		shared := d.live
		shared.refs++
		idx = shared.index
		release = func() error {
			d.mu.Lock()
			defer d.mu.Unlock()
			return d.unref(shared)
		}
	}
	d.mu.Unlock()

	if idx == nil {
		if d.InMemory() {
			return nil, errClosed
		}
		opened, err := bleve.OpenUsing(d.indexPath(), map[string]interface{}{
			"read_only":    true,
			"bolt_timeout": "1s",
		})
		if err != nil {
			return nil, openFailure(d.indexPath(), err)
		}
		idx, release = opened, opened.Close
	}

	r, err := newReader(idx, release)
	if err != nil {
		_ = release()
		return nil, errors.OpenError("failed to open index snapshot", err).
			WithDetail("path", d.indexPath())
	}
	return r, nil
}

// Close releases the in-memory index. Readers of a memory directory must be
// closed first. It is a no-op on disk.
func (d *Directory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mem == nil {
		return nil
	}
	err := d.mem.Close()
	d.mem = nil
	return err
}

func newIndexMapping(cfg Config) *mapping.IndexMappingImpl {
	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = cfg.Analyzer
	m.DefaultField = document.FullContentField
	m.StoreDynamic = true
	m.IndexDynamic = true
	return m
}

func openFailure(path string, err error) error {
	if isCorruptionError(err) {
		return errors.New(errors.ErrCodeCorruptIndex, "index is corrupted", err).
			WithDetail("path", path).
			WithSuggestion("Remove the index directory and re-index")
	}
	return errors.OpenError("failed to open index", err).WithDetail("path", path)
}

// validateIndexIntegrity checks an existing index before bleve opens it.
// A missing index is valid; it will be created.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("cannot stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

func isCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	if err == bleve.ErrorIndexMetaCorrupt {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unexpected end of JSON") ||
		strings.Contains(msg, "error parsing mapping JSON") ||
		strings.Contains(msg, "failed to load segment")
}
