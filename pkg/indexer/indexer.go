package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/lock"
	"github.com/Aman-CERP/docsearch/internal/metrics"
	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/pkg/document"
)

// Indexer adds documents to an index. It is safe for concurrent use;
// batches are serialized.
type Indexer struct {
	dir     *store.Directory
	writer  *store.Writer
	lock    *lock.WriterLock
	logger  *slog.Logger
	metrics *metrics.Metrics
	useLock bool

	mu     sync.Mutex
	closed bool
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(i *Indexer) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithMetrics records batch metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Indexer) {
		i.metrics = m
	}
}

// WithLock controls whether a disk index is guarded by the cross-process
// writer lock. Enabled by default; in-memory indexes are never locked.
func WithLock(enabled bool) Option {
	return func(i *Indexer) {
		i.useLock = enabled
	}
}

// Stats describes the index.
type Stats struct {
	DocumentCount uint64
}

// New opens the writer of dir. Failure to open the index is fatal for the
// indexer and is reported with a fatal-severity error.
func New(dir *store.Directory, opts ...Option) (*Indexer, error) {
	if dir == nil {
		return nil, errors.ValidationError("directory is required", nil)
	}
	i := &Indexer{
		dir:     dir,
		logger:  slog.Default(),
		useLock: true,
	}
	for _, opt := range opts {
		opt(i)
	}

	if i.useLock && !dir.InMemory() {
		l := lock.New(dir.Path())
		if err := l.Acquire(); err != nil {
			return nil, err
		}
		i.lock = l
	}

	w, err := dir.Writer()
	if err != nil {
		i.releaseLock()
		i.logger.Error("indexer_open_failed", errors.LogArgs(err)...)
		return nil, err
	}
	i.writer = w
	return i, nil
}

// Index indexes every document of provider. descs may be nil; fields
// without a description are analyzed with boost 1. The provider is always
// closed, even when indexing fails.
func (i *Indexer) Index(ctx context.Context, descs document.Descriptions, provider document.Provider) error {
	start := time.Now()
	var indexed, replaced int
	err := i.index(ctx, descs, provider, &indexed, &replaced)
	i.metrics.ObserveBatch(start, indexed, replaced, err)

	if err != nil {
		attrs := append([]any{
			slog.Int("indexed", indexed),
			slog.Int("replaced", replaced),
		}, errors.LogArgs(err)...)
		i.logger.Warn("index_batch_failed", attrs...)
		return err
	}
	i.logger.Debug("index_batch_complete",
		slog.Int("indexed", indexed),
		slog.Int("replaced", replaced),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// IndexDocuments indexes docs.
func (i *Indexer) IndexDocuments(ctx context.Context, descs document.Descriptions, docs ...document.Document) error {
	return i.Index(ctx, descs, document.NewProvider(docs...))
}

func (i *Indexer) index(ctx context.Context, descs document.Descriptions, provider document.Provider, indexed, replaced *int) (err error) {
	if provider == nil {
		return errors.ValidationError("provider is required", nil)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return errors.IndexError("indexer is closed", nil)
	}

	it, err := provider.Iterate(ctx)
	if err != nil {
		if cerr := provider.Close(nil); cerr != nil {
			i.logger.Debug("provider_close_failed", slog.String("error", cerr.Error()))
		}
		return errors.IndexError("failed to iterate documents", err)
	}
	defer func() {
		if cerr := provider.Close(it); cerr != nil && err == nil {
			err = errors.IndexError("failed to close document provider", cerr)
		}
	}()

	matchers := newMatchers(descs)
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return errors.IndexError("indexing cancelled", err)
		}
		n, err := i.indexOne(ctx, descs, matchers, it.Document())
		if err != nil {
			return err
		}
		*indexed++
		*replaced += n
	}
	if err := it.Err(); err != nil {
		return errors.IndexError("failed to read documents", err)
	}
	return nil
}

// indexOne replaces previous versions of doc and adds it. It returns the
// number of entries deleted.
func (i *Indexer) indexOne(ctx context.Context, descs document.Descriptions, m *matchers, doc document.Document) (int, error) {
	previous, err := m.previousVersions(doc)
	if err != nil {
		return 0, err
	}
	removed, err := i.writer.DeleteMatching(ctx, previous)
	if err != nil {
		return 0, errors.IndexError("failed to delete previous version", err)
	}

	entry, err := newEntry(descs, doc)
	if err != nil {
		return removed, err
	}
	if _, err := i.writer.Add(ctx, entry); err != nil {
		return removed, errors.IndexError("failed to add document", err)
	}
	return removed, nil
}

// newEntry stores every present field of doc and aggregates the fields
// searchable in full content into the reserved field.
func newEntry(descs document.Descriptions, doc document.Document) (store.Entry, error) {
	names, err := doc.Fields()
	if err != nil {
		return store.Entry{}, errors.IndexError("failed to read document fields", err)
	}

	fields := make([]store.Field, 0, len(names)+1)
	var full []string
	for _, name := range names {
		value, ok, err := doc.Value(name)
		if err != nil {
			return store.Entry{}, errors.IndexError(fmt.Sprintf("failed to read field %s", name), err)
		}
		if !ok {
			continue
		}
		if name == document.FullContentField {
			return store.Entry{}, errors.IndexError(
				fmt.Sprintf("field name %q is reserved", name), nil)
		}
		d := descs.Lookup(name)
		fields = append(fields, store.Field{
			Name:     name,
			Value:    value,
			Analyzed: d.Analyzed(),
			Boost:    d.BoostFactor(),
		})
		if d.SearchableInFullContent() {
			full = append(full, value)
		}
	}
	fields = append(fields, store.Field{
		Name:     document.FullContentField,
		Value:    strings.Join(full, " "),
		Analyzed: true,
		Boost:    1,
	})
	return store.Entry{Fields: fields}, nil
}

// matchers builds the query that finds previous versions of a document
// from its identifier fields.
type matchers struct {
	fields  []string
	descs   document.Descriptions
	builder *store.QueryBuilder
}

func newMatchers(descs document.Descriptions) *matchers {
	return &matchers{
		fields: descs.Identifiers(),
		descs:  descs,
		builder: store.NewQueryBuilder(func(field string) (store.FieldPolicy, error) {
			d := descs.Lookup(field)
			return store.FieldPolicy{Analyzed: d.Analyzed(), Boost: d.BoostFactor()}, nil
		}),
	}
}

func (m *matchers) previousVersions(doc document.Document) (query.Query, error) {
	var clauses []query.Query
	for _, field := range m.fields {
		value, ok, err := doc.Value(field)
		if err != nil {
			return nil, errors.IndexError(fmt.Sprintf("failed to read identifier %s", field), err)
		}
		if !ok {
			continue
		}
		if !m.descs.Lookup(field).Analyzed() {
			clauses = append(clauses, m.builder.Term(field, value))
			continue
		}
		q, err := m.builder.ParseField(field, value)
		if err != nil {
			return nil, errors.IndexError(fmt.Sprintf("invalid identifier value for %s", field), err)
		}
		clauses = append(clauses, q)
	}
	return m.builder.Or(clauses...), nil
}

// Stats returns the number of entries in the index.
func (i *Indexer) Stats() (Stats, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return Stats{}, errors.IndexError("indexer is closed", nil)
	}
	n, err := i.writer.DocCount()
	if err != nil {
		return Stats{}, errors.IndexError("failed to count documents", err)
	}
	return Stats{DocumentCount: n}, nil
}

// Close flushes the index and releases the writer. Calling Close more than
// once is a no-op.
func (i *Indexer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	defer i.releaseLock()

	if err := i.writer.Close(); err != nil {
		return errors.IndexError("failed to close index", err)
	}
	return nil
}

func (i *Indexer) releaseLock() {
	if i.lock == nil {
		return
	}
	if err := i.lock.Release(); err != nil {
		i.logger.Warn("writer_lock_release_failed", slog.String("error", err.Error()))
	}
}
