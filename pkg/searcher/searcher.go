package searcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2/search/query"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/metrics"
	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/pkg/document"
)

const (
	// DefaultQueryCacheSize is the default number of parsed queries kept.
	DefaultQueryCacheSize = 256

	// maxFragments is the number of fragments highlighted per field.
	maxFragments = 3

	fragmentSeparator = "..."
	fieldSeparator    = " ... "
)

// Searcher executes queries against an index. It is safe for concurrent
// use.
type Searcher struct {
	dir         *store.Directory
	logger      *slog.Logger
	metrics     *metrics.Metrics
	cacheSize   int
	cache       *lru.Cache[string, query.Query]
	highlighter *store.Highlighter

	mu     sync.Mutex
	reader *store.Reader
	closed bool
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records search metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Searcher) {
		s.metrics = m
	}
}

// WithQueryCacheSize sets how many parsed queries are cached. Zero or
// negative disables the cache.
func WithQueryCacheSize(n int) Option {
	return func(s *Searcher) {
		s.cacheSize = n
	}
}

// New returns a searcher over dir. The index is opened on first search.
func New(dir *store.Directory, opts ...Option) (*Searcher, error) {
	if dir == nil {
		return nil, errors.ValidationError("directory is required", nil)
	}
	s := &Searcher{
		dir:         dir,
		logger:      slog.Default(),
		cacheSize:   DefaultQueryCacheSize,
		highlighter: store.NewHighlighter(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cacheSize > 0 {
		cache, err := lru.New[string, query.Query](s.cacheSize)
		if err != nil {
			return nil, errors.ConfigError("invalid query cache size", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Search runs q over fields and hands at most collector.MaxResults()
// results to the collector, best first. Empty fields search the reserved
// full-content field. All failures are search errors.
func (s *Searcher) Search(ctx context.Context, q string, fields []string, collector Collector) error {
	start := time.Now()
	delivered, err := s.search(ctx, q, fields, collector)
	s.metrics.ObserveSearch(start, delivered, err)

	if err != nil {
		attrs := append([]any{slog.String("query", q)}, errors.LogArgs(err)...)
		s.logger.Warn("search_failed", attrs...)
		return err
	}
	s.logger.Debug("search_complete",
		slog.String("query", q),
		slog.Int("results", delivered),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// SearchAll collects at most max results of q over fields.
func (s *Searcher) SearchAll(ctx context.Context, q string, max int, fields ...string) ([]*Result, error) {
	c := NewSliceCollector(max)
	if err := s.Search(ctx, q, fields, c); err != nil {
		return nil, err
	}
	return c.Results, nil
}

func (s *Searcher) search(ctx context.Context, q string, fields []string, collector Collector) (int, error) {
	if collector == nil {
		return 0, errors.SearchError("collector is required", nil)
	}
	if len(fields) == 0 {
		fields = []string{document.FullContentField}
	}

	reader, err := s.openReader()
	if err != nil {
		return 0, err
	}
	parsed, err := s.parse(reader, q, fields)
	if err != nil {
		return 0, err
	}

	n := collector.MaxResults()
	if n < 0 {
		return 0, errors.SearchError(fmt.Sprintf("max results must not be negative, got %d", n), nil)
	}
	if n == 0 {
		return 0, nil
	}

	hits, err := reader.TopN(ctx, parsed, n)
	if err != nil {
		return 0, errors.SearchError(fmt.Sprintf("search for %q failed", q), err)
	}

	delivered := 0
	for _, hit := range hits {
		doc := newStoredDocument(hit.Names(), hit.Fields)
		r := newLazyResult(doc, hit.Score, func() (string, error) {
			return s.highlight(reader, parsed, fields, hit)
		})
		if err := collector.OnResult(r); err != nil {
			return delivered, errors.SearchError("result collector failed", err)
		}
		delivered++
	}
	return delivered, nil
}

// parse builds the OR of q parsed against each field.
func (s *Searcher) parse(reader *store.Reader, q string, fields []string) (query.Query, error) {
	key := strings.Join(fields, "\x00") + "\x01" + q
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.metrics.QueryCacheHit(true)
			return cached, nil
		}
		s.metrics.QueryCacheHit(false)
	}

	b := reader.QueryBuilder()
	clauses := make([]query.Query, 0, len(fields))
	for _, field := range fields {
		fq, err := b.ParseField(field, q)
		if err != nil {
			invalid := errors.New(errors.ErrCodeInvalidQuery, fmt.Sprintf("invalid query %q", q), err)
			return nil, errors.SearchError("parse error", invalid).
				WithDetail("field", field).
				WithSuggestion("Check the query syntax, e.g. quote phrases and escape ':'")
		}
		clauses = append(clauses, fq)
	}
	parsed := b.Or(clauses...)

	if s.cache != nil {
		s.cache.Add(key, parsed)
	}
	return parsed, nil
}

// highlight joins the best fragments of every searched field that has
// matches, surrounded by field separators. Every term of the query is
// marked in every searched field, whichever field the term was scoped to.
func (s *Searcher) highlight(reader *store.Reader, q query.Query, fields []string, hit store.Hit) (string, error) {
	perField, err := store.QueryTerms(q, reader.Analyzer)
	if err != nil {
		return "", errors.SearchError("failed to analyze query for highlighting", err)
	}
	terms := store.AllTerms(perField)

	var b strings.Builder
	for _, field := range fields {
		text, ok := hit.Fields[field]
		if !ok {
			continue
		}
		an, err := reader.Analyzer(field)
		if err != nil {
			return "", errors.SearchError(fmt.Sprintf("failed to analyze field %s", field), err)
		}
		frags := s.highlighter.BestFragments(terms, an, field, text, maxFragments)
		if len(frags) == 0 {
			continue
		}
		b.WriteString(fieldSeparator)
		b.WriteString(strings.Join(frags, fragmentSeparator))
	}
	if b.Len() > 0 {
		b.WriteString(fieldSeparator)
	}
	return b.String(), nil
}

func (s *Searcher) openReader() (*store.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.SearchError("searcher is closed", nil)
	}
	if s.reader != nil {
		return s.reader, nil
	}
	r, err := s.dir.Reader()
	if err != nil {
		return nil, errors.SearchError("failed to open index reader", err)
	}
	s.reader = r
	return r, nil
}

// Close releases the reader. Results obtained from this searcher must not
// be used afterwards. Calling Close more than once is a no-op.
func (s *Searcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.reader == nil {
		return nil
	}
	if err := s.reader.Close(); err != nil {
		return errors.SearchError("failed to close index reader", err)
	}
	return nil
}
