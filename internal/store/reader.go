package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/collector"
	"github.com/blevesearch/bleve/v2/search/query"
	index "github.com/blevesearch/bleve_index_api"
)

// Hit is one search match with its stored fields.
type Hit struct {
	ID     string
	Score  float64
	Fields map[string]string
}

// Names returns the stored field names of the hit in sorted order.
func (h Hit) Names() []string {
	names := make([]string, 0, len(h.Fields))
	for name := range h.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reader searches a point-in-time snapshot of an index. It is safe for
// concurrent use.
type Reader struct {
	mapping  mapping.IndexMapping
	snapshot index.IndexReader
	release  func() error

	mu       sync.Mutex
	closed   bool
	policies map[string]FieldPolicy
}

func newReader(idx bleve.Index, release func() error) (*Reader, error) {
	adv, err := idx.Advanced()
	if err != nil {
		return nil, err
	}
	snap, err := adv.Reader()
	if err != nil {
		return nil, err
	}
	return &Reader{
		mapping:  idx.Mapping(),
		snapshot: snap,
		release:  release,
		policies: make(map[string]FieldPolicy),
	}, nil
}

// TopN returns at most n hits for q, highest score first.
func (r *Reader) TopN(ctx context.Context, q query.Query, n int) ([]Hit, error) {
	if n <= 0 {
		return nil, nil
	}
	if r.isClosed() {
		return nil, fmt.Errorf("reader is closed")
	}

	s, err := q.Searcher(ctx, r.snapshot, r.mapping, search.SearcherOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()

	coll := collector.NewTopNCollector(n, 0, search.SortOrder{&search.SortScore{Desc: true}})
	if err := coll.Collect(ctx, s, r.snapshot); err != nil {
		return nil, err
	}

	matches := coll.Results()
	hits := make([]Hit, 0, len(matches))
	for _, dm := range matches {
		fields, err := r.storedFields(dm.ID)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{ID: dm.ID, Score: dm.Score, Fields: fields})
	}
	return hits, nil
}

func (r *Reader) storedFields(id string) (map[string]string, error) {
	doc, err := r.snapshot.Document(id)
	if err != nil {
		return nil, fmt.Errorf("load entry %s: %w", id, err)
	}
	fields := make(map[string]string)
	if doc == nil {
		return fields, nil
	}
	doc.VisitFields(func(f index.Field) {
		if tf, ok := f.(index.TextField); ok {
			fields[f.Name()] = tf.Text()
		}
	})
	return fields, nil
}

// FieldPolicy returns the persisted policy of field as of the snapshot.
// Unknown fields get DefaultPolicy and ok=false.
func (r *Reader) FieldPolicy(field string) (FieldPolicy, bool, error) {
	r.mu.Lock()
	if p, ok := r.policies[field]; ok {
		r.mu.Unlock()
		return p, true, nil
	}
	r.mu.Unlock()

	p, ok, err := loadPolicy(r.snapshot, field)
	if err != nil || !ok {
		return p, ok, err
	}
	r.mu.Lock()
	r.policies[field] = p
	r.mu.Unlock()
	return p, true, nil
}

// Analyzer returns the analyzer that was used to index field.
func (r *Reader) Analyzer(field string) (analysis.Analyzer, error) {
	name, err := r.analyzerName(field)
	if err != nil {
		return nil, err
	}
	an := r.mapping.AnalyzerNamed(name)
	if an == nil {
		return nil, fmt.Errorf("analyzer %s not registered", name)
	}
	return an, nil
}

func (r *Reader) analyzerName(field string) (string, error) {
	p, _, err := r.FieldPolicy(field)
	if err != nil {
		return "", err
	}
	if !p.Analyzed {
		return keyword.Name, nil
	}
	return r.mapping.AnalyzerNameForPath(field), nil
}

// DocCount returns the number of live entries in the snapshot.
func (r *Reader) DocCount() (uint64, error) {
	return r.snapshot.DocCount()
}

func (r *Reader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close releases the snapshot. Closing twice is a no-op.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.snapshot.Close()
	if rerr := r.release(); err == nil {
		err = rerr
	}
	return err
}
