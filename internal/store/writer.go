package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	bdoc "github.com/blevesearch/bleve/v2/document"
	"github.com/blevesearch/bleve/v2/search/query"
	index "github.com/blevesearch/bleve_index_api"
	"github.com/google/uuid"

	"github.com/Aman-CERP/docsearch/pkg/document"
)

// deletePageSize bounds how many matches DeleteMatching removes per batch.
const deletePageSize = 500

// Field is one stored field of an Entry.
type Field struct {
	Name     string
	Value    string
	Analyzed bool
	Boost    float64
}

// Entry is a single engine document.
type Entry struct {
	Fields []Field
}

// Writer adds and deletes entries. It is safe for concurrent use.
type Writer struct {
	mu       sync.Mutex
	index    bleve.Index
	closed   bool
	analyzer analysis.Analyzer
	exact    analysis.Analyzer
	policies map[string]FieldPolicy
	release  func() error
}

func newWriter(idx bleve.Index, release func() error) *Writer {
	m := idx.Mapping()
	return &Writer{
		index:    idx,
		release:  release,
		analyzer: m.AnalyzerNamed(m.AnalyzerNameForPath(document.FullContentField)),
		exact:    m.AnalyzerNamed(keyword.Name),
		policies: make(map[string]FieldPolicy),
	}
}

// Add stores the entry and returns its engine id. The entry is visible to
// DeleteMatching and to Readers opened after Add returns.
func (w *Writer) Add(ctx context.Context, e Entry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return "", fmt.Errorf("writer is closed")
	}

	id := uuid.NewString()
	doc := bdoc.NewDocument(id)
	for _, f := range e.Fields {
		an := w.exact
		if f.Analyzed {
			an = w.analyzer
		}
		opts := index.IndexField | index.StoreField | index.IncludeTermVectors
		doc.AddField(bdoc.NewTextFieldCustom(f.Name, nil, []byte(f.Value), opts, an))

		if err := w.recordPolicy(f.Name, FieldPolicy{Analyzed: f.Analyzed, Boost: f.Boost}); err != nil {
			return "", err
		}
	}

	b := w.index.NewBatch()
	if err := b.IndexAdvanced(doc); err != nil {
		return "", fmt.Errorf("build entry: %w", err)
	}
	if err := w.index.Batch(b); err != nil {
		return "", fmt.Errorf("add entry: %w", err)
	}
	return id, nil
}

// DeleteMatching removes every entry matched by q and reports how many
// were removed.
func (w *Writer) DeleteMatching(ctx context.Context, q query.Query) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, fmt.Errorf("writer is closed")
	}

	removed := 0
	for {
		req := bleve.NewSearchRequestOptions(q, deletePageSize, 0, false)
		res, err := w.index.SearchInContext(ctx, req)
		if err != nil {
			return removed, fmt.Errorf("find entries to delete: %w", err)
		}
		if len(res.Hits) == 0 {
			return removed, nil
		}

		b := w.index.NewBatch()
		for _, hit := range res.Hits {
			b.Delete(hit.ID)
		}
		if err := w.index.Batch(b); err != nil {
			return removed, fmt.Errorf("delete entries: %w", err)
		}
		removed += len(res.Hits)
		if len(res.Hits) < deletePageSize {
			return removed, nil
		}
	}
}

// SetFieldPolicy persists how field is indexed.
func (w *Writer) SetFieldPolicy(field string, p FieldPolicy) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.recordPolicy(field, p)
}

// recordPolicy writes p when it differs from the last value written.
// Callers hold w.mu.
func (w *Writer) recordPolicy(field string, p FieldPolicy) error {
	if prev, ok := w.policies[field]; ok && prev == p {
		return nil
	}
	if err := storePolicy(w.index, field, p); err != nil {
		return err
	}
	w.policies[field] = p
	return nil
}

// DocCount returns the number of live entries.
func (w *Writer) DocCount() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, fmt.Errorf("writer is closed")
	}
	return w.index.DocCount()
}

// Close releases the writer. A disk index is closed once no Reader
// shares it; an in-memory index stays open until its Directory is closed.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.release()
}
