package searcher

import (
	"slices"
	"sync"

	"github.com/Aman-CERP/docsearch/pkg/document"
)

// Result is one search hit. It stays valid until the Searcher that produced
// it is closed.
type Result struct {
	doc       document.Document
	score     float64
	highlight func() (string, error)
}

// NewResult builds a result with a fixed highlight. It is intended for
// collectors and renderers that are tested without an index.
func NewResult(doc document.Document, score float64, highlight string) *Result {
	return &Result{
		doc:       doc,
		score:     score,
		highlight: func() (string, error) { return highlight, nil },
	}
}

func newLazyResult(doc document.Document, score float64, compute func() (string, error)) *Result {
	return &Result{doc: doc, score: score, highlight: sync.OnceValues(compute)}
}

// Document returns the stored fields of the hit, without the reserved
// full-content field.
func (r *Result) Document() document.Document { return r.doc }

// Score returns the relevance score. Higher is more relevant.
func (r *Result) Score() float64 { return r.score }

// Highlight returns the matched fragments of the searched fields with
// matched terms wrapped in <b></b>. The value is computed on first call.
func (r *Result) Highlight() (string, error) { return r.highlight() }

// storedDocument is the read-only projection of an engine hit.
type storedDocument struct {
	names  []string
	values map[string]string
}

func newStoredDocument(names []string, values map[string]string) *storedDocument {
	d := &storedDocument{values: make(map[string]string, len(names))}
	for _, name := range names {
		if name == document.FullContentField {
			continue
		}
		d.names = append(d.names, name)
		d.values[name] = values[name]
	}
	return d
}

func (d *storedDocument) Fields() ([]string, error) {
	return slices.Clone(d.names), nil
}

func (d *storedDocument) Value(field string) (string, bool, error) {
	v, ok := d.values[field]
	return v, ok, nil
}

func (d *storedDocument) String() string {
	s, _ := document.Format(d)
	return s
}
