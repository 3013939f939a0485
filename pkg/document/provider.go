package document

import "context"

// Iterator walks the documents of a Provider, in the manner of sql.Rows:
//
//	for it.Next() {
//	    doc := it.Document()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator interface {
	// Next advances to the next document and reports whether one exists.
	Next() bool

	// Document returns the current document. Only valid after Next
	// returned true.
	Document() Document

	// Err returns the error that stopped the iteration, if any.
	Err() error
}

// Provider is a source of documents to index.
//
// Consumers must call Close with the iterator obtained from Iterate once they
// are done with it, whether or not the iteration completed. Close must be
// safe to call on a partially consumed iterator and more than once.
type Provider interface {
	// Iterate opens a new iteration over the documents.
	Iterate(ctx context.Context) (Iterator, error)

	// Close releases the resources held by the iterator.
	Close(it Iterator) error
}

// SliceProvider serves an in-memory list of documents. Close is a no-op.
type SliceProvider struct {
	docs []Document
}

// NewProvider creates a provider over the given documents.
func NewProvider(docs ...Document) *SliceProvider {
	return &SliceProvider{docs: docs}
}

// Iterate implements Provider.
func (p *SliceProvider) Iterate(_ context.Context) (Iterator, error) {
	return &sliceIterator{docs: p.docs, pos: -1}, nil
}

// Close implements Provider.
func (p *SliceProvider) Close(_ Iterator) error {
	return nil
}

// Len returns the number of documents.
func (p *SliceProvider) Len() int {
	return len(p.docs)
}

type sliceIterator struct {
	docs []Document
	pos  int
}

func (it *sliceIterator) Next() bool {
	if it.pos+1 >= len(it.docs) {
		it.pos = len(it.docs)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Document() Document {
	if it.pos < 0 || it.pos >= len(it.docs) {
		return nil
	}
	return it.docs[it.pos]
}

func (it *sliceIterator) Err() error {
	return nil
}

var _ Provider = (*SliceProvider)(nil)
