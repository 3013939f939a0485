package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/Aman-CERP/docsearch/pkg/document"
)

// maxLineSize bounds a single JSON line.
const maxLineSize = 16 * 1024 * 1024

// JSONLProvider reads one JSON object per line from a file. Blank lines
// are skipped.
type JSONLProvider struct {
	path string
}

// NewJSONLProvider returns a provider over the file at path.
func NewJSONLProvider(path string) *JSONLProvider {
	return &JSONLProvider{path: path}
}

// Path returns the file read by the provider.
func (p *JSONLProvider) Path() string { return p.path }

// Iterate opens the file.
func (p *JSONLProvider) Iterate(ctx context.Context) (document.Iterator, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p.path, err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &jsonlIterator{ctx: ctx, file: f, scanner: scanner, path: p.path}, nil
}

// Close closes the file opened by Iterate.
func (p *JSONLProvider) Close(it document.Iterator) error {
	ji, ok := it.(*jsonlIterator)
	if !ok {
		return nil
	}
	return ji.close()
}

type jsonlIterator struct {
	ctx     context.Context
	file    *os.File
	scanner *bufio.Scanner
	path    string
	line    int
	doc     document.Document
	err     error

	closeOnce sync.Once
	closeErr  error
}

func (it *jsonlIterator) Next() bool {
	if it.err != nil {
		return false
	}
	for it.scanner.Scan() {
		it.line++
		if err := it.ctx.Err(); err != nil {
			it.err = err
			return false
		}
		data := bytes.TrimSpace(it.scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		doc, err := DecodeJSON(data)
		if err != nil {
			it.err = fmt.Errorf("%s:%d: %w", it.path, it.line, err)
			return false
		}
		it.doc = doc
		return true
	}
	if err := it.scanner.Err(); err != nil {
		it.err = fmt.Errorf("read %s: %w", it.path, err)
	}
	return false
}

func (it *jsonlIterator) Document() document.Document { return it.doc }
func (it *jsonlIterator) Err() error                  { return it.err }

func (it *jsonlIterator) close() error {
	it.closeOnce.Do(func() { it.closeErr = it.file.Close() })
	return it.closeErr
}
