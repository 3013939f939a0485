package store

import (
	"github.com/blevesearch/bleve/v2/analysis"
	bdoc "github.com/blevesearch/bleve/v2/document"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/highlight"
	"github.com/blevesearch/bleve/v2/search/highlight/format/html"
	simplefrag "github.com/blevesearch/bleve/v2/search/highlight/fragmenter/simple"
	simplehl "github.com/blevesearch/bleve/v2/search/highlight/highlighter/simple"
)

const (
	// HighlightPre and HighlightPost wrap every matched term.
	HighlightPre  = "<b>"
	HighlightPost = "</b>"

	// DefaultFragmentSize matches bleve's simple fragmenter default.
	DefaultFragmentSize = 200
)

// Highlighter extracts marked-up fragments of stored text around the
// terms of a query.
type Highlighter struct {
	fragmenter highlight.Fragmenter
	formatter  highlight.FragmentFormatter
}

// NewHighlighter returns a highlighter producing fragments of up to
// fragmentSize bytes. A non-positive size uses DefaultFragmentSize.
func NewHighlighter(fragmentSize int) *Highlighter {
	if fragmentSize <= 0 {
		fragmentSize = DefaultFragmentSize
	}
	return &Highlighter{
		fragmenter: simplefrag.NewFragmenter(fragmentSize),
		formatter:  html.NewFragmentFormatter(HighlightPre, HighlightPost),
	}
}

// BestFragments re-analyzes text with an and returns up to max fragments
// containing any of terms, best first. It returns nil when nothing matches.
func (h *Highlighter) BestFragments(terms map[string]struct{}, an analysis.Analyzer, field, text string, max int) []string {
	if len(terms) == 0 || text == "" || max <= 0 {
		return nil
	}

	tlm := make(search.TermLocationMap)
	for _, tok := range an.Analyze([]byte(text)) {
		term := string(tok.Term)
		if _, ok := terms[term]; !ok {
			continue
		}
		tlm[term] = append(tlm[term], &search.Location{
			Pos:   uint64(tok.Position),
			Start: uint64(tok.Start),
			End:   uint64(tok.End),
		})
	}
	if len(tlm) == 0 {
		return nil
	}

	dm := &search.DocumentMatch{Locations: search.FieldTermLocationMap{field: tlm}}
	doc := bdoc.NewDocument("")
	doc.AddField(bdoc.NewTextField(field, nil, []byte(text)))

	hl := simplehl.NewHighlighter(h.fragmenter, h.formatter, "")
	return hl.BestFragmentsInField(dm, doc, field, max)
}
