package output

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/docsearch/pkg/searcher"
)

const (
	highlightOpen  = "<b>"
	highlightClose = "</b>"
)

// Field is one stored field of a hit, in stored order.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Hit is the serializable form of a search result.
type Hit struct {
	Score     float64 `json:"score"`
	Fields    []Field `json:"fields"`
	Highlight string  `json:"highlight,omitempty"`
}

// Group is a named set of hits.
type Group struct {
	Key  string `json:"key"`
	Hits []Hit  `json:"hits"`
}

// ToHit converts a result. The highlight is computed only when requested.
func ToHit(r *searcher.Result, highlight bool) (Hit, error) {
	doc := r.Document()
	names, err := doc.Fields()
	if err != nil {
		return Hit{}, err
	}
	hit := Hit{Score: r.Score(), Fields: make([]Field, 0, len(names))}
	for _, name := range names {
		v, ok, err := doc.Value(name)
		if err != nil {
			return Hit{}, err
		}
		if ok {
			hit.Fields = append(hit.Fields, Field{Name: name, Value: v})
		}
	}
	if highlight {
		if hit.Highlight, err = r.Highlight(); err != nil {
			return Hit{}, err
		}
	}
	return hit, nil
}

// ToHits converts results in order.
func ToHits(results []*searcher.Result, highlight bool) ([]Hit, error) {
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		h, err := ToHit(r, highlight)
		if err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// ToGroups renders g into serializable groups, sorted as g renders them.
func ToGroups(g *searcher.ResultGroups, highlight bool) ([]Group, error) {
	groups := []Group{}
	err := g.Render(searcher.GroupRendererFunc(func(key string, results []*searcher.Result) error {
		hits, err := ToHits(results, highlight)
		if err != nil {
			return err
		}
		groups = append(groups, Group{Key: key, Hits: hits})
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// Results prints a ranked result list for query.
func (w *Writer) Results(query string, results []*searcher.Result, highlight bool) error {
	if len(results) == 0 {
		w.Status("", fmt.Sprintf("No results found for %q", query))
		return nil
	}

	hits, err := ToHits(results, highlight)
	if err != nil {
		return err
	}
	w.Statusf("🔍", "Found %d results for %q:", len(hits), query)
	w.Newline()
	for i, h := range hits {
		w.hit(i+1, h)
	}
	return nil
}

// GroupRenderer returns a renderer printing each group under a header.
func (w *Writer) GroupRenderer(highlight bool) searcher.GroupRenderer {
	return searcher.GroupRendererFunc(func(key string, results []*searcher.Result) error {
		hits, err := ToHits(results, highlight)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w.out, "%s %s\n",
			w.styles.Header.Render(key),
			w.styles.Dim.Render(fmt.Sprintf("(%d)", len(hits))))
		for i, h := range hits {
			w.hit(i+1, h)
		}
		return nil
	})
}

func (w *Writer) hit(rank int, h Hit) {
	_, _ = fmt.Fprintf(w.out, "%d. %s\n", rank, w.styles.Score.Render(fmt.Sprintf("(score: %.3f)", h.Score)))
	for _, f := range h.Fields {
		_, _ = fmt.Fprintf(w.out, "   %s %s\n", w.styles.Label.Render(f.Name+":"), f.Value)
	}
	if h.Highlight != "" {
		_, _ = fmt.Fprintf(w.out, "   %s\n", w.markHighlight(strings.TrimSpace(h.Highlight)))
	}
	w.Newline()
}

// markHighlight styles highlighted terms. Plain writers keep the markers.
func (w *Writer) markHighlight(s string) string {
	if !w.useColor {
		return s
	}
	var b strings.Builder
	for {
		start := strings.Index(s, highlightOpen)
		if start < 0 {
			break
		}
		end := strings.Index(s[start:], highlightClose)
		if end < 0 {
			break
		}
		end += start
		b.WriteString(s[:start])
		b.WriteString(w.styles.Highlight.Render(s[start+len(highlightOpen) : end]))
		s = s[end+len(highlightClose):]
	}
	b.WriteString(s)
	return b.String()
}
