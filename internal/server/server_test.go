package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/store"
	"github.com/Aman-CERP/docsearch/pkg/document"
	"github.com/Aman-CERP/docsearch/pkg/indexer"
	"github.com/Aman-CERP/docsearch/pkg/searcher"
)

var books = []document.Document{
	document.NewMapDocument("id", "1", "title", "The Fox Guide", "genre", "Nature", "author", "Ada"),
	document.NewMapDocument("id", "2", "title", "Fox Hunting", "genre", "nature", "author", "Bob"),
	document.NewMapDocument("id", "3", "title", "Cooking Basics", "genre", "Food", "author", "Cy"),
	document.NewMapDocument("id", "4", "title", "Wild fox stories", "author", "Dee"),
}

func newSearcher(t *testing.T) *searcher.Searcher {
	t.Helper()
	dir, err := store.OpenMemory(store.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })

	idx, err := indexer.New(dir)
	require.NoError(t, err)
	descs := document.Descriptions{"id": document.NewBuilder().SetIdentifier(true).Build()}
	require.NoError(t, idx.IndexDocuments(context.Background(), descs, books...))
	require.NoError(t, idx.Close())

	s, err := searcher.New(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newExecutor(t *testing.T) *Executor {
	t.Helper()
	return NewExecutor(newSearcher(t), Defaults{MaxResults: 10, MissingKey: "(none)"})
}

func field(h output.Hit, name string) string {
	for _, f := range h.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func ids(hits []output.Hit) []string {
	out := []string{}
	for _, h := range hits {
		out = append(out, field(h, "id"))
	}
	return out
}

func TestExecutor_FlatHits(t *testing.T) {
	// Given: an index of books
	exec := newExecutor(t)

	// When: searching the full content
	resp, err := exec.Execute(context.Background(), Request{Query: "  fox "})

	// Then: every fox title matches and the query is trimmed
	require.NoError(t, err)
	assert.Equal(t, "fox", resp.Query)
	assert.Equal(t, 3, resp.Total)
	assert.ElementsMatch(t, []string{"1", "2", "4"}, ids(resp.Hits))
	assert.Nil(t, resp.Groups)
}

func TestExecutor_LimitAndFields(t *testing.T) {
	exec := newExecutor(t)

	resp, err := exec.Execute(context.Background(), Request{Query: "ada", Fields: []string{"author"}, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(resp.Hits))

	resp, err = exec.Execute(context.Background(), Request{Query: "fox", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
}

func TestExecutor_Groups(t *testing.T) {
	// Given: books with mixed-case genres and one without a genre
	exec := newExecutor(t)

	// When: grouping fox results by genre sorted by author
	resp, err := exec.Execute(context.Background(), Request{
		Query: "fox",
		Group: "genre",
		Sort:  []string{"author"},
	})

	// Then: genres are folded and the missing value gets its own group
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Nil(t, resp.Hits)
	byKey := map[string][]string{}
	for _, g := range resp.Groups {
		byKey[g.Key] = ids(g.Hits)
	}
	assert.Equal(t, map[string][]string{
		"nature": {"1", "2"},
		"(none)": {"4"},
	}, byKey)
}

func TestExecutor_Highlight(t *testing.T) {
	exec := newExecutor(t)

	resp, err := exec.Execute(context.Background(), Request{Query: "cooking", Highlight: true})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Contains(t, resp.Hits[0].Highlight, "<b>Cooking</b>")
}

func TestExecutor_RejectsInvalidRequests(t *testing.T) {
	exec := newExecutor(t)

	tests := []struct {
		name string
		req  Request
		code string
	}{
		{"empty query", Request{Query: "   "}, errors.ErrCodeQueryEmpty},
		{"negative limit", Request{Query: "fox", Limit: -1}, errors.ErrCodeInvalidInput},
		{"limit too large", Request{Query: "fox", Limit: MaxLimit + 1}, errors.ErrCodeInvalidInput},
		{"sort without group", Request{Query: "fox", Sort: []string{"author"}}, errors.ErrCodeInvalidInput},
		{"malformed query", Request{Query: "title:"}, errors.ErrCodeInvalidQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := exec.Execute(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestNewExecutor_DefaultMaxResults(t *testing.T) {
	exec := NewExecutor(nil, Defaults{})
	assert.Equal(t, 20, exec.defaults.MaxResults)
}

func TestExecutor_NormalizeFillsDefaults(t *testing.T) {
	// Given: an executor with default fields and a missing key
	exec := NewExecutor(nil, Defaults{MaxResults: 5, Fields: []string{"title"}, MissingKey: "n/a"})

	// When: normalizing a bare request
	req, err := exec.Normalize(Request{Query: "  fox  "})

	// Then: the query is trimmed and the defaults applied
	require.NoError(t, err)
	assert.Equal(t, "fox", req.Query)
	assert.Equal(t, 5, req.Limit)
	assert.Equal(t, []string{"title"}, req.Fields)
	assert.Equal(t, "n/a", exec.MissingKey())

	// And: explicit values win
	req, err = exec.Normalize(Request{Query: "fox", Limit: 2, Fields: []string{"author"}})
	require.NoError(t, err)
	assert.Equal(t, 2, req.Limit)
	assert.Equal(t, []string{"author"}, req.Fields)
}

func TestExecutor_SwapServesNewSnapshot(t *testing.T) {
	// Given: an executor over a searcher opened before a second document exists
	dir, err := store.OpenMemory(store.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })
	indexBooks := func(docs ...document.Document) {
		idx, err := indexer.New(dir)
		require.NoError(t, err)
		require.NoError(t, idx.IndexDocuments(context.Background(), nil, docs...))
		require.NoError(t, idx.Close())
	}
	indexBooks(books[0])

	first, err := searcher.New(dir)
	require.NoError(t, err)
	exec := NewExecutor(first, Defaults{MaxResults: 10})
	resp, err := exec.Execute(context.Background(), Request{Query: "fox"})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)

	indexBooks(books[1])
	resp, err = exec.Execute(context.Background(), Request{Query: "fox"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)

	// When: a fresh searcher is swapped in
	second, err := searcher.New(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })
	prev := exec.Swap(second)

	// Then: the previous searcher is handed back and requests see both documents
	assert.Same(t, first, prev)
	require.NoError(t, first.Close())
	resp, err = exec.Execute(context.Background(), Request{Query: "fox"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
}
