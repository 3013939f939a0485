package cmd

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/internal/server"
)

// indexedBooks returns a project whose books are already indexed.
func indexedBooks(t *testing.T) string {
	t.Helper()
	project, books := booksProject(t)
	_, err := run(t, "--dir", project, "index", "--file", books)
	require.NoError(t, err)
	return project
}

func hitIDs(hits []output.Hit) []string {
	ids := []string{}
	for _, h := range hits {
		for _, f := range h.Fields {
			if f.Name == "id" {
				ids = append(ids, f.Value)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

func TestSearchCmd_Text(t *testing.T) {
	// Given: indexed books
	project := indexedBooks(t)

	// When: searching the full content
	out, err := run(t, "--dir", project, "search", "fox")

	// Then: matching books are listed with their fields
	require.NoError(t, err)
	assert.Contains(t, out, `Found 3 results for "fox":`)
	assert.Contains(t, out, "title: The Quick Fox")
	assert.Contains(t, out, "title: Red fox sightings")
	assert.NotContains(t, out, "Cooking")
}

func TestSearchCmd_NoResults(t *testing.T) {
	project := indexedBooks(t)

	out, err := run(t, "--dir", project, "search", "giraffe")

	require.NoError(t, err)
	assert.Contains(t, out, `No results found for "giraffe"`)
}

func TestSearchCmd_JSON(t *testing.T) {
	project := indexedBooks(t)

	out, err := run(t, "--dir", project, "search", "fox", "--format", "json", "--field", "title", "-n", "2")
	require.NoError(t, err)

	var resp server.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "fox", resp.Query)
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Hits, 2)
	assert.Empty(t, resp.Groups)
}

func TestSearchCmd_GroupedJSON(t *testing.T) {
	// Given: indexed books, two of them in genres differing only by case
	project := indexedBooks(t)

	// When: grouping by genre
	out, err := run(t, "--dir", project, "search", "fox", "--group", "genre", "--sort", "title", "--format", "json")
	require.NoError(t, err)

	// Then: the case variants share one group and the book without a genre
	// gets the missing key
	var resp server.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Groups, 2)
	byKey := map[string][]string{}
	for _, g := range resp.Groups {
		byKey[g.Key] = hitIDs(g.Hits)
	}
	assert.Equal(t, []string{"1", "2"}, byKey["nature"])
	assert.Equal(t, []string{"4"}, byKey["(none)"])
	assert.Equal(t, 3, resp.Total)
}

func TestSearchCmd_GroupedText(t *testing.T) {
	project := indexedBooks(t)

	out, err := run(t, "--dir", project, "search", "fox", "--group", "genre", "--missing", "unknown")

	require.NoError(t, err)
	assert.Contains(t, out, `Found 2 groups for "fox":`)
	assert.Contains(t, out, "nature (2)")
	assert.Contains(t, out, "unknown (1)")
}

func TestSearchCmd_Highlight(t *testing.T) {
	project := indexedBooks(t)

	out, err := run(t, "--dir", project, "search", "cooking", "--field", "title", "--highlight")

	require.NoError(t, err)
	assert.Contains(t, out, "<b>Cooking</b>")
}

func TestSearchCmd_Errors(t *testing.T) {
	project := indexedBooks(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"malformed query", []string{"search", "title:"}, errors.ErrCodeSearchFailed},
		{"sort without group", []string{"search", "fox", "--sort", "title"}, errors.ErrCodeInvalidInput},
		{"negative limit", []string{"search", "fox", "--limit=-1"}, errors.ErrCodeInvalidInput},
		{"unknown format", []string{"search", "fox", "--format", "xml"}, errors.ErrCodeInvalidInput},
		{"blank query", []string{"search", "   "}, errors.ErrCodeQueryEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"--dir", project}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestSearchCmd_MissingIndex(t *testing.T) {
	project := newProject(t)

	_, err := run(t, "--dir", project, "search", "fox")

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeIndexOpen), "got %v", err)
}

func TestSearchCmd_MemoryIndexIsRejected(t *testing.T) {
	project := newProject(t)
	writeFile(t, project, ".docsearch.yaml", "index:\n  memory: true\n")

	_, err := run(t, "--dir", project, "search", "fox")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
}
