package searcher

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/pkg/document"
)

func result(pairs ...string) *Result {
	return NewResult(document.NewMapDocument(pairs...), 1, "")
}

func TestResultGroups_GroupsByFoldedValue(t *testing.T) {
	// Given: results whose group values differ only in case
	r1 := result("id", "1", "brand", "Alpha")
	r2 := result("id", "2", "brand", "alpha")
	r3 := result("id", "3", "brand", "Beta")

	g := NewResultGroups("brand", "(none)")
	for _, r := range []*Result{r1, r2, r3} {
		require.NoError(t, g.OnResult(r))
	}

	// Then: they share a folded key and keys keep insertion order
	assert.Equal(t, []string{"alpha", "beta"}, g.Keys())
	assert.Equal(t, []*Result{r1, r2}, g.Group("alpha"))
	assert.Equal(t, []*Result{r3}, g.Group("beta"))
	assert.Equal(t, 2, g.Len())
}

func TestResultGroups_MissingValueUsesMissingKey(t *testing.T) {
	g := NewResultGroups("brand", "(none)")
	require.NoError(t, g.Add(result("id", "1")))
	require.NoError(t, g.Add(result("id", "2", "brand", "")))

	assert.Equal(t, []string{"(none)"}, g.Keys())
	assert.Len(t, g.Group("(none)"), 2)
}

func TestResultGroups_MaxResults(t *testing.T) {
	g := NewResultGroups("brand", "")
	assert.Equal(t, DefaultGroupMaxResults, g.MaxResults())
	assert.Equal(t, 5, g.WithMaxResults(5).MaxResults())
}

func TestResultGroups_RenderSortsWithinGroups(t *testing.T) {
	// Given: one group with unsorted names and a tie on the first sort field
	a := result("brand", "x", "name", "b", "rank", "1")
	b := result("brand", "x", "name", "a", "rank", "2")
	c := result("brand", "x", "name", "b", "rank", "0")
	d := result("brand", "y", "name", "z", "rank", "0")

	g := NewResultGroups("brand", "", "name", "rank")
	for _, r := range []*Result{a, b, c, d} {
		require.NoError(t, g.Add(r))
	}

	// When: rendering
	var keys []string
	rendered := map[string][]*Result{}
	err := g.Render(GroupRendererFunc(func(key string, results []*Result) error {
		keys = append(keys, key)
		rendered[key] = results
		return nil
	}))

	// Then: groups come in insertion order, each sorted by name then rank
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, keys)
	assert.Equal(t, []*Result{b, c, a}, rendered["x"])
	assert.Equal(t, []*Result{d}, rendered["y"])
}

func TestResultGroups_RenderStableWithoutDistinctKeys(t *testing.T) {
	a := result("brand", "x", "name", "same", "id", "1")
	b := result("brand", "x", "name", "same", "id", "2")

	g := NewResultGroups("brand", "", "name")
	require.NoError(t, g.Add(a))
	require.NoError(t, g.Add(b))

	var got []*Result
	require.NoError(t, g.Render(GroupRendererFunc(func(_ string, results []*Result) error {
		got = results
		return nil
	})))
	assert.Equal(t, []*Result{a, b}, got)
}

func TestResultGroups_RenderMissingSortValueFails(t *testing.T) {
	// Given: the second group holds a result without the sort field
	g := NewResultGroups("brand", "", "name")
	require.NoError(t, g.Add(result("brand", "x", "name", "a")))
	require.NoError(t, g.Add(result("brand", "y")))

	// When: rendering
	calls := 0
	err := g.Render(GroupRendererFunc(func(string, []*Result) error {
		calls++
		return nil
	}))

	// Then: nothing is rendered
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSearchFailed, errors.GetCode(err))
	assert.Zero(t, calls)
}

func TestResultGroups_RenderStopsOnRendererError(t *testing.T) {
	g := NewResultGroups("brand", "")
	require.NoError(t, g.Add(result("brand", "x")))
	require.NoError(t, g.Add(result("brand", "y")))

	boom := fmt.Errorf("write failed")
	calls := 0
	err := g.Render(GroupRendererFunc(func(string, []*Result) error {
		calls++
		return boom
	}))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestCollectors(t *testing.T) {
	c := NewSliceCollector(3)
	r := result("id", "1")
	require.NoError(t, c.OnResult(r))
	assert.Equal(t, 3, c.MaxResults())
	assert.Equal(t, []*Result{r}, c.Results)

	var seen []*Result
	f := CollectorFunc(7, func(r *Result) error {
		seen = append(seen, r)
		return nil
	})
	require.NoError(t, f.OnResult(r))
	assert.Equal(t, 7, f.MaxResults())
	assert.Equal(t, []*Result{r}, seen)
}

func TestNewResult_FixedHighlight(t *testing.T) {
	r := NewResult(document.NewMapDocument("id", "1"), 2.5, "<b>x</b>")
	h, err := r.Highlight()
	require.NoError(t, err)
	assert.Equal(t, "<b>x</b>", h)
	assert.Equal(t, 2.5, r.Score())
}
