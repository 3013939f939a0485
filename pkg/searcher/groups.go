package searcher

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/Aman-CERP/docsearch/internal/errors"
)

// DefaultGroupMaxResults is the MaxResults of a ResultGroups used as a
// Collector.
const DefaultGroupMaxResults = 100

// GroupRenderer receives one group at a time from ResultGroups.Render.
type GroupRenderer interface {
	RenderGroup(key string, results []*Result) error
}

// GroupRendererFunc adapts a function to a GroupRenderer.
type GroupRendererFunc func(key string, results []*Result) error

// RenderGroup implements GroupRenderer.
func (f GroupRendererFunc) RenderGroup(key string, results []*Result) error {
	return f(key, results)
}

// ResultGroups buckets results by the case-folded value of a group field.
// Groups keep the order in which their keys were first seen. It is not
// safe for concurrent use.
type ResultGroups struct {
	groupField string
	missingKey string
	sortFields []string
	max        int

	fold   cases.Caser
	keys   []string
	groups map[string][]*Result
}

// NewResultGroups groups by groupField. Results without a value (or with
// an empty one) go to missingKey. Within a group, Render orders results by
// sortFields, compared in turn.
func NewResultGroups(groupField, missingKey string, sortFields ...string) *ResultGroups {
	return &ResultGroups{
		groupField: groupField,
		missingKey: missingKey,
		sortFields: slices.Clone(sortFields),
		max:        DefaultGroupMaxResults,
		fold:       cases.Fold(),
		groups:     make(map[string][]*Result),
	}
}

// WithMaxResults sets the value returned by MaxResults.
func (g *ResultGroups) WithMaxResults(n int) *ResultGroups {
	g.max = n
	return g
}

// MaxResults implements Collector.
func (g *ResultGroups) MaxResults() int { return g.max }

// OnResult implements Collector.
func (g *ResultGroups) OnResult(r *Result) error { return g.Add(r) }

// Add appends r to the group of its group-field value.
func (g *ResultGroups) Add(r *Result) error {
	value, ok, err := r.Document().Value(g.groupField)
	if err != nil {
		return errors.SearchError(fmt.Sprintf("failed to read group field %s", g.groupField), err)
	}
	key := g.missingKey
	if ok && value != "" {
		key = g.fold.String(value)
	}
	if _, seen := g.groups[key]; !seen {
		g.keys = append(g.keys, key)
	}
	g.groups[key] = append(g.groups[key], r)
	return nil
}

// Keys returns the group keys in insertion order.
func (g *ResultGroups) Keys() []string { return slices.Clone(g.keys) }

// Group returns the results of key in collection order.
func (g *ResultGroups) Group(key string) []*Result { return slices.Clone(g.groups[key]) }

// Len returns the number of groups.
func (g *ResultGroups) Len() int { return len(g.keys) }

// Render sorts every group by the sort fields and passes the groups to
// renderer in insertion order. Sorting is stable. A result missing a sort
// field fails the render before anything is passed to renderer.
func (g *ResultGroups) Render(renderer GroupRenderer) error {
	sorted := make([][]*Result, len(g.keys))
	for i, key := range g.keys {
		results, err := g.sorted(g.groups[key])
		if err != nil {
			return err
		}
		sorted[i] = results
	}
	for i, key := range g.keys {
		g.groups[key] = sorted[i]
		if err := renderer.RenderGroup(key, slices.Clone(sorted[i])); err != nil {
			return err
		}
	}
	return nil
}

func (g *ResultGroups) sorted(results []*Result) ([]*Result, error) {
	if len(g.sortFields) == 0 {
		return results, nil
	}

	type keyed struct {
		r      *Result
		values []string
	}
	rows := make([]keyed, len(results))
	for i, r := range results {
		values := make([]string, len(g.sortFields))
		for j, field := range g.sortFields {
			v, ok, err := r.Document().Value(field)
			if err != nil {
				return nil, errors.SearchError(fmt.Sprintf("failed to read sort field %s", field), err)
			}
			if !ok {
				return nil, errors.SearchError(fmt.Sprintf("result has no value for sort field %s", field), nil)
			}
			values[j] = v
		}
		rows[i] = keyed{r: r, values: values}
	}

	slices.SortStableFunc(rows, func(a, b keyed) int {
		for i := range a.values {
			if c := strings.Compare(a.values[i], b.values[i]); c != 0 {
				return c
			}
		}
		return 0
	})

	out := make([]*Result, len(rows))
	for i, row := range rows {
		out[i] = row.r
	}
	return out, nil
}

var _ Collector = (*ResultGroups)(nil)
