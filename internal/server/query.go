package server

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/output"
	"github.com/Aman-CERP/docsearch/pkg/searcher"
)

// MaxLimit caps the number of results a single request may ask for.
const MaxLimit = 1000

// Searcher runs queries. *searcher.Searcher implements it.
type Searcher interface {
	Search(ctx context.Context, q string, fields []string, collector searcher.Collector) error
}

// Request is a transport-independent search request.
type Request struct {
	Query     string
	Fields    []string
	Limit     int
	Group     string
	Sort      []string
	Highlight bool
}

// Response carries either flat hits or groups.
type Response struct {
	Query  string         `json:"query"`
	Total  int            `json:"total"`
	Hits   []output.Hit   `json:"hits,omitempty"`
	Groups []output.Group `json:"groups,omitempty"`
}

// Defaults fill in what a request leaves unset.
type Defaults struct {
	MaxResults int
	Fields     []string
	MissingKey string
}

// Executor validates requests and runs them against a Searcher.
type Executor struct {
	mu       sync.RWMutex
	searcher Searcher
	defaults Defaults
}

// NewExecutor returns an executor over s.
func NewExecutor(s Searcher, defaults Defaults) *Executor {
	if defaults.MaxResults <= 0 {
		defaults.MaxResults = 20
	}
	return &Executor{searcher: s, defaults: defaults}
}

// Normalize validates req and fills in the defaults it leaves unset.
func (e *Executor) Normalize(req Request) (Request, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return Request{}, errors.New(errors.ErrCodeQueryEmpty, "query is required", nil).
			WithSuggestion("Pass a query such as title:guide or \"exact phrase\"")
	}

	switch {
	case req.Limit == 0:
		req.Limit = e.defaults.MaxResults
	case req.Limit < 0 || req.Limit > MaxLimit:
		return Request{}, errors.ValidationError(
			fmt.Sprintf("limit must be between 1 and %d, got %d", MaxLimit, req.Limit), nil)
	}
	if len(req.Sort) > 0 && req.Group == "" {
		return Request{}, errors.ValidationError("sort fields require a group field", nil)
	}
	if len(req.Fields) == 0 {
		req.Fields = e.defaults.Fields
	}
	return req, nil
}

// Swap makes later requests use s and returns the previous searcher. It
// waits for running requests, so the caller may close the returned
// searcher right away.
func (e *Executor) Swap(s Searcher) Searcher {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.searcher
	e.searcher = s
	return prev
}

// MissingKey is the group key of results without the group field.
func (e *Executor) MissingKey() string {
	return e.defaults.MissingKey
}

// Execute runs req.
func (e *Executor) Execute(ctx context.Context, req Request) (Response, error) {
	req, err := e.Normalize(req)
	if err != nil {
		return Response{}, err
	}
	q, limit, fields := req.Query, req.Limit, req.Fields

	// Results read their searcher until they are rendered.
	e.mu.RLock()
	defer e.mu.RUnlock()

	resp := Response{Query: q}
	if req.Group == "" {
		c := searcher.NewSliceCollector(limit)
		if err := e.searcher.Search(ctx, q, fields, c); err != nil {
			return Response{}, err
		}
		hits, err := output.ToHits(c.Results, req.Highlight)
		if err != nil {
			return Response{}, errors.SearchError("failed to read results", err)
		}
		resp.Hits, resp.Total = hits, len(hits)
		return resp, nil
	}

	g := searcher.NewResultGroups(req.Group, e.defaults.MissingKey, req.Sort...).WithMaxResults(limit)
	if err := e.searcher.Search(ctx, q, fields, g); err != nil {
		return Response{}, err
	}
	groups, err := output.ToGroups(g, req.Highlight)
	if err != nil {
		return Response{}, errors.SearchError("failed to render groups", err)
	}
	resp.Groups = groups
	for _, grp := range groups {
		resp.Total += len(grp.Hits)
	}
	return resp, nil
}
