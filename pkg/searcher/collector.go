package searcher

// Collector receives search results in descending score order.
type Collector interface {
	// MaxResults bounds the number of OnResult calls. It must not be
	// negative; zero yields no results.
	MaxResults() int

	// OnResult receives one result. A returned error aborts the search
	// and is returned from Search.
	OnResult(r *Result) error
}

type funcCollector struct {
	max int
	fn  func(*Result) error
}

func (c funcCollector) MaxResults() int          { return c.max }
func (c funcCollector) OnResult(r *Result) error { return c.fn(r) }

// CollectorFunc adapts fn to a Collector accepting at most max results.
func CollectorFunc(max int, fn func(*Result) error) Collector {
	return funcCollector{max: max, fn: fn}
}

// SliceCollector keeps results in delivery order.
type SliceCollector struct {
	Max     int
	Results []*Result
}

// NewSliceCollector returns a collector accepting at most max results.
func NewSliceCollector(max int) *SliceCollector {
	return &SliceCollector{Max: max}
}

// MaxResults implements Collector.
func (c *SliceCollector) MaxResults() int { return c.Max }

// OnResult implements Collector.
func (c *SliceCollector) OnResult(r *Result) error {
	c.Results = append(c.Results, r)
	return nil
}

var (
	_ Collector = (*SliceCollector)(nil)
	_ Collector = funcCollector{}
)
