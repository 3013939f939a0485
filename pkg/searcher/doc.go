// Package searcher runs full-text queries against an index written by
// package indexer and delivers ranked results to a [Collector].
//
// # Queries
//
// The query string uses bleve query-string syntax. It is parsed once per
// requested field with that field as the default scope and the per-field
// queries are OR-ed together. Without fields the reserved
// [document.FullContentField] is searched:
//
//	s, err := searcher.New(dir)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	results, err := s.SearchAll(ctx, "firstName:John", 10)
//
// A clause with an explicit field ("title:go") only matches that field.
//
// # Snapshots
//
// The index reader is a point-in-time snapshot taken on first use and kept
// until Close. Writes made after that are not observed, whether the index
// lives in memory or on disk. Open a new Searcher to see fresh results.
//
// # Grouping
//
// [ResultGroups] buckets results by the case-folded value of a field and
// can be passed to Search directly.
package searcher
