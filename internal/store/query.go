package store

import (
	"fmt"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/search/query"
)

// PolicyLookup resolves the indexing policy of a field.
type PolicyLookup func(field string) (FieldPolicy, error)

// QueryBuilder builds engine queries that agree with how fields were indexed.
type QueryBuilder struct {
	lookup PolicyLookup
}

// NewQueryBuilder returns a builder using lookup for field policies.
// A nil lookup treats every field as analyzed with boost 1.
func NewQueryBuilder(lookup PolicyLookup) *QueryBuilder {
	if lookup == nil {
		lookup = func(string) (FieldPolicy, error) { return DefaultPolicy, nil }
	}
	return &QueryBuilder{lookup: lookup}
}

// QueryBuilder returns a builder backed by the reader's persisted policies.
func (r *Reader) QueryBuilder() *QueryBuilder {
	return NewQueryBuilder(func(field string) (FieldPolicy, error) {
		p, _, err := r.FieldPolicy(field)
		return p, err
	})
}

type boostable interface {
	Boost() float64
	SetBoost(b float64)
}

// ParseField parses text in bleve query-string syntax. Clauses without an
// explicit field are scoped to field. Exact fields are matched with the
// keyword analyzer and boosted fields get their boost multiplied in.
func (b *QueryBuilder) ParseField(field, text string) (query.Query, error) {
	q, err := query.NewQueryStringQuery(text).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", text, err)
	}
	if err := b.bind(q, field); err != nil {
		return nil, err
	}
	return q, nil
}

func (b *QueryBuilder) bind(q query.Query, field string) error {
	switch v := q.(type) {
	case nil:
		return nil
	case *query.BooleanQuery:
		for _, c := range []query.Query{v.Must, v.Should, v.MustNot} {
			if err := b.bind(c, field); err != nil {
				return err
			}
		}
		return nil
	case *query.ConjunctionQuery:
		for _, c := range v.Conjuncts {
			if err := b.bind(c, field); err != nil {
				return err
			}
		}
		return nil
	case *query.DisjunctionQuery:
		for _, c := range v.Disjuncts {
			if err := b.bind(c, field); err != nil {
				return err
			}
		}
		return nil
	case query.FieldableQuery:
		if v.Field() == "" {
			v.SetField(field)
		}
		p, err := b.lookup(v.Field())
		if err != nil {
			return err
		}
		if !p.Analyzed {
			switch m := q.(type) {
			case *query.MatchQuery:
				m.Analyzer = keyword.Name
			case *query.MatchPhraseQuery:
				m.Analyzer = keyword.Name
			}
		}
		if bq, ok := q.(boostable); ok && p.Boost > 0 && p.Boost != 1 {
			bq.SetBoost(bq.Boost() * p.Boost)
		}
	}
	return nil
}

// Term matches field exactly against value.
func (b *QueryBuilder) Term(field, value string) query.Query {
	q := query.NewTermQuery(value)
	q.SetField(field)
	return q
}

// Or matches entries matched by any of qs. An empty Or matches nothing.
func (b *QueryBuilder) Or(qs ...query.Query) query.Query {
	if len(qs) == 0 {
		return query.NewMatchNoneQuery()
	}
	return query.NewDisjunctionQuery(qs)
}

// AnalyzerLookup resolves the analyzer a field was indexed with.
type AnalyzerLookup func(field string) (analysis.Analyzer, error)

// QueryTerms collects the terms a query can match, per field, as they
// appear in the index. Negated clauses are skipped.
func QueryTerms(q query.Query, analyzerFor AnalyzerLookup) (map[string]map[string]struct{}, error) {
	terms := make(map[string]map[string]struct{})
	add := func(field, term string) {
		if term == "" {
			return
		}
		set, ok := terms[field]
		if !ok {
			set = make(map[string]struct{})
			terms[field] = set
		}
		set[term] = struct{}{}
	}
	analyze := func(field, text string) error {
		an, err := analyzerFor(field)
		if err != nil {
			return err
		}
		for _, tok := range an.Analyze([]byte(text)) {
			add(field, string(tok.Term))
		}
		return nil
	}

	var walk func(q query.Query) error
	walk = func(q query.Query) error {
		switch v := q.(type) {
		case *query.BooleanQuery:
			if err := walk(v.Must); err != nil {
				return err
			}
			return walk(v.Should)
		case *query.ConjunctionQuery:
			for _, c := range v.Conjuncts {
				if err := walk(c); err != nil {
					return err
				}
			}
		case *query.DisjunctionQuery:
			for _, c := range v.Disjuncts {
				if err := walk(c); err != nil {
					return err
				}
			}
		case *query.MatchQuery:
			return analyze(v.Field(), v.Match)
		case *query.MatchPhraseQuery:
			return analyze(v.Field(), v.MatchPhrase)
		case *query.TermQuery:
			add(v.Field(), v.Term)
		case *query.FuzzyQuery:
			add(v.Field(), v.Term)
		}
		return nil
	}
	if err := walk(q); err != nil {
		return nil, err
	}
	return terms, nil
}

// AllTerms merges the per-field terms of QueryTerms into one set.
func AllTerms(terms map[string]map[string]struct{}) map[string]struct{} {
	all := make(map[string]struct{})
	for _, set := range terms {
		for term := range set {
			all[term] = struct{}{}
		}
	}
	return all
}
