// Package executor runs queries against a loaded book and exposes the hits
// as a lazy, restartable sequence of results with teasers.
package executor

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/catalog"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/teaser"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

const defaultTeaserWordCount = 30

// Request is one query. A zero Limit means the book's configured limit.
type Request struct {
	Query     string
	Limit     int
	Overrides parser.Overrides
}

// Result is one hit as the search widget renders it.
type Result struct {
	Ref         string  `json:"ref"`
	Score       float64 `json:"score"`
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Breadcrumbs string  `json:"breadcrumbs"`
	Teaser      string  `json:"teaser"`
}

// SearchResult is a materialized ResultSet, the form responses and the
// query cache use.
type SearchResult struct {
	Query       string   `json:"query"`
	Book        string   `json:"book,omitempty"`
	Terms       []string `json:"terms"`
	Total       int      `json:"total"`
	Results     []Result `json:"results"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ResultSet holds the ranked hits of a query. Teasers are built while
// iterating, so a caller that stops early pays only for what it read.
type ResultSet struct {
	plan        *parser.QueryPlan
	bundle      *index.Bundle
	hits        []ranker.ScoredDoc
	total       int
	teaserWords int
}

// All yields the results best first. It can be ranged over any number of
// times and always yields the same sequence.
func (rs *ResultSet) All() iter.Seq[Result] {
	return func(yield func(Result) bool) {
		for _, hit := range rs.hits {
			if !yield(rs.result(hit)) {
				return
			}
		}
	}
}

func (rs *ResultSet) result(hit ranker.ScoredDoc) Result {
	store := rs.bundle.Index.Store()
	return Result{
		Ref:         hit.Ref,
		Score:       hit.Score,
		URL:         rs.bundle.URL(hit.Ref),
		Title:       store.Field(hit.Ref, index.FieldTitle),
		Breadcrumbs: store.Field(hit.Ref, index.FieldBreadcrumbs),
		Teaser:      teaser.Make(store.Field(hit.Ref, index.FieldBody), rs.plan.Words, rs.teaserWords),
	}
}

// Len is the number of results after the limit.
func (rs *ResultSet) Len() int { return len(rs.hits) }

// Total is the number of matching documents before the limit.
func (rs *ResultSet) Total() int { return rs.total }

// Terms are the normalized query terms.
func (rs *ResultSet) Terms() []string { return rs.plan.Terms }

// Collect materializes every result.
func (rs *ResultSet) Collect() *SearchResult {
	out := &SearchResult{
		Query:   rs.plan.Raw,
		Terms:   rs.plan.Terms,
		Total:   rs.total,
		Results: make([]Result, 0, len(rs.hits)),
	}
	for r := range rs.All() {
		out.Results = append(out.Results, r)
	}
	return out
}

// Execute runs req against bundle. The result count is the smallest of the
// request limit, the bundle's limit_results and maxLimit, ignoring
// non-positive values.
func Execute(bundle *index.Bundle, req Request, maxLimit int) (*ResultSet, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: empty query", apperrors.ErrInvalidQuery)
	}
	if req.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", apperrors.ErrInvalidQuery)
	}
	opts, err := req.Overrides.Apply(bundle.SearchOptions)
	if err != nil {
		return nil, err
	}
	plan := parser.Parse(req.Query, bundle.Index, opts)
	ranked := ranker.Rank(bundle.Index, plan)

	limit := smallestPositive(req.Limit, bundle.ResultsOptions.LimitResults, maxLimit)
	teaserWords := bundle.ResultsOptions.TeaserWordCount
	if teaserWords <= 0 {
		teaserWords = defaultTeaserWordCount
	}
	return &ResultSet{
		plan:        plan,
		bundle:      bundle,
		hits:        merger.Merge(ranked, limit),
		total:       len(ranked),
		teaserWords: teaserWords,
	}, nil
}

func smallestPositive(values ...int) int {
	out := 0
	for _, v := range values {
		if v > 0 && (out == 0 || v < out) {
			out = v
		}
	}
	return out
}

// Books resolves a book name to its loaded index.
type Books interface {
	Get(book string) (*catalog.Entry, error)
}

// Executor runs queries against the books of a catalog.
type Executor struct {
	books    Books
	maxLimit int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(books Books, maxLimit int, m *metrics.Metrics) *Executor {
	return &Executor{
		books:    books,
		maxLimit: maxLimit,
		metrics:  m,
		logger:   slog.Default().With("component", "query-executor"),
	}
}

// Search runs req against book.
func (e *Executor) Search(ctx context.Context, book string, req Request) (*ResultSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, err := e.books.Get(book)
	if err != nil {
		return nil, err
	}
	return e.SearchEntry(ctx, entry, req)
}

// SearchEntry runs req against an entry the caller already resolved.
func (e *Executor) SearchEntry(ctx context.Context, entry *catalog.Entry, req Request) (*ResultSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	book := entry.Book
	_, span := tracing.StartChildSpan(ctx, "execute")
	rs, err := Execute(entry.Bundle, req, e.maxLimit)
	span.End()
	if err != nil {
		return nil, err
	}
	span.SetAttr("total", rs.Total())
	if e.metrics != nil {
		outcome := "hits"
		if rs.Total() == 0 {
			outcome = "zero"
		}
		e.metrics.SearchQueriesTotal.WithLabelValues(book, outcome).Inc()
		e.metrics.SearchResultsCount.Observe(float64(rs.Len()))
	}
	e.logger.Debug("query executed",
		"book", book,
		"query", req.Query,
		"terms", rs.Terms(),
		"total", rs.Total(),
		"returned", rs.Len(),
	)
	return rs, nil
}
