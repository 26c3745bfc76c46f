package executor_test

import (
	"context"
	"slices"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/fixtures"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/catalog"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

func mcing(t *testing.T) *index.Bundle {
	t.Helper()
	bundle, err := indexer.Build(fixtures.MCing(), indexer.DefaultBuildOptions())
	require.NoError(t, err)
	return bundle
}

func refs(rs *executor.ResultSet) []string {
	var out []string
	for r := range rs.All() {
		out = append(out, r.Ref)
	}
	return out
}

func TestCustomMatchesOnlyCustomResourceSections(t *testing.T) {
	rs, err := executor.Execute(mcing(t), executor.Request{Query: "custom"}, 0)
	require.NoError(t, err)
	got := refs(rs)
	assert.ElementsMatch(t, []string{"1", "2", "3"}, got)
	assert.NotContains(t, got, "0")
}

func TestExactTitleRanksFirst(t *testing.T) {
	bundle := mcing(t)
	for _, doc := range fixtures.MCing() {
		if doc.Title == "Custom resources" || doc.Title == "Custom Resources" {
			continue
		}
		rs, err := executor.Execute(bundle, executor.Request{Query: doc.Title}, 0)
		require.NoError(t, err)
		require.NotZero(t, rs.Len(), doc.Title)
		first := slices.Collect(rs.All())[0]
		assert.Equal(t, doc.ID, first.Ref, "query %q", doc.Title)
	}
}

func TestZeroHitsIsEmptyNotError(t *testing.T) {
	bundle := mcing(t)
	for _, q := range []string{"zebra", "the of and"} {
		rs, err := executor.Execute(bundle, executor.Request{Query: q}, 0)
		require.NoError(t, err, q)
		assert.Zero(t, rs.Len(), q)
		assert.Zero(t, rs.Total(), q)
		assert.Empty(t, rs.Collect().Results, q)
	}
}

func TestEmptyQueryIsInvalid(t *testing.T) {
	_, err := executor.Execute(mcing(t), executor.Request{Query: "   "}, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuery)
}

func TestLimitIsSmallestOfRequestBundleAndMax(t *testing.T) {
	bundle := mcing(t)
	rs, err := executor.Execute(bundle, executor.Request{Query: "minecraft", Limit: 2}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Len())
	assert.Equal(t, 3, rs.Total())

	bundle.ResultsOptions.LimitResults = 1
	rs, err = executor.Execute(bundle, executor.Request{Query: "minecraft", Limit: 2}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len())

	bundle.ResultsOptions.LimitResults = 30
	rs, err = executor.Execute(bundle, executor.Request{Query: "minecraft"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Len())
}

func TestResultsNeverExceedLimit(t *testing.T) {
	docs := make([]index.Document, 0, 50)
	for i := range 50 {
		docs = append(docs, index.Document{ID: strconv.Itoa(i), Title: "page", Body: "shared words"})
	}
	bundle, err := indexer.Build(docs, indexer.DefaultBuildOptions())
	require.NoError(t, err)
	rs, err := executor.Execute(bundle, executor.Request{Query: "shared"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, rs.Len())
	assert.Equal(t, 50, rs.Total())
}

func TestTiesFollowInsertionOrder(t *testing.T) {
	docs := []index.Document{
		{ID: "0", URL: "b.html", Title: "Same", Body: "identical text"},
		{ID: "1", URL: "a.html", Title: "Same", Body: "identical text"},
		{ID: "2", URL: "c.html", Title: "Same", Body: "identical text"},
	}
	bundle, err := indexer.Build(docs, indexer.DefaultBuildOptions())
	require.NoError(t, err)
	data, err := artifact.Encode(bundle, artifact.FormatJSON)
	require.NoError(t, err)
	decoded, err := artifact.Decode(data)
	require.NoError(t, err)

	for _, b := range []*index.Bundle{bundle, decoded} {
		rs, err := executor.Execute(b, executor.Request{Query: "identical"}, 0)
		require.NoError(t, err)
		var urls []string
		for r := range rs.All() {
			urls = append(urls, r.URL)
		}
		assert.Equal(t, []string{"b.html", "a.html", "c.html"}, urls)
	}
}

func TestAllIsRestartableAndLazy(t *testing.T) {
	rs, err := executor.Execute(mcing(t), executor.Request{Query: "minecraft"}, 0)
	require.NoError(t, err)
	first := slices.Collect(rs.All())
	second := slices.Collect(rs.All())
	assert.Equal(t, first, second)

	n := 0
	for range rs.All() {
		n++
		break
	}
	assert.Equal(t, 1, n)

	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Score, first[i].Score)
	}
}

func TestResultFields(t *testing.T) {
	rs, err := executor.Execute(mcing(t), executor.Request{Query: "kubernetes"}, 0)
	require.NoError(t, err)
	results := rs.Collect().Results
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "0", r.Ref)
	assert.Equal(t, "index.html#mcing-documentation", r.URL)
	assert.Equal(t, "MCing documentation", r.Title)
	assert.Equal(t, "MCing » MCing documentation", r.Breadcrumbs)
	assert.Contains(t, r.Teaser, "<em>Kubernetes</em>")
}

func TestAndModeOverride(t *testing.T) {
	bundle := mcing(t)
	rs, err := executor.Execute(bundle, executor.Request{Query: "minecraft server"}, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"0", "2", "3"}, refs(rs))

	rs, err = executor.Execute(bundle, executor.Request{
		Query:     "minecraft server",
		Overrides: parser.Overrides{Bool: "AND"},
	}, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"0", "3"}, refs(rs))
}

func TestExpandOverride(t *testing.T) {
	bundle := mcing(t)
	rs, err := executor.Execute(bundle, executor.Request{Query: "minec"}, 0)
	require.NoError(t, err)
	assert.NotZero(t, rs.Len())

	off := false
	rs, err = executor.Execute(bundle, executor.Request{Query: "minec", Overrides: parser.Overrides{Expand: &off}}, 0)
	require.NoError(t, err)
	assert.Zero(t, rs.Len())
}

func TestDecodedIndexRanksTheSame(t *testing.T) {
	bundle := mcing(t)
	data, err := artifact.Encode(bundle, artifact.FormatJS)
	require.NoError(t, err)
	decoded, err := artifact.Decode(data)
	require.NoError(t, err)

	for _, q := range []string{"custom", "minecraft", "resources spec", "mcing"} {
		want, err := executor.Execute(bundle, executor.Request{Query: q}, 0)
		require.NoError(t, err)
		got, err := executor.Execute(decoded, executor.Request{Query: q}, 0)
		require.NoError(t, err)
		assert.Equal(t, want.Collect(), got.Collect(), q)
	}
}

func TestExecutorSearchRecordsMetrics(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	books := catalog.New(nil, "searchindex.js", nil)
	data, err := artifact.Encode(mcing(t), artifact.FormatJSON)
	require.NoError(t, err)
	_, err = books.Put("mcing", data)
	require.NoError(t, err)

	exec := executor.New(books, 100, m)
	_, err = exec.Search(context.Background(), "mcing", executor.Request{Query: "custom"})
	require.NoError(t, err)
	_, err = exec.Search(context.Background(), "mcing", executor.Request{Query: "zebra"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("mcing", "hits")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("mcing", "zero")))

	_, err = exec.Search(context.Background(), "other", executor.Request{Query: "custom"})
	assert.ErrorIs(t, err, apperrors.ErrBookNotFound)
}
