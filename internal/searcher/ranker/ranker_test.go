package ranker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
)

func twoDocIndex(t *testing.T) *index.Index {
	t.Helper()
	ix := index.New([]string{index.FieldTitle, index.FieldBody}, analysis.Default())
	require.NoError(t, ix.AddDoc("0", map[string]string{"title": "alpha", "body": "alpha beta"}))
	require.NoError(t, ix.AddDoc("1", map[string]string{"title": "beta", "body": "gamma"}))
	return ix
}

func options(mode index.BoolMode, expand bool) index.SearchOptions {
	return index.SearchOptions{
		Bool:   mode,
		Expand: expand,
		Fields: map[string]index.FieldOptions{
			index.FieldTitle: {Boost: 2},
			index.FieldBody:  {Boost: 1},
		},
	}
}

func scores(docs []ScoredDoc) map[string]float64 {
	out := make(map[string]float64, len(docs))
	for _, d := range docs {
		out[d.Ref] = d.Score
	}
	return out
}

func TestRankExactTerm(t *testing.T) {
	ix := twoDocIndex(t)
	got := scores(Rank(ix, parser.Parse("alpha", ix, options(index.BoolOr, true))))
	// title: tf 1, idf 1 + ln(2/2), length 1, boost 2; body: length 2.
	require.Len(t, got, 1)
	assert.InDelta(t, 2+1/math.Sqrt2, got["0"], 1e-9)
}

func TestRankExpandedTermIsPenalized(t *testing.T) {
	ix := twoDocIndex(t)
	got := scores(Rank(ix, parser.Parse("alph", ix, options(index.BoolOr, true))))
	penalty := (1 - 1.0/5) * 0.15
	assert.InDelta(t, 2*penalty+penalty/math.Sqrt2, got["0"], 1e-9)

	none := Rank(ix, parser.Parse("alph", ix, options(index.BoolOr, false)))
	assert.Empty(t, none)
}

func TestRankCoordinationNorm(t *testing.T) {
	ix := twoDocIndex(t)
	got := scores(Rank(ix, parser.Parse("alpha gamma", ix, options(index.BoolOr, true))))
	assert.InDelta(t, 2*0.5+0.5/math.Sqrt2, got["0"], 1e-9)
	assert.InDelta(t, 0.5, got["1"], 1e-9)
}

func TestRankAndRequiresEveryTermPerField(t *testing.T) {
	ix := twoDocIndex(t)
	got := scores(Rank(ix, parser.Parse("alpha beta", ix, options(index.BoolAnd, true))))
	// Only doc 0's body holds both terms; titles hold one each.
	require.Len(t, got, 1)
	idfBeta := 1 + math.Log(2.0/2.0)
	assert.InDelta(t, (1+idfBeta)/math.Sqrt2, got["0"], 1e-9)

	assert.Empty(t, Rank(ix, parser.Parse("alpha zeta", ix, options(index.BoolAnd, true))))
}

func TestRankUnknownTermAndStopWords(t *testing.T) {
	ix := twoDocIndex(t)
	assert.Empty(t, Rank(ix, parser.Parse("zeta", ix, options(index.BoolOr, true))))
	assert.Empty(t, Rank(ix, parser.Parse("the and of", ix, options(index.BoolOr, true))))
}

func TestFieldScoresZeroBoost(t *testing.T) {
	ix := twoDocIndex(t)
	assert.Nil(t, FieldScores(ix, []string{"alpha"}, parser.FieldPlan{Name: "title", Boost: 0, Bool: index.BoolOr}))
	assert.Nil(t, FieldScores(ix, []string{"alpha"}, parser.FieldPlan{Name: "missing", Boost: 1, Bool: index.BoolOr}))
}

func TestRankPositions(t *testing.T) {
	ix := twoDocIndex(t)
	for _, d := range Rank(ix, parser.Parse("beta", ix, options(index.BoolOr, true))) {
		assert.Equal(t, ix.Store().Position(d.Ref), d.Position)
	}
}

func TestRankCoordinationCountsExactMatchesOnly(t *testing.T) {
	ix := index.New([]string{index.FieldBody}, analysis.Default())
	require.NoError(t, ix.AddDoc("0", map[string]string{"body": "custom minecraft"}))
	require.NoError(t, ix.AddDoc("1", map[string]string{"body": "minecraft server"}))
	require.NoError(t, ix.AddDoc("2", map[string]string{"body": "custom"}))
	opts := index.SearchOptions{
		Bool:   index.BoolOr,
		Expand: true,
		Fields: map[string]index.FieldOptions{index.FieldBody: {Boost: 1}},
	}

	got := scores(Rank(ix, parser.Parse("cust minecraft", ix, opts)))
	// "cust" reaches "custom" only by expansion: idf 1, penalty (1-2/6)*0.15.
	penalty := (1 - 2.0/6) * 0.15
	require.Len(t, got, 3)
	// Doc 0 matched "minecraft" exactly, so one of two terms counts.
	assert.InDelta(t, (penalty+1)/math.Sqrt2/2, got["0"], 1e-9)
	assert.InDelta(t, 1/math.Sqrt2/2, got["1"], 1e-9)
	// Doc 2 has no exact match and keeps its raw score.
	assert.InDelta(t, penalty, got["2"], 1e-9)
}
