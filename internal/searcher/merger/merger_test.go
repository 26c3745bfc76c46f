package merger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
)

func refs(docs []ranker.ScoredDoc) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Ref
	}
	return out
}

func TestMergeOrdersByScoreThenPosition(t *testing.T) {
	docs := []ranker.ScoredDoc{
		{Ref: "c", Score: 1, Position: 2},
		{Ref: "a", Score: 3, Position: 0},
		{Ref: "d", Score: 1, Position: 3},
		{Ref: "b", Score: 1, Position: 1},
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, refs(Merge(docs, 0)))
	assert.Equal(t, []string{"a", "b"}, refs(Merge(docs, 2)))
}

func TestMergeEmpty(t *testing.T) {
	got := Merge(nil, 10)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMergeLimitAboveCount(t *testing.T) {
	docs := []ranker.ScoredDoc{{Ref: "x", Score: 1}}
	assert.Equal(t, []string{"x"}, refs(Merge(docs, 30)))
}
