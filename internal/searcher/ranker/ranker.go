// Package ranker scores documents the way the browser widget's search
// library does: per-field tf·idf with length normalization, prefix-expansion
// penalties and a coordination factor, summed across boosted fields.
package ranker

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
)

// expansionPenalty scales matches on a longer token reached by prefix
// expansion.
const expansionPenalty = 0.15

type ScoredDoc struct {
	Ref      string  `json:"ref"`
	Score    float64 `json:"score"`
	Position int     `json:"-"`
}

// Rank scores every document matching plan. The result is unordered.
func Rank(ix *index.Index, plan *parser.QueryPlan) []ScoredDoc {
	if plan.Empty() {
		return nil
	}
	scores := make(map[string]float64)
	for _, field := range plan.Fields {
		for ref, score := range FieldScores(ix, plan.Terms, field) {
			scores[ref] += score * field.Boost
		}
	}
	store := ix.Store()
	result := make([]ScoredDoc, 0, len(scores))
	for ref, score := range scores {
		result = append(result, ScoredDoc{
			Ref:      ref,
			Score:    score,
			Position: store.Position(ref),
		})
	}
	return result
}

// FieldScores evaluates terms against one field. With AND, a document must
// match every term (directly or through expansion) to stay in the result.
// The coordination factor counts only exact term matches; a document reached
// purely through expansion keeps its raw score.
func FieldScores(ix *index.Index, terms []string, field parser.FieldPlan) map[string]float64 {
	tree := ix.Tree(field.Name)
	if tree == nil || field.Boost == 0 || len(terms) == 0 {
		return nil
	}
	store := ix.Store()

	var scores map[string]float64
	exact := make(map[string]int)
	for _, term := range terms {
		keys := []string{term}
		if field.Expand {
			keys = tree.ExpandToken(term)
		}

		termScores := make(map[string]float64)
		for _, key := range keys {
			docs := tree.Docs(key)
			if len(docs) == 0 {
				continue
			}
			idf := ix.IDF(field.Name, key)
			penalty := 1.0
			if key != term {
				penalty = (1 - float64(len(key)-len(term))/float64(len(key))) * expansionPenalty
			}
			for ref, posting := range docs {
				if scores != nil && field.Bool == index.BoolAnd {
					if _, ok := scores[ref]; !ok {
						continue
					}
				}
				if key == term {
					exact[ref]++
				}
				norm := 1.0
				if length := store.FieldLength(ref, field.Name); length != 0 {
					norm = 1 / math.Sqrt(float64(length))
				}
				termScores[ref] += float64(posting.TF) * idf * norm * penalty
			}
		}
		scores = merge(scores, termScores, field.Bool)
	}

	for ref := range scores {
		if n := exact[ref]; n > 0 {
			scores[ref] *= float64(n) / float64(len(terms))
		}
	}
	return scores
}

func merge(acc, next map[string]float64, mode index.BoolMode) map[string]float64 {
	if acc == nil {
		return next
	}
	if mode == index.BoolAnd {
		both := make(map[string]float64, len(next))
		for ref, score := range next {
			if prev, ok := acc[ref]; ok {
				both[ref] = prev + score
			}
		}
		return both
	}
	for ref, score := range next {
		acc[ref] += score
	}
	return acc
}
