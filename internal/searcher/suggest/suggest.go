// Package suggest proposes "did you mean" corrections for query words that
// match nothing in a book, drawn from the words of its titles and
// breadcrumbs.
package suggest

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/bbalet/stopwords"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
)

const (
	minWordLength  = 3
	vocabCacheSize = 32
)

// Suggestion replaces Word of the query with one of Candidates, closest
// first.
type Suggestion struct {
	Word       string   `json:"word"`
	Candidates []string `json:"candidates"`
}

// Suggester caches the vocabulary of each index by fingerprint.
type Suggester struct {
	vocab *lru.Cache[string, []string]
	max   int
}

// New returns a Suggester offering at most max candidates per word.
func New(max int) *Suggester {
	cache, _ := lru.New[string, []string](vocabCacheSize)
	if max <= 0 {
		max = 3
	}
	return &Suggester{vocab: cache, max: max}
}

// Suggest returns corrections for every word of query whose normalized term
// is not a prefix of any indexed token. fingerprint keys the vocabulary
// cache; an empty fingerprint disables caching.
func (s *Suggester) Suggest(bundle *index.Bundle, fingerprint, query string) []Suggestion {
	ix := bundle.Index
	var vocab []string
	var out []Suggestion
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.TrimFunc(word, notLetter)
		if len([]rune(word)) < minWordLength {
			continue
		}
		terms := ix.Pipeline().Terms(word)
		if len(terms) == 0 || matches(ix, terms) {
			continue
		}
		if vocab == nil {
			vocab = s.vocabulary(bundle, fingerprint)
		}
		if candidates := s.closest(word, vocab); len(candidates) > 0 {
			out = append(out, Suggestion{Word: word, Candidates: candidates})
		}
	}
	return out
}

func matches(ix *index.Index, terms []string) bool {
	for _, name := range ix.Fields() {
		tree := ix.Tree(name)
		for _, t := range terms {
			if len(tree.ExpandToken(t)) > 0 {
				return true
			}
		}
	}
	return false
}

type scored struct {
	word     string
	distance int
}

func (s *Suggester) closest(word string, vocab []string) []string {
	limit := maxDistance(word)
	var found []scored
	for _, candidate := range vocab {
		if candidate == word {
			continue
		}
		d := stopwords.LevenshteinDistance([]byte(word), []byte(candidate), "en", false)
		if d > 0 && d <= limit {
			found = append(found, scored{word: candidate, distance: d})
		}
	}
	slices.SortFunc(found, func(a, b scored) int {
		if c := cmp.Compare(a.distance, b.distance); c != 0 {
			return c
		}
		return strings.Compare(a.word, b.word)
	})
	out := make([]string, 0, min(len(found), s.max))
	for _, f := range found[:min(len(found), s.max)] {
		out = append(out, f.word)
	}
	return out
}

// maxDistance allows one edit for short words and two otherwise.
func maxDistance(word string) int {
	if len([]rune(word)) <= 4 {
		return 1
	}
	return 2
}

func (s *Suggester) vocabulary(bundle *index.Bundle, fingerprint string) []string {
	if fingerprint != "" {
		if v, ok := s.vocab.Get(fingerprint); ok {
			return v
		}
	}
	store := bundle.Index.Store()
	seen := make(map[string]struct{})
	var vocab []string
	for _, ref := range store.Refs() {
		text := store.Field(ref, index.FieldTitle) + " " + store.Field(ref, index.FieldBreadcrumbs)
		for _, w := range strings.FieldsFunc(strings.ToLower(text), notLetter) {
			if len([]rune(w)) < minWordLength {
				continue
			}
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			vocab = append(vocab, w)
		}
	}
	slices.Sort(vocab)
	if fingerprint != "" {
		s.vocab.Add(fingerprint, vocab)
	}
	return vocab
}

func notLetter(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
