package analysis

import (
	"bytes"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
)

// TrimmerFilter strips leading and trailing non-word runes from every token
// and drops tokens left empty.
type TrimmerFilter struct{}

var _ analysis.TokenFilter = TrimmerFilter{}

func notWordRune(r rune) bool {
	return !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
}

func (TrimmerFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := input[:0]
	for _, tok := range input {
		trimmed := bytes.TrimLeftFunc(tok.Term, notWordRune)
		tok.Start += len(tok.Term) - len(trimmed)
		trimmed = bytes.TrimRightFunc(trimmed, notWordRune)
		if len(trimmed) == 0 {
			continue
		}
		tok.Term = trimmed
		tok.End = tok.Start + len(trimmed)
		out = append(out, tok)
	}
	return out
}

func newStopWordFilter() analysis.TokenFilter {
	return stop.NewStopTokensFilter(StopWords())
}

func newStemmer() analysis.TokenFilter {
	return porter.NewPorterStemmer()
}

var stemmer = newStemmer()

// Stem applies only the Porter stemmer to a single lowercased word.
func Stem(word string) string {
	if word == "" {
		return word
	}
	out := stemmer.Filter(analysis.TokenStream{{Term: []byte(word)}})
	return string(out[0].Term)
}
