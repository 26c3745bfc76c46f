// Package teaser picks the excerpt of a body shown under a search result.
package teaser

import (
	"html"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analysis"
)

const (
	termWeight          = 40
	sentenceStartWeight = 8
	wordWeight          = 2
)

type weightedWord struct {
	text   string
	weight int
	offset int
}

// Make returns the window of wordCount words of body with the highest sum of
// word weights, the last one on ties. Words whose stem starts with the stem
// of a search word score 40, the first word of a sentence 8 and every other
// word 2. Matched words are wrapped in <em>; the rest is HTML-escaped. With
// no match the teaser is the opening window.
func Make(body string, searchWords []string, wordCount int) string {
	stems := make([]string, 0, len(searchWords))
	for _, w := range searchWords {
		if w = strings.ToLower(w); w != "" {
			stems = append(stems, analysis.Stem(w))
		}
	}

	var words []weightedWord
	found := false
	offset := 0
	for _, sentence := range strings.Split(body, ". ") {
		weight := sentenceStartWeight
		for _, word := range strings.Split(sentence, " ") {
			if word != "" {
				stem := analysis.Stem(strings.ToLower(word))
				for _, s := range stems {
					if strings.HasPrefix(stem, s) {
						weight = termWeight
						found = true
					}
				}
				words = append(words, weightedWord{text: word, weight: weight, offset: offset})
				weight = wordWeight
			}
			offset += len(word) + 1
		}
		offset++
	}
	if len(words) == 0 {
		return html.EscapeString(body)
	}

	size := min(len(words), wordCount)
	if size <= 0 {
		return ""
	}
	sum := 0
	for _, w := range words[:size] {
		sum += w.weight
	}
	windows := []int{sum}
	for i := 0; i < len(words)-size; i++ {
		sum += words[i+size].weight - words[i].weight
		windows = append(windows, sum)
	}

	start := 0
	if found {
		best := 0
		for i := len(windows) - 1; i >= 0; i-- {
			if windows[i] > best {
				best = windows[i]
				start = i
			}
		}
	}

	var b strings.Builder
	pos := words[start].offset
	for _, w := range words[start : start+size] {
		if pos < w.offset {
			b.WriteString(html.EscapeString(body[pos:w.offset]))
		}
		if w.weight == termWeight {
			b.WriteString("<em>")
		}
		b.WriteString(html.EscapeString(w.text))
		if w.weight == termWeight {
			b.WriteString("</em>")
		}
		pos = w.offset + len(w.text)
	}
	return b.String()
}
