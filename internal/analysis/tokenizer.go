package analysis

import (
	"bytes"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
)

// Tokenizer lowercases its input and splits it on runs of whitespace and
// hyphens. Offsets refer to the lowercased text.
type Tokenizer struct{}

var _ analysis.Tokenizer = Tokenizer{}

func isSeparator(r rune) bool {
	return r == '-' || unicode.IsSpace(r)
}

func (Tokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := bytes.ToLower(bytes.TrimSpace(input))
	stream := make(analysis.TokenStream, 0, len(text)/6+1)
	start := -1
	emit := func(end int) {
		stream = append(stream, &analysis.Token{
			Term:     text[start:end],
			Start:    start,
			End:      end,
			Position: len(stream) + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRune(text[i:])
		if isSeparator(r) {
			if start >= 0 {
				emit(i)
				start = -1
			}
		} else if start < 0 {
			start = i
		}
		i += size
	}
	if start >= 0 {
		emit(len(text))
	}
	return stream
}
