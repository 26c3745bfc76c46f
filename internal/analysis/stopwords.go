package analysis

import "github.com/blevesearch/bleve/v2/analysis"

// englishStopWords is the stop list shipped with the browser-side search
// widget. Query and index normalization must agree on it exactly.
var englishStopWords = []string{
	"a", "able", "about", "across", "after", "all", "almost", "also", "am",
	"among", "an", "and", "any", "are", "as", "at", "be", "because", "been",
	"but", "by", "can", "cannot", "could", "dear", "did", "do", "does",
	"either", "else", "ever", "every", "for", "from", "get", "got", "had",
	"has", "have", "he", "her", "hers", "him", "his", "how", "however", "i",
	"if", "in", "into", "is", "it", "its", "just", "least", "let", "like",
	"likely", "may", "me", "might", "most", "must", "my", "neither", "no",
	"nor", "not", "of", "off", "often", "on", "only", "or", "other", "our",
	"own", "rather", "said", "say", "says", "she", "should", "since", "so",
	"some", "than", "that", "the", "their", "them", "then", "there", "these",
	"they", "this", "tis", "to", "too", "twas", "us", "wants", "was", "we",
	"were", "what", "when", "where", "which", "while", "who", "whom", "why",
	"will", "with", "would", "yet", "you", "your",
}

// StopWords returns the English stop list as a bleve token map.
func StopWords() analysis.TokenMap {
	tm := analysis.NewTokenMap()
	for _, w := range englishStopWords {
		tm.AddToken(w)
	}
	return tm
}

// IsStopWord reports whether word (already lowercased) is on the stop list.
func IsStopWord(word string) bool {
	_, ok := stopWordSet[word]
	return ok
}

var stopWordSet = StopWords()
