// Package benchmark measures index builds, artifact codecs and queries over
// synthetic books of increasing size.
//
// Run with:
//
//	go test -bench=. -benchmem ./test/benchmark/...
package benchmark

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/fixtures"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
)

var vocabulary = strings.Fields(`kubernetes operator minecraft server custom resource
	definition controller reconcile volume claim persistent storage image status
	specification metadata field scheme required description schema list items
	deployment service account role binding namespace cluster webhook validation
	defaulting conversion finalizer label annotation selector replica pod`)

// corpus returns n sections with deterministic pseudo-random bodies.
func corpus(n int) []index.Document {
	rng := rand.New(rand.NewSource(42))
	docs := make([]index.Document, 0, n)
	for i := range n {
		words := make([]string, 40+rng.Intn(160))
		for j := range words {
			words[j] = vocabulary[rng.Intn(len(vocabulary))]
		}
		title := fmt.Sprintf("%s %s", vocabulary[rng.Intn(len(vocabulary))], vocabulary[rng.Intn(len(vocabulary))])
		docs = append(docs, index.Document{
			ID:          fmt.Sprint(i),
			URL:         fmt.Sprintf("chapter_%d.html#section-%d", i/10, i),
			Title:       title,
			Body:        strings.Join(words, " "),
			Breadcrumbs: []string{fmt.Sprintf("Chapter %d", i/10), title},
		})
	}
	return docs
}

var sizes = []int{100, 1000, 5000}

// mcingBody is a realistic section body for teaser benchmarks.
var mcingBody = fixtures.SubResourcesBody()
