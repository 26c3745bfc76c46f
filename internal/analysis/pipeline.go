// Package analysis turns field text and queries into index terms. Every
// index records the names of the pipeline it was built with, and the query
// side rebuilds the identical pipeline from those names.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const (
	Trimmer        = "trimmer"
	StopWordFilter = "stopWordFilter"
	Stemmer        = "stemmer"
)

// filterFactory builds a fresh token filter for a pipeline.
type filterFactory func() analysis.TokenFilter

var factories = map[string]filterFactory{
	Trimmer:        func() analysis.TokenFilter { return TrimmerFilter{} },
	StopWordFilter: newStopWordFilter,
	Stemmer:        newStemmer,
}

// Registered lists the known filter names.
func Registered() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline is a tokenizer followed by named token filters. It is immutable
// and safe for concurrent use.
type Pipeline struct {
	tokenizer analysis.Tokenizer
	names     []string
	filters   []analysis.TokenFilter
}

// DefaultNames is the order used by the browser widget.
var DefaultNames = []string{Trimmer, StopWordFilter, Stemmer}

// Default returns trimmer, stop-word filter and stemmer.
func Default() *Pipeline {
	p, err := New(DefaultNames...)
	if err != nil {
		panic(err)
	}
	return p
}

// New builds a pipeline from registered filter names.
func New(names ...string) (*Pipeline, error) {
	p := &Pipeline{
		tokenizer: Tokenizer{},
		names:     append([]string(nil), names...),
		filters:   make([]analysis.TokenFilter, 0, len(names)),
	}
	for _, name := range names {
		factory, ok := factories[name]
		if !ok {
			return nil, fmt.Errorf("pipeline function %q (known: %s): %w",
				name, strings.Join(Registered(), ", "), apperrors.ErrUnknownPipeline)
		}
		p.filters = append(p.filters, factory())
	}
	return p, nil
}

// Names returns the filter names in order.
func (p *Pipeline) Names() []string {
	return append([]string(nil), p.names...)
}

// Analyze tokenizes text and runs every filter over the stream.
func (p *Pipeline) Analyze(text string) analysis.TokenStream {
	stream := p.tokenizer.Tokenize([]byte(text))
	for _, f := range p.filters {
		stream = f.Filter(stream)
	}
	return stream
}

// Terms returns the normalized terms of text in order, duplicates kept.
func (p *Pipeline) Terms(text string) []string {
	stream := p.Analyze(text)
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) == 0 {
			continue
		}
		terms = append(terms, string(tok.Term))
	}
	return terms
}
