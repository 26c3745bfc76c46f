// Package index holds the in-memory search index: one prefix tree per field,
// a document store, and the JSON layout shared with the browser-side search
// widget. An Index is written once by the builder and only read afterwards.
package index

import (
	"fmt"
	"math"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analysis"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const (
	Lang    = "English"
	Version = "0.9.5"
)

// Document is one searchable section.
type Document struct {
	ID          string
	URL         string
	Title       string
	Body        string
	Breadcrumbs []string
}

type Index struct {
	fields   []string
	ref      string
	pipeline *analysis.Pipeline
	store    *DocumentStore
	trees    map[string]*InvertedIndex
}

// New creates an empty index over fields analysed by pipeline.
func New(fields []string, pipeline *analysis.Pipeline) *Index {
	ix := &Index{
		fields:   slices.Clone(fields),
		ref:      DefaultRef,
		pipeline: pipeline,
		store:    NewDocumentStore(true),
		trees:    make(map[string]*InvertedIndex, len(fields)),
	}
	for _, f := range fields {
		ix.trees[f] = NewInvertedIndex()
	}
	return ix
}

// AddDoc analyses every field of doc and records it under ref. Fields missing
// from doc count as empty.
func (ix *Index) AddDoc(ref string, doc map[string]string) error {
	if ref == "" {
		return fmt.Errorf("%w: empty %s", apperrors.ErrInvalidDocument, ix.ref)
	}
	if ix.store.Has(ref) {
		return fmt.Errorf("%w: %q", apperrors.ErrDuplicateDocument, ref)
	}

	stored := make(map[string]string, len(ix.fields)+1)
	for _, f := range ix.fields {
		stored[f] = doc[f]
	}
	stored[ix.ref] = ref
	ix.store.AddDoc(ref, stored)

	for _, field := range ix.fields {
		terms := ix.pipeline.Terms(doc[field])
		ix.store.SetFieldLength(ref, field, len(terms))

		counts := make(map[string]int, len(terms))
		for _, term := range terms {
			counts[term]++
		}
		tree := ix.trees[field]
		for term, n := range counts {
			tree.AddToken(term, ref, math.Sqrt(float64(n)))
		}
	}
	return nil
}

func (ix *Index) Fields() []string {
	return slices.Clone(ix.fields)
}

func (ix *Index) Ref() string {
	return ix.ref
}

func (ix *Index) Pipeline() *analysis.Pipeline {
	return ix.pipeline
}

func (ix *Index) Store() *DocumentStore {
	return ix.store
}

// Tree returns the prefix tree of field, or nil for an unknown field.
func (ix *Index) Tree(field string) *InvertedIndex {
	return ix.trees[field]
}

func (ix *Index) DocumentCount() int {
	return ix.store.Len()
}

// IDF is 1 + ln(N / (df + 1)) for token in field.
func (ix *Index) IDF(field, token string) float64 {
	df := 0
	if tree := ix.trees[field]; tree != nil {
		df = tree.DocFreq(token)
	}
	return 1 + math.Log(float64(ix.store.Len())/float64(df+1))
}
