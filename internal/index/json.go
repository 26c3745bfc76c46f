package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analysis"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Bundle is everything the browser widget loads: the index plus the URL of
// each document and the default query and result options.
type Bundle struct {
	DocURLs        []string       `json:"doc_urls"`
	Index          *Index         `json:"index"`
	ResultsOptions ResultsOptions `json:"results_options"`
	SearchOptions  SearchOptions  `json:"search_options"`
}

// URL returns the page URL of ref, resolved by insertion position. Refs past
// the end of doc_urls have no URL.
func (b *Bundle) URL(ref string) string {
	pos := b.Index.store.Position(ref)
	if pos < 0 || pos >= len(b.DocURLs) {
		return ""
	}
	return b.DocURLs[pos]
}

// Encode writes b as compact JSON without HTML escaping.
func (b *Bundle) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("encoding bundle: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Validate checks the cross-references a decoded bundle must satisfy.
func (b *Bundle) Validate() error {
	if b.Index == nil {
		return fmt.Errorf("%w: missing index", apperrors.ErrMalformedIndex)
	}
	count := b.Index.DocumentCount()
	if n := len(b.DocURLs); n > count {
		return fmt.Errorf("%w: %d doc_urls for %d documents", apperrors.ErrMalformedIndex, n, count)
	}
	for i := range count {
		if ref := strconv.Itoa(i); !b.Index.store.Has(ref) {
			return fmt.Errorf("%w: refs must be 0..%d, missing %q", apperrors.ErrMalformedIndex, count-1, ref)
		}
	}
	for name := range b.SearchOptions.Fields {
		if b.Index.Tree(name) == nil {
			return fmt.Errorf("%w: search option for unknown field %q", apperrors.ErrMalformedIndex, name)
		}
	}
	return nil
}

type treeJSON struct {
	Root *Node `json:"root"`
}

type documentStoreJSON struct {
	DocInfo map[string]map[string]int    `json:"docInfo"`
	Docs    map[string]map[string]string `json:"docs"`
	Length  int                          `json:"length"`
	Save    bool                         `json:"save"`
}

type indexJSON struct {
	DocumentStore documentStoreJSON   `json:"documentStore"`
	Fields        []string            `json:"fields"`
	Index         map[string]treeJSON `json:"index"`
	Lang          string              `json:"lang"`
	Pipeline      []string            `json:"pipeline"`
	Ref           string              `json:"ref"`
	Version       string              `json:"version"`
}

func (ix *Index) MarshalJSON() ([]byte, error) {
	out := indexJSON{
		DocumentStore: documentStoreJSON{
			DocInfo: ix.store.docInfo,
			Docs:    ix.store.docs,
			Length:  ix.store.Len(),
			Save:    ix.store.save,
		},
		Fields:   ix.fields,
		Index:    make(map[string]treeJSON, len(ix.trees)),
		Lang:     Lang,
		Pipeline: ix.pipeline.Names(),
		Ref:      ix.ref,
		Version:  Version,
	}
	for name, tree := range ix.trees {
		out.Index[name] = treeJSON{Root: tree.root}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (ix *Index) UnmarshalJSON(data []byte) error {
	var in indexJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrMalformedIndex, err)
	}
	if len(in.Fields) == 0 {
		return fmt.Errorf("%w: no fields", apperrors.ErrMalformedIndex)
	}
	if in.Ref == "" {
		return fmt.Errorf("%w: no ref field", apperrors.ErrMalformedIndex)
	}
	pipeline, err := analysis.New(in.Pipeline...)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrMalformedIndex, err)
	}

	trees := make(map[string]*InvertedIndex, len(in.Fields))
	for _, field := range in.Fields {
		t, ok := in.Index[field]
		if !ok || t.Root == nil {
			return fmt.Errorf("%w: no tree for field %q", apperrors.ErrMalformedIndex, field)
		}
		trees[field] = &InvertedIndex{root: t.Root}
	}

	ds := in.DocumentStore
	if ds.Docs == nil {
		ds.Docs = make(map[string]map[string]string)
	}
	if ds.DocInfo == nil {
		ds.DocInfo = make(map[string]map[string]int)
	}
	if ds.Length != len(ds.Docs) {
		return fmt.Errorf("%w: length %d but %d docs", apperrors.ErrMalformedIndex, ds.Length, len(ds.Docs))
	}
	if !slices.Equal(sortedKeys(ds.Docs), sortedKeys(ds.DocInfo)) {
		return fmt.Errorf("%w: docs and docInfo cover different refs", apperrors.ErrMalformedIndex)
	}
	for field, tree := range trees {
		var bad error
		tree.Walk(func(token string, n *Node) bool {
			for ref := range n.Docs {
				if _, ok := ds.Docs[ref]; !ok {
					bad = fmt.Errorf("%w: field %q token %q references unknown doc %q", apperrors.ErrMalformedIndex, field, token, ref)
					return false
				}
			}
			return true
		})
		if bad != nil {
			return bad
		}
	}

	*ix = Index{
		fields:   in.Fields,
		ref:      in.Ref,
		pipeline: pipeline,
		store: &DocumentStore{
			save:    ds.Save,
			docs:    ds.Docs,
			docInfo: ds.DocInfo,
		},
		trees: trees,
	}
	ix.store.restoreOrder()
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
