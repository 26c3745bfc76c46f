package indexer

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// BuildOptions configures Build. The search and results options are stamped
// into the bundle as query-time defaults.
type BuildOptions struct {
	Fields              []string
	Pipeline            *analysis.Pipeline
	SearchOptions       index.SearchOptions
	ResultsOptions      index.ResultsOptions
	BreadcrumbSeparator string
}

func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Fields:              index.DefaultFields,
		Pipeline:            analysis.Default(),
		SearchOptions:       index.DefaultSearchOptions(),
		ResultsOptions:      index.DefaultResultsOptions(),
		BreadcrumbSeparator: " » ",
	}
}

// OptionsFromConfig stamps the configured query defaults onto the default
// build options. Boosts for fields the index does not have are rejected by
// Build.
func OptionsFromConfig(search config.SearchConfig, book config.BookConfig) (BuildOptions, error) {
	opts := DefaultBuildOptions()
	mode, err := index.ParseBoolMode(search.Bool)
	if err != nil {
		return opts, err
	}
	opts.SearchOptions.Bool = mode
	opts.SearchOptions.Expand = search.Expand
	if len(search.Boosts) > 0 {
		opts.SearchOptions.Fields = make(map[string]index.FieldOptions, len(search.Boosts))
		for name, boost := range search.Boosts {
			opts.SearchOptions.Fields[name] = index.FieldOptions{Boost: boost}
		}
	}
	if search.LimitResults > 0 {
		opts.ResultsOptions.LimitResults = search.LimitResults
	}
	if search.TeaserWordCount > 0 {
		opts.ResultsOptions.TeaserWordCount = search.TeaserWordCount
	}
	if book.BreadcrumbSeparator != "" {
		opts.BreadcrumbSeparator = book.BreadcrumbSeparator
	}
	return opts, opts.validate()
}

func (o BuildOptions) validate() error {
	if len(o.Fields) == 0 {
		return fmt.Errorf("no fields to index")
	}
	if o.Pipeline == nil {
		return fmt.Errorf("no analysis pipeline")
	}
	for name, f := range o.SearchOptions.Fields {
		if !slices.Contains(o.Fields, name) {
			return fmt.Errorf("search options name unknown field %q", name)
		}
		if f.Boost < 0 {
			return fmt.Errorf("field %q has negative boost", name)
		}
	}
	if o.ResultsOptions.LimitResults <= 0 || o.ResultsOptions.TeaserWordCount <= 0 {
		return fmt.Errorf("results options must be positive, got %+v", o.ResultsOptions)
	}
	return nil
}

// ValidateDocuments reports every malformed document at once. Ids must be
// positional ("0", "1", ...) because the browser widget resolves doc_urls by
// ref and a decoded store recovers insertion order from the refs.
func ValidateDocuments(docs []index.Document) error {
	var problems []error
	seen := make(map[string]int, len(docs))
	for i, d := range docs {
		if strings.TrimSpace(d.ID) == "" {
			problems = append(problems, fmt.Errorf("%w: document %d has no id", apperrors.ErrInvalidDocument, i))
			continue
		}
		if strings.TrimSpace(d.Title) == "" {
			problems = append(problems, fmt.Errorf("%w: document %q has no title", apperrors.ErrInvalidDocument, d.ID))
		}
		if first, dup := seen[d.ID]; dup {
			problems = append(problems, fmt.Errorf("%w: %q at positions %d and %d", apperrors.ErrDuplicateDocument, d.ID, first, i))
			continue
		}
		seen[d.ID] = i
		if want := strconv.Itoa(i); d.ID != want {
			problems = append(problems, fmt.Errorf("%w: document %d has id %q, want %q", apperrors.ErrInvalidDocument, i, d.ID, want))
		}
	}
	return errors.Join(problems...)
}

// Build indexes docs in order. The same documents and options always produce
// a bundle that encodes to the same bytes.
func Build(docs []index.Document, opts BuildOptions) (*index.Bundle, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid build options: %w", err)
	}
	if err := ValidateDocuments(docs); err != nil {
		return nil, fmt.Errorf("validating documents: %w", err)
	}

	ix := index.New(opts.Fields, opts.Pipeline)
	urls := make([]string, 0, len(docs))
	for _, d := range docs {
		if err := ix.AddDoc(d.ID, documentFields(d, opts.BreadcrumbSeparator)); err != nil {
			return nil, fmt.Errorf("adding document %q: %w", d.ID, err)
		}
		urls = append(urls, d.URL)
	}
	return &index.Bundle{
		DocURLs:        urls,
		Index:          ix,
		SearchOptions:  opts.SearchOptions.Clone(),
		ResultsOptions: opts.ResultsOptions,
	}, nil
}

func documentFields(d index.Document, sep string) map[string]string {
	return map[string]string{
		index.FieldTitle:       d.Title,
		index.FieldBody:        d.Body,
		index.FieldBreadcrumbs: strings.Join(d.Breadcrumbs, sep),
	}
}
