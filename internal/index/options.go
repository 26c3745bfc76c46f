package index

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// BoolMode combines per-term matches within a field.
type BoolMode string

const (
	BoolOr  BoolMode = "OR"
	BoolAnd BoolMode = "AND"
)

// ParseBoolMode accepts OR/AND in any case; empty means OR.
func ParseBoolMode(s string) (BoolMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "OR":
		return BoolOr, nil
	case "AND":
		return BoolAnd, nil
	}
	return "", fmt.Errorf("%w: bool must be OR or AND, got %q", apperrors.ErrInvalidQuery, s)
}

// FieldOptions tunes one field at query time. Bool and Expand override the
// global settings when set.
type FieldOptions struct {
	Boost  float64  `json:"boost"`
	Bool   BoolMode `json:"bool,omitempty"`
	Expand *bool    `json:"expand,omitempty"`
}

// SearchOptions are the query defaults stored with an index.
type SearchOptions struct {
	Bool   BoolMode                `json:"bool"`
	Expand bool                    `json:"expand"`
	Fields map[string]FieldOptions `json:"fields"`
}

// ResultsOptions control how many results the widget shows and how long a
// teaser is.
type ResultsOptions struct {
	LimitResults    int `json:"limit_results"`
	TeaserWordCount int `json:"teaser_word_count"`
}

const (
	FieldTitle       = "title"
	FieldBody        = "body"
	FieldBreadcrumbs = "breadcrumbs"

	DefaultRef = "id"
)

// DefaultFields is the field order of every book index.
var DefaultFields = []string{FieldTitle, FieldBody, FieldBreadcrumbs}

func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Bool:   BoolOr,
		Expand: true,
		Fields: map[string]FieldOptions{
			FieldTitle:       {Boost: 2},
			FieldBody:        {Boost: 1},
			FieldBreadcrumbs: {Boost: 1},
		},
	}
}

func DefaultResultsOptions() ResultsOptions {
	return ResultsOptions{LimitResults: 30, TeaserWordCount: 30}
}

// Clone returns a deep copy so callers can override fields safely.
func (o SearchOptions) Clone() SearchOptions {
	out := o
	out.Fields = make(map[string]FieldOptions, len(o.Fields))
	for name, f := range o.Fields {
		if f.Expand != nil {
			v := *f.Expand
			f.Expand = &v
		}
		out.Fields[name] = f
	}
	return out
}
