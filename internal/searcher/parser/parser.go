// Package parser turns a raw query string into the per-field plan the ranker
// evaluates, using the analysis pipeline the index was built with.
package parser

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// FieldPlan is how one field takes part in a query.
type FieldPlan struct {
	Name   string         `json:"name"`
	Boost  float64        `json:"boost"`
	Bool   index.BoolMode `json:"bool"`
	Expand bool           `json:"expand"`
}

// QueryPlan holds the normalized terms of a query and the fields to search.
type QueryPlan struct {
	Raw    string      `json:"raw"`
	Words  []string    `json:"words"`
	Terms  []string    `json:"terms"`
	Fields []FieldPlan `json:"fields"`
}

// Overrides are request-level changes to the options stored with an index.
// Zero values keep the stored setting.
type Overrides struct {
	Bool   string
	Expand *bool
	Boosts map[string]float64
}

// Apply returns a copy of opts with o applied. A boost override for a field
// the options do not list adds that field.
func (o Overrides) Apply(opts index.SearchOptions) (index.SearchOptions, error) {
	out := opts.Clone()
	if o.Bool != "" {
		mode, err := index.ParseBoolMode(o.Bool)
		if err != nil {
			return out, err
		}
		out.Bool = mode
	}
	if o.Expand != nil {
		out.Expand = *o.Expand
	}
	for name, boost := range o.Boosts {
		if boost < 0 {
			return out, fmt.Errorf("%w: negative boost for field %q", apperrors.ErrInvalidQuery, name)
		}
		f := out.Fields[name]
		f.Boost = boost
		out.Fields[name] = f
	}
	return out, nil
}

// Parse normalizes raw through pipeline and resolves, for each field of the
// index in order, the boost, bool mode and expansion to use. Fields absent
// from opts or boosted to zero are left out. Repeated terms are searched
// once.
func Parse(raw string, ix *index.Index, opts index.SearchOptions) *QueryPlan {
	plan := &QueryPlan{
		Raw:    raw,
		Words:  strings.Fields(raw),
		Terms:  dedupe(ix.Pipeline().Terms(raw)),
		Fields: make([]FieldPlan, 0, len(opts.Fields)),
	}
	for _, name := range ix.Fields() {
		f, ok := opts.Fields[name]
		if !ok || f.Boost == 0 {
			continue
		}
		fp := FieldPlan{Name: name, Boost: f.Boost, Bool: opts.Bool, Expand: opts.Expand}
		if f.Bool != "" {
			fp.Bool = f.Bool
		}
		if f.Expand != nil {
			fp.Expand = *f.Expand
		}
		if fp.Bool == "" {
			fp.Bool = index.BoolOr
		}
		plan.Fields = append(plan.Fields, fp)
	}
	return plan
}

// Empty reports whether nothing can match: every word was a stop word or
// no field is searchable.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0 || len(p.Fields) == 0
}

func dedupe(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
