package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
)

func newQueryCmd() *cobra.Command {
	var (
		indexPath  string
		limit      int
		boolMode   string
		noExpand   bool
		boosts     map[string]string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "query [terms...]",
		Short: "Search an index file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, _, err := readIndex(indexPath)
			if err != nil {
				return err
			}
			req := executor.Request{
				Query:     strings.Join(args, " "),
				Limit:     limit,
				Overrides: parser.Overrides{Bool: boolMode},
			}
			if noExpand {
				expand := false
				req.Overrides.Expand = &expand
			}
			if len(boosts) > 0 {
				req.Overrides.Boosts = make(map[string]float64, len(boosts))
				for field, raw := range boosts {
					v, err := strconv.ParseFloat(raw, 64)
					if err != nil {
						return fmt.Errorf("boost for %s: %w", field, err)
					}
					req.Overrides.Boosts[field] = v
				}
			}

			rs, err := executor.Execute(bundle, req, 0)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				return enc.Encode(rs.Collect())
			}
			if rs.Len() == 0 {
				fmt.Fprintln(out, "No results found.")
				return nil
			}
			fmt.Fprintf(out, "%d of %d results for %q (terms: %s)\n\n", rs.Len(), rs.Total(), req.Query, strings.Join(rs.Terms(), ", "))
			i := 0
			for r := range rs.All() {
				i++
				fmt.Fprintf(out, "%d. %s  [%.4f]\n   %s\n   %s\n", i, r.Title, r.Score, r.Breadcrumbs, r.URL)
				if r.Teaser != "" {
					fmt.Fprintf(out, "   %s\n", r.Teaser)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&indexPath, "index", "i", "searchindex.js", "index file to search")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of results (default: the index's limit)")
	cmd.Flags().StringVar(&boolMode, "bool", "", "OR or AND (default: the index's setting)")
	cmd.Flags().BoolVar(&noExpand, "no-expand", false, "match whole terms only")
	cmd.Flags().StringToStringVar(&boosts, "boost", nil, "field boosts, e.g. title=3,body=1")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output results as JSON")
	return cmd
}
