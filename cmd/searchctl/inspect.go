package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
)

func newInspectCmd() *cobra.Command {
	var (
		indexPath string
		ref       string
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Describe an index file, or one of its documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, data, err := readIndex(indexPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			ix := bundle.Index

			if ref != "" {
				doc, ok := ix.Store().Get(ref)
				if !ok {
					return fmt.Errorf("no document %q in %s", ref, indexPath)
				}
				enc := json.NewEncoder(out)
				enc.SetEscapeHTML(false)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"url": bundle.URL(ref), "doc": doc})
			}

			fmt.Fprintf(out, "file:         %s (%d bytes)\n", indexPath, len(data))
			fmt.Fprintf(out, "fingerprint:  %s\n", artifact.Fingerprint(data))
			fmt.Fprintf(out, "documents:    %d\n", ix.DocumentCount())
			fmt.Fprintf(out, "pipeline:     %v\n", ix.Pipeline().Names())
			fmt.Fprintf(out, "bool/expand:  %s / %t\n", bundle.SearchOptions.Bool, bundle.SearchOptions.Expand)
			fmt.Fprintf(out, "results:      limit %d, teaser %d words\n\n",
				bundle.ResultsOptions.LimitResults, bundle.ResultsOptions.TeaserWordCount)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tBOOST\tTOKENS")
			for _, name := range ix.Fields() {
				fmt.Fprintf(tw, "%s\t%g\t%d\n", name, boost(bundle, name), ix.Tree(name).TokenCount())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&indexPath, "index", "i", "searchindex.js", "index file to inspect")
	cmd.Flags().StringVar(&ref, "doc", "", "print the stored fields of this document ref")
	return cmd
}

func boost(b *index.Bundle, field string) float64 {
	return b.SearchOptions.Fields[field].Boost
}
