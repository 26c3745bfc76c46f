package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/book"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
)

func newBuildCmd(root *rootOptions) *cobra.Command {
	var (
		src     string
		out     string
		format  string
		publish bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the search index of a book",
		Long: `Reads SUMMARY.md (or every markdown file when there is none) under the
source directory, splits chapters into sections and writes the index.
With --publish the index goes to the configured artifact store instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if src == "" {
				src = cfg.Book.SourceDir
			}
			if format == "" {
				format = cfg.Indexer.Format
			}
			f, err := artifact.ParseFormat(format)
			if err != nil {
				return err
			}
			buildOpts, err := indexer.OptionsFromConfig(cfg.Search, cfg.Book)
			if err != nil {
				return err
			}
			loader := book.NewLoader(src, book.OptionsFromConfig(cfg.Book))

			if publish {
				store, err := artifact.New(cmd.Context(), cfg.Store)
				if err != nil {
					return err
				}
				engine := indexer.NewEngine(cfg.Book.Name, loader, store,
					indexer.WithBuildOptions(buildOpts),
					indexer.WithFormat(f),
					indexer.WithArtifactName(cfg.Indexer.ArtifactKey),
					indexer.WithForce(true),
				)
				report, err := engine.Run(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "published %s: %d documents, fingerprint %s\n",
					report.Build.ArtifactKey, report.Build.DocCount, report.Build.Fingerprint)
				return nil
			}

			docs, err := loader.Load(cmd.Context())
			if err != nil {
				return err
			}
			bundle, err := indexer.Build(docs, buildOpts)
			if err != nil {
				return err
			}
			data, err := artifact.Encode(bundle, f)
			if err != nil {
				return err
			}
			if out == "" {
				out = strings.TrimSuffix(cfg.Indexer.ArtifactKey, filepath.Ext(cfg.Indexer.ArtifactKey)) + f.Ext()
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("creating %s: %w", dir, err)
				}
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("writing index: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d documents, %d bytes, fingerprint %s\n",
				out, bundle.Index.DocumentCount(), len(data), artifact.Fingerprint(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&src, "src", "", "book source directory (default book.sourceDir)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default indexer.artifactKey)")
	cmd.Flags().StringVar(&format, "format", "", "js or json (default indexer.format)")
	cmd.Flags().BoolVar(&publish, "publish", false, "store the index in the configured artifact store")
	return cmd
}
