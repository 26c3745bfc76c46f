package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

// Version is set via ldflags at build time.
var Version = "dev"

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "searchctl",
		Short: "Build and query documentation search indexes",
		Long: `searchctl turns a markdown book into the searchindex.js artifact the
browser search widget loads, and runs queries against an artifact with the
same ranking the search service uses.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			logger.SetupWriter(cmd.ErrOrStderr(), level, "text")
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (defaults apply when empty)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(
		newBuildCmd(opts),
		newQueryCmd(),
		newInspectCmd(),
		newLoadtestCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version of searchctl",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "searchctl %s\n", Version)
			},
		},
	)
	return cmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configPath)
}

func readIndex(path string) (*index.Bundle, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading index: %w", err)
	}
	bundle, err := artifact.Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return bundle, data, nil
}
