// Package cli implements the lectern command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/lectern-labs/lectern-cli/internal/logger"
)

var (
	version    = "dev"
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "Automated research digest generation",
	Long: `Lectern selects the most relevant articles from a candidate pool,
summarises them with an LLM and delivers a ranked digest.

Selection runs as a two-stage funnel: cheap embedding similarity against
your stated interests first, then LLM rating of the survivors. Scores are
cached so each article is only ever scored once per configuration.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.lectern/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command with the build version.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	return rootCmd.Execute()
}
