package main

import (
	"github.com/spf13/cobra"

	"github.com/papertrail/papertrail/internal/api"
	"github.com/papertrail/papertrail/version"
)

var outputFormat string

var rootCmd = &cobra.Command{
	Use:   "papertrail",
	Short: "Fact-checking pipeline for academic paper drafts",
	Long: `Papertrail extracts factual claims from uploaded paper drafts and
verifies them against cited source PDFs.

The pipeline includes:
  - Per-page claim extraction with an LLM
  - Resumable NDJSON claim streaming with progress events
  - Embedding-based evidence retrieval from source PDFs
  - LLM adjudication with persisted verdicts
  - Citation suggestions for unsupported claims`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
