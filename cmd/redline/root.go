package main

import (
	"github.com/spf13/cobra"

	"github.com/danbryan/redline/internal/api"
	"github.com/danbryan/redline/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "redline",
	Short: "Contract analysis pipeline with LLM-powered risk review",
	Long: `Redline analyses commercial contracts with a staged LLM pipeline and
flags potentially exploitative terms.

The pipeline includes:
  - Purpose and commercial term extraction
  - Legal risk identification with severity and fairness scoring
  - Mitigation and negotiation suggestions
  - A plain-language summary for non-lawyers
  - An alert verdict with optional email notification`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.redline/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "redline home directory (default: ~/.redline)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
