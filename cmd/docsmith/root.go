package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/docsmith/internal/api"
	"github.com/jackzampolin/docsmith/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "docsmith",
	Short: "Documentation generation pipeline for GitHub repositories",
	Long: `Docsmith generates technical documentation for GitHub repositories by
running a staged LLM pipeline over the repository's file tree and README.

The pipeline includes:
  - Repository code analysis
  - Chapter-level documentation planning
  - Per-chapter content generation
  - Content optimization and quality review
  - Markdown compilation with graceful degradation`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.docsmith/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "docsmith home directory (default: ~/.docsmith)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}
