package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/docsmith/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running docsmith server via HTTP.

These commands require a running server (docsmith serve).
Use --server to specify a custom server URL.

Examples:
  docsmith api health                          # Check server health
  docsmith api docs generate <repo> <title>    # Start a generation job
  docsmith api docs status <job_id>            # Check job progress`,
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Documentation job commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8001", "Server URL",
	)

	// Health and metrics at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.MetricsEndpoint{}).Command(getServerURL))

	// Docs jobs as subcommand group
	docsCmd.AddCommand((&endpoints.GenerateEndpoint{}).Command(getServerURL))
	docsCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))
	docsCmd.AddCommand((&endpoints.DetailEndpoint{}).Command(getServerURL))
	docsCmd.AddCommand((&endpoints.ResetEndpoint{}).Command(getServerURL))
	docsCmd.AddCommand((&endpoints.CancelEndpoint{}).Command(getServerURL))
	docsCmd.AddCommand((&endpoints.DeleteEndpoint{}).Command(getServerURL))
	docsCmd.AddCommand((&endpoints.CompletedEndpoint{}).Command(getServerURL))
	docsCmd.AddCommand((&endpoints.FileEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(apiCmd)
}
