package main

import (
	"github.com/spf13/cobra"

	"github.com/danbryan/redline/internal/api"
	"github.com/danbryan/redline/internal/server/endpoints"
)

var serverURL string

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "Contract analysis job commands",
}

func init() {
	// Build the api command tree from the endpoint registry so every HTTP
	// route has a matching CLI command.
	registry := api.NewRegistry()
	registry.Register(&endpoints.HealthEndpoint{})
	registry.Register(&endpoints.ReadyEndpoint{})
	registry.Register(&endpoints.StatusEndpoint{})
	registry.Register(&endpoints.ChatEndpoint{})
	registry.Register(&endpoints.ReportFileEndpoint{})
	registry.Register(&endpoints.SwaggerEndpoint{})
	registry.Register(&endpoints.SwaggerUIEndpoint{})
	apiCmd := registry.BuildCommands(getServerURL)

	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8690", "Server URL",
	)

	// Analyses as subcommand group
	for _, ep := range endpoints.AnalysisCommands() {
		analysesCmd.AddCommand(ep.Command(getServerURL))
	}
	apiCmd.AddCommand(analysesCmd)

	rootCmd.AddCommand(apiCmd)
}
