package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/danbryan/redline/internal/config"
	"github.com/danbryan/redline/internal/home"
	"github.com/danbryan/redline/internal/server"
	"github.com/danbryan/redline/internal/server/endpoints"
)

var (
	serveHost string
	servePort int
	debugLogs bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Redline server",
	Long: `Start the Redline HTTP server.

When the config marks Ollama as managed, the server also starts the Ollama
container and stops it on shutdown (via Ctrl+C or SIGTERM).

The server provides:
  - /health         - Basic server health check
  - /ready          - Readiness check (includes chat providers)
  - /api/analyses   - Contract analysis jobs
  - /api/chat       - Questions about analysed contracts
  - /reports        - Saved analysis reports

Examples:
  redline serve                  # Start on the configured port
  redline serve --port 3000      # Start on a custom port
  redline serve --host 0.0.0.0   # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		level := slog.LevelInfo
		if debugLogs {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		mgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}

		host := serveHost
		if !cmd.Flags().Changed("host") {
			host = mgr.Get().Server.Host
		}
		port := servePort
		if !cmd.Flags().Changed("port") {
			port = mgr.Get().Server.Port
		}

		srv, err := server.New(server.Config{
			Host:            host,
			Port:            port,
			Home:            h,
			ConfigManager:   mgr,
			Logger:          logger,
			SwaggerSpecPath: endpoints.GetSwaggerSpecPath(),
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().IntVar(&servePort, "port", 8690, "Port to listen on")
	serveCmd.Flags().BoolVar(&debugLogs, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
}
