package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papertrail/papertrail/internal/config"
	"github.com/papertrail/papertrail/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Papertrail server",
	Long: `Start the Papertrail HTTP server.

Configuration comes from the environment (or a .env file in development).
The server fails fast when Redis is unreachable or required variables are
missing.

Examples:
  papertrail serve                 # Bind per HOST/PORT (default 127.0.0.1:8000)
  PORT=3000 papertrail serve       # Start on a custom port`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		srv, err := server.New(server.Config{
			App:    cfg,
			Logger: logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
