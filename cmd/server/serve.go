package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/energy-advisor/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server. The database is migrated to the latest
schema and the product catalog is seeded before the listener opens.

Configuration comes from the environment (see internal/config); set
CONFIG_PATH to read a YAML file first, or APP_ENV=dev to load .env.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if cfg.Auth.FallbackTempPassword == "" {
				logger.Warn("FALLBACK_TEMP_PASSWORD not set, using the built-in default")
			}
			if !cfg.Session.Secure {
				logger.Warn("SESSION_SECURE is off: cookies will be sent over plain HTTP")
			}

			srv, err := server.New(cmd.Context(), *cfg, logger)
			if err != nil {
				logger.Error("failed to create server", slog.String("error", err.Error()))
				return err
			}
			return srv.Start(cmd.Context())
		},
	}
}
