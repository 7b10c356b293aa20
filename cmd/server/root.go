package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/energy-advisor/internal/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "energy-advisor",
		Short:        "Home energy quotes and consultation bookings",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

// setup loads configuration and builds the process logger from it.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	return cfg, logger, nil
}
