package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sakif/energy-advisor/internal/config"
	sqliteRepo "github.com/sakif/energy-advisor/internal/repository/sqlite"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all up migrations",
		RunE: withDB(func(cmd *cobra.Command, db *sqliteRepo.DB) error {
			if err := db.MigrateUp(); err != nil {
				return fmt.Errorf("migrate up failed: %w", err)
			}
			return printVersion(cmd, db)
		}),
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: withDB(func(cmd *cobra.Command, db *sqliteRepo.DB) error {
			if err := db.MigrateDown(steps); err != nil {
				return fmt.Errorf("migrate down failed: %w", err)
			}
			return printVersion(cmd, db)
		}),
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE:  withDB(printVersion),
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

// withDB opens the configured database without migrating it. Only DB_PATH
// is needed, so the rest of the configuration is not validated.
func withDB(fn func(cmd *cobra.Command, db *sqliteRepo.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Read()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}

		db, err := sqliteRepo.Open(cfg.DB.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		return fn(cmd, db)
	}
}

func printVersion(cmd *cobra.Command, db *sqliteRepo.DB) error {
	v, dirty, err := db.Version()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if dirty {
		fmt.Fprintf(out, "schema version %d (dirty)\n", v)
		return nil
	}
	fmt.Fprintf(out, "schema version %d\n", v)
	return nil
}
