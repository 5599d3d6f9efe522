package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/zlovtnik/stripe-lunar/database"
)

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending database migrations",
	Long: `Apply all pending database migrations to bring the schema up to date.
This command will read the database connection parameters from the config file
and apply all migrations that haven't been run yet.`,
	RunE: runMigrateUp,
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	setup, err := setupMigration(cmd)
	if err != nil {
		return err
	}

	// Prompt user if not using --yes flag
	if !setup.yes {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
			fmt.Sprintf("About to apply migrations to %s. Continue?", setup.describeTarget()))
		if err != nil {
			return err
		}
		if !ok {
			slog.Info("Migration cancelled by user")
			return nil
		}
	}

	slog.Info("Applying database migrations", "target", setup.describeTarget(), "steps", setup.steps)
	version, err := database.MigrateUp(setup.connString, setup.steps)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Migrations applied successfully", "version", version)
	return nil
}
