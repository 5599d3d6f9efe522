package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/zlovtnik/stripe-lunar/database"
)

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Migrate the database down",
	Long: `Migrate the database schema down by reverting migrations.
WARNING: This operation can result in data loss. Use with caution.

Examples:
  # Migrate down by 1 step
  stripe-lunar migrate down --config config.yaml --num-steps 1 --yes

  # Migrate down all the way (WARNING: destroys all data)
  stripe-lunar migrate down --config config.yaml --yes`,
	RunE: runMigrateDown,
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	setup, err := setupMigration(cmd)
	if err != nil {
		return err
	}

	if !setup.yes {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), migrateDownPrompt(setup.steps))
		if err != nil {
			return err
		}
		if !ok {
			slog.Info("Migration cancelled")
			return fmt.Errorf("migration cancelled by user")
		}
	}

	if setup.steps == 0 {
		slog.Warn("Migrating down all steps - this will remove all schema!")
	} else {
		slog.Info("Migrating down", "steps", setup.steps)
	}

	version, err := database.MigrateDown(setup.connString, setup.steps)
	if err != nil {
		return fmt.Errorf("failed to revert migrations: %w", err)
	}

	if version == 0 {
		slog.Info("Database schema has been completely removed")
	} else {
		slog.Info("Migration completed successfully", "version", version)
	}
	return nil
}

func migrateDownPrompt(steps int) string {
	if steps == 0 {
		return "WARNING: This will migrate down ALL steps and may result in complete data loss. Continue?"
	}
	return fmt.Sprintf("WARNING: This will migrate down %d step(s) and may result in data loss. Continue?", steps)
}
