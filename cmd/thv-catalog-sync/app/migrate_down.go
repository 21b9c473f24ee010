package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/toolhive-catalog-sync/database"
)

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert database migrations",
	Long: `Revert database migrations. By default every migration is reverted, which removes
the catalog schema and all of its data. Use --num-steps to revert only the latest ones.`,
	RunE: runMigrateDown,
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	numSteps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}

	db, err := databaseConfig()
	if err != nil {
		return err
	}
	logMigrationTarget(db)

	ok, err := confirmMigration(cmd, migrateDownPrompt(numSteps))
	if err != nil {
		return err
	}
	if !ok {
		slog.Info("Migration cancelled by user")
		return fmt.Errorf("migration cancelled by user")
	}

	connString, err := db.GetConnectionString()
	if err != nil {
		return fmt.Errorf("failed to get database connection string: %w", err)
	}

	if numSteps == 0 {
		slog.Warn("Migrating down all steps - this will remove all schema!")
	} else {
		slog.Info("Migrating down", "steps", numSteps)
	}
	if err := database.MigrateDown(connString, numSteps); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logMigrationVersion(connString)
	return nil
}

func migrateDownPrompt(numSteps uint) string {
	if numSteps == 0 {
		return "WARNING: This will migrate down ALL steps and may result in complete data loss. Continue?"
	}
	return fmt.Sprintf("WARNING: This will migrate down %d step(s) and may result in data loss. Continue?", numSteps)
}
