package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/toolhive-catalog-sync/database"
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
	db, err := databaseConfig()
	if err != nil {
		return err
	}
	logMigrationTarget(db)

	ok, err := confirmMigration(cmd, "Apply pending migrations?")
	if err != nil {
		return err
	}
	if !ok {
		slog.Info("Migration cancelled by user")
		return nil
	}

	connString, err := db.GetConnectionString()
	if err != nil {
		return fmt.Errorf("failed to get database connection string: %w", err)
	}

	slog.Info("Applying database migrations...")
	if err := database.MigrateUp(connString); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logMigrationVersion(connString)
	return nil
}

func logMigrationVersion(connString string) {
	m, err := database.GetMigrate(connString)
	if err != nil {
		slog.Warn("Unable to get migration version", "error", err)
		return
	}
	defer m.Close()

	version, dirty, err := m.Version()
	switch {
	case err != nil:
		slog.Info("No migration applied", "reason", err)
	case dirty:
		slog.Warn("Database is in a dirty state, manual intervention may be required", "version", version)
	default:
		slog.Info("Current migration version", "version", version)
	}
}
