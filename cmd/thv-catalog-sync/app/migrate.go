package app

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool",
	Long:  `Database migration tool for managing the schema of the PostgreSQL catalog store. Use with 'up' or 'down' subcommands.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Usage()
	},
}

func init() {
	migrateCmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	migrateCmd.PersistentFlags().UintP("num-steps", "n", 0, "Number of steps to migrate (0 = all)")

	// Add subcommands
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

// databaseConfig loads the configuration and returns its database section
func databaseConfig() (*config.DatabaseConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.GetStorageType() != config.StorageTypeDatabase || cfg.Storage.Database == nil {
		return nil, fmt.Errorf("migrations require storage type %q with a database section", config.StorageTypeDatabase)
	}
	return cfg.Storage.Database, nil
}

// confirmMigration asks for confirmation unless --yes is set.
// Without a terminal to ask on, the migration is refused.
func confirmMigration(cmd *cobra.Command, prompt string) (bool, error) {
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return false, fmt.Errorf("failed to get yes flag: %w", err)
	}
	if yes {
		return true, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("refusing to migrate without confirmation: stdin is not a terminal, use --yes")
	}
	return confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt)
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s (yes/no): ", prompt)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read user input: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "yes", "y":
		return true, nil
	default:
		return false, nil
	}
}

func logMigrationTarget(db *config.DatabaseConfig) {
	slog.Info("Migration target",
		"user", db.User,
		"host", db.Host,
		"port", db.Port,
		"database", db.Database)
}
