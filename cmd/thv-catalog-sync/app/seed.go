package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/toolhive-catalog-sync/internal/app/storage"
	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed FILE",
	Short: "Register metadata types and templates in the catalog store",
	Long: `Register the metadata types and templates listed in a YAML seed file.
Connectors wait until the types they require exist, so a fresh catalog store
usually needs seeding before its connectors make progress. Existing types are
left untouched and templates are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	seed, err := config.LoadSeed(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	factory, err := storage.NewStorageFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create storage factory: %w", err)
	}
	defer factory.Cleanup()

	st, err := factory.CreateStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to create metadata store: %w", err)
	}

	if err := applySeed(ctx, st, seed); err != nil {
		return err
	}

	slog.Info("Catalog store seeded",
		"storage", cfg.GetStorageType(),
		"types", len(seed.Types),
		"templates", len(seed.Templates))
	return nil
}

// applySeed registers the seed types, then its templates
func applySeed(ctx context.Context, st store.Store, seed *config.SeedConfig) error {
	if len(seed.Types) > 0 {
		if err := st.RegisterTypes(ctx, seed.Types); err != nil {
			return fmt.Errorf("failed to register metadata types: %w", err)
		}
	}

	for _, tmpl := range seed.Templates {
		if err := st.PutTemplate(ctx, &catalog.Template{
			QualifiedName: tmpl.QualifiedName,
			Attributes:    tmpl.Attributes,
		}); err != nil {
			return fmt.Errorf("failed to register template %s: %w", tmpl.QualifiedName, err)
		}
	}
	return nil
}
