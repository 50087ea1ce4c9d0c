package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rsned/production-planner/internal/production/catalog"
	"github.com/rsned/production-planner/internal/production/db"
	"github.com/rsned/production-planner/internal/production/sync"
)

var importCmd = &cobra.Command{
	Use:   "import <catalog.json>",
	Short: "Replace the stored catalog with a JSON catalog file",
	Long: `Import items, buildings, recipes and world resources from a JSON file.

The file is validated before anything is written; an invalid catalog leaves the
stored one untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		database, err := db.OpenAndInit(ctx, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() { _ = database.Close() }()

		logger.Info("importing catalog", "file", args[0])
		if err := sync.NewSyncer(database, logger).ImportCatalogFromFile(ctx, args[0]); err != nil {
			return fmt.Errorf("importing %s: %w", args[0], err)
		}

		cat, err := catalog.Load(ctx, database)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return outputJSON(out, map[string]int{
				"items":           len(cat.ItemIDs()),
				"recipes":         len(cat.RecipeIDs()),
				"default_recipes": len(cat.DefaultRecipeIDs()),
				"world_resources": len(cat.WorldResources()),
			})
		}

		PrintSuccess(out, fmt.Sprintf("imported %s recipes (%s default) and %s items into %s",
			humanize.Comma(int64(len(cat.RecipeIDs()))),
			humanize.Comma(int64(len(cat.DefaultRecipeIDs()))),
			humanize.Comma(int64(len(cat.ItemIDs()))),
			cfg.DBPath))
		return nil
	},
}
