package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/todoagent/internal/database"
)

func newMigrateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		Long: `Apply every embedded migration that has not been applied yet.
Postgres and SQLite are selected from the database URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx := cmd.Context()
			db, err := database.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			pending, err := db.Pending(ctx)
			if err != nil {
				return err
			}
			if dryRun {
				for _, name := range pending {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			if err := db.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("database migrated", "dialect", db.Dialect, "applied", len(pending))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List pending migrations without applying them")
	return cmd
}
