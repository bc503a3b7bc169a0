package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/todoagent/internal/chat"
	"github.com/teemow/todoagent/internal/database"
	"github.com/teemow/todoagent/internal/tasks"
)

func newPurgeCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove soft-deleted tasks and chat messages",
		Long: `Delete rows that were soft-deleted more than --days days ago.
Soft-deleted rows are already invisible to every API and tool; this command
only reclaims storage.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return fmt.Errorf("--days must not be negative (got %d)", days)
			}
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

			cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)

			removedTasks, err := tasks.NewStore(db, tasks.WithLogger(logger)).PurgeDeleted(ctx, cutoff)
			if err != nil {
				return err
			}
			removedMessages, err := chat.NewStore(db).Purge(ctx, cutoff)
			if err != nil {
				return err
			}

			logger.Info("purged soft-deleted rows",
				"cutoff", cutoff.UTC().Format(time.RFC3339),
				"tasks", removedTasks,
				"messages", removedMessages)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "Only purge rows deleted more than this many days ago")
	return cmd
}
