package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mrovchinnikov95/ai-idea-lab-bot/internal/logutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newPruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete lead records older than the retention window and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			retentionDays := viper.GetInt("retention.days")
			if cmd.Flags().Changed("retention-days") {
				retentionDays, _ = cmd.Flags().GetInt("retention-days")
			}
			if retentionDays <= 0 {
				return fmt.Errorf("retention.days must be positive (got %d)", retentionDays)
			}

			store, closer, err := leadStoreFromViper(logger)
			if err != nil {
				return err
			}
			if closer != nil {
				defer func() { _ = closer.Close() }()
			}
			if err := store.EnsureSchema(); err != nil {
				return fmt.Errorf("prepare lead store: %w", err)
			}

			removed, err := store.PruneOlderThan(time.Duration(retentionDays)*24*time.Hour, time.Now())
			if err != nil {
				return err
			}
			logger.Info("prune_done", "removed", removed, "retention_days", retentionDays)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %d record(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().Int("retention-days", 0, "Override retention.days for this run.")
	return cmd
}
