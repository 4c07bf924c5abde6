package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muhsinzengin/yapay-zeka-destek/internal/backup"
	"github.com/muhsinzengin/yapay-zeka-destek/internal/export"
)

// newExportCommand is the nightly job: write the NLU corpus, then age out
// old conversation turns. Cleanup failures are logged and left for the
// next run; the export itself must succeed.
func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export conversations to the NLU training corpus and prune old turns",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, store, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer store.Close()

			ctx := context.Background()
			exporter := export.NewExporter(store, logger)
			if err := exporter.WriteNLU(ctx, cfg.Export.NLUPath); err != nil {
				logger.Error("NLU export failed", zap.Error(err))
				return err
			}

			cutoff := time.Now().Add(-days(cfg.Retention.ConversationMaxAgeDays))
			removed, err := store.DeleteConversationsBefore(ctx, cutoff)
			if err != nil {
				logger.Warn("Failed to clean up old conversation logs", zap.Error(err))
				return nil
			}
			logger.Info("Deleted old conversation logs", zap.Int64("removed", removed))
			return nil
		},
	}
}

// newBackupCommand is the weekly job: snapshot the store, then apply the
// backup retention policy.
func newBackupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Create a database backup and prune old backup files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, store, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer store.Close()

			writer := backup.NewWriter(store, cfg.Backup.Dir, logger)
			path, err := writer.Create(context.Background())
			if err != nil {
				logger.Error("Backup failed", zap.Error(err))
				return err
			}
			logger.Info("Backup written", zap.String("path", path))

			writer.Sweep(days(cfg.Backup.RetentionDays))
			return nil
		},
	}
}

func newRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Replay a backup file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, store, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer store.Close()

			writer := backup.NewWriter(store, cfg.Backup.Dir, logger)
			return writer.Restore(context.Background(), args[0])
		},
	}
}

func newCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete conversation turns older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, store, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer store.Close()

			cutoff := time.Now().Add(-days(cfg.Retention.ConversationMaxAgeDays))
			removed, err := store.DeleteConversationsBefore(context.Background(), cutoff)
			if err != nil {
				// Scheduled maintenance retries next cycle.
				logger.Warn("Failed to clean up old conversation logs", zap.Error(err))
				return nil
			}
			logger.Info("Deleted old conversation logs", zap.Int64("removed", removed))
			return nil
		},
	}
}
