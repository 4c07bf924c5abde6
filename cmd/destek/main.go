package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muhsinzengin/yapay-zeka-destek/internal/storage"
	"github.com/muhsinzengin/yapay-zeka-destek/pkg/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "destek",
		Short: "Persistence and analytics backend for the support chatbot",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	root.AddCommand(
		newServeCommand(),
		newExportCommand(),
		newBackupCommand(),
		newRestoreCommand(),
		newCleanupCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, builds the logger and opens the store.
// Every subcommand starts here; callers own closing both.
func bootstrap() (*config.Config, *zap.Logger, storage.Storage, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %v", err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error("Failed to load config", zap.Error(err), zap.String("path", configPath))
		return nil, nil, nil, err
	}

	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage(cfg.Usage.CostPer1KTokens)
	} else {
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}, cfg.Usage.CostPer1KTokens, logger)
		if err != nil {
			logger.Error("Failed to initialize storage", zap.Error(err))
			return nil, nil, nil, err
		}
	}

	return cfg, logger, store, nil
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
