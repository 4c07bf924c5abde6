package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muhsinzengin/yapay-zeka-destek/internal/auth"
	"github.com/muhsinzengin/yapay-zeka-destek/internal/export"
	"github.com/muhsinzengin/yapay-zeka-destek/internal/notifier"
	"github.com/muhsinzengin/yapay-zeka-destek/internal/server"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin panel and action-runtime HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, store, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer store.Close()

			tg, err := notifier.NewTelegram(cfg.Telegram.Token, cfg.Telegram.AdminChatID, logger)
			if err != nil {
				logger.Error("Failed to create telegram notifier", zap.Error(err))
				return err
			}

			codes := auth.NewCodeService(store,
				time.Duration(cfg.Auth.CodeTTLMinutes)*time.Minute, logger)
			exporter := export.NewExporter(store, logger)

			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Expired codes are inert either way; the sweep just keeps the
			// table small.
			go codes.RunSweep(ctx,
				time.Duration(cfg.Auth.SweepIntervalMinutes)*time.Minute)

			srv := server.New(store, codes, exporter, tg,
				cfg.Auth.CodeTTLMinutes, cfg.Export.NLUPath, logger)
			return srv.Run(ctx, cfg.Server.Addr)
		},
	}
}
