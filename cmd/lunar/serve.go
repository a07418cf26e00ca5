package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/newthinker/lunar/internal/app"
	"github.com/newthinker/lunar/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the LUNAR HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.App, cfg *config.Config, log *zap.Logger) error {
		log.Info("starting LUNAR server",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.String("llm_provider", cfg.LLM.Provider),
			zap.String("archive", cfg.Archive.Type),
		)

		// Wait for shutdown signal
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return a.Start(ctx)
	})
}
