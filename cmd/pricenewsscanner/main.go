package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"PriceNewsScanner/internal/app"
	"PriceNewsScanner/internal/config"
	"PriceNewsScanner/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "pricenewsscanner",
		Short:         "Collect, summarize and serve news about consumer price changes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if configPath != "" {
				return os.Setenv("PRICE_NEWS_CONFIG", configPath)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(serveCmd(), ingestCmd(), searchCmd(), listCmd())
	return cmd
}

// withApp loads configuration, builds the application and closes it after fn.
func withApp(ctx context.Context, fn func(*app.Application, *zap.Logger) error) error {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)
	defer func() { _ = logger.Sync() }()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", zap.Error(err))
		return err
	}
	defer application.Close()

	return fn(application, logger)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled ingestion and the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app.Application, logger *zap.Logger) error {
				if err := a.Serve(cmd.Context()); err != nil {
					logger.Error("application stopped", zap.Error(err))
					return err
				}
				logger.Info("application stopped")
				return nil
			})
		},
	}
}
