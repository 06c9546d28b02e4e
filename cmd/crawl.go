package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/vacancy-crawler/internal/app"
	"github.com/JakeFAU/vacancy-crawler/internal/config"
	"github.com/JakeFAU/vacancy-crawler/internal/logging"
	"github.com/JakeFAU/vacancy-crawler/internal/runid"
)

const defaultConfigPath = "config.json"

// newCrawlCmd creates the 'crawl' subcommand.
func newCrawlCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Runs one crawl",
		Long: `Loads the JSON configuration, collects up to total_articles vacancy
links from the first seed URL and parses each vacancy page. The run fails on
invalid configuration, browser startup errors, pages that no longer match the
detail template, and sink write errors. Pages that cannot be fetched are
skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd.Context(), cfgPath)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "path to the JSON config file")
	return cmd
}

func runCrawl(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	a, err := app.Build(ctx, cfg, runid.UUIDv7{}, logger)
	if err != nil {
		logger.Error("build failed", zap.Error(err))
		return err
	}
	defer func() {
		if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn("shutdown incomplete", zap.Error(cerr))
		}
	}()

	summary, err := a.Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl %s: %w", a.RunID(), err)
	}
	logger.Info("crawl command finished",
		zap.String("run_id", summary.RunID),
		zap.Int("written", summary.Written),
		zap.Duration("duration", summary.Duration),
	)
	return nil
}
