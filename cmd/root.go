// Package cmd defines the CLI commands of the vacancy-crawler executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root command and attaches its subcommands.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vacancy-crawler",
		Short: "Collects vacancies from careerspace.app into a workbook.",
		Long: `vacancy-crawler scrolls the careerspace.app listing page in a browser,
fetches every discovered vacancy, and writes the parsed offers to an xlsx
workbook with level statistics. Rows can also go to Postgres, artifacts to
GCS, and a run summary to Pub/Sub.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(newCrawlCmd())
	return cmd
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the run.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vacancy-crawler: %v\n", err)
		os.Exit(1)
	}
}
