package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"idealista-pricing/config"
	"idealista-pricing/utils"
)

var (
	cfg    *config.Config
	logger *utils.Logger

	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "idealista",
		Short: "Fetch, scrape and prepare Idealista listings for price modelling",
		Long: `idealista collects residential listings from the Idealista search API
or from rendered listing pages, merges them into one dataset, fills the
missing floor and lift values from nearby listings and writes model-ready
features to CSV or PostgreSQL.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json); overrides LOG_FORMAT")

	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(prepareCmd())
	rootCmd.AddCommand(distanceCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	cfg = config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	logger = utils.NewLoggerWith(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
