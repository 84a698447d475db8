// Package cmd defines and implements the CLI commands for the knitcrawl
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/haeun-dev/knitcrawl/internal/config"
	"github.com/haeun-dev/knitcrawl/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knitcrawl",
		Short: "Crawls Naver knitting blogs and extracts yarn/needle details",
		Long: `knitcrawl searches Naver blogs for a knitting keyword, fetches each
matching post with a headless browser, extracts the yarn, needle and
project fields from the post body, and stores the result keyed by URL.
Re-running the same keyword skips posts that are already stored.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: defaults + KNITCRAWL_* env)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newListCmd())
	return cmd
}

// setup loads configuration and builds the logger shared by all commands.
// Configuration problems abort here, before any network activity.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}

// Execute is the main entry point. An operator interrupt cancels the
// context so the pipeline stops before its next candidate.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "knitcrawl: %v\n", err)
		os.Exit(1)
	}
}
