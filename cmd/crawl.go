package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/haeun-dev/knitcrawl/internal/archive"
	"github.com/haeun-dev/knitcrawl/internal/clock/system"
	"github.com/haeun-dev/knitcrawl/internal/config"
	"github.com/haeun-dev/knitcrawl/internal/content"
	"github.com/haeun-dev/knitcrawl/internal/extract"
	"github.com/haeun-dev/knitcrawl/internal/metrics"
	"github.com/haeun-dev/knitcrawl/internal/pipeline"
	"github.com/haeun-dev/knitcrawl/internal/search"
	"github.com/haeun-dev/knitcrawl/internal/storage/postgres"
)

func newCrawlCmd() *cobra.Command {
	var (
		maxResults int
		maxPages   int
	)
	cmd := &cobra.Command{
		Use:   "crawl <keyword>",
		Short: "Search for a keyword, crawl the posts and persist extractions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd.Context(), args[0], maxResults, maxPages)
		},
	}
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "maximum candidates to collect (0 = config default)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum search pages to scan (0 = config default)")
	return cmd
}

func runCrawl(ctx context.Context, keyword string, maxResults, maxPages int) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()
	if srv := metrics.Serve(cfg.Metrics.Addr, logger); srv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	store, err := postgres.NewExtractionStore(ctx, postgres.ExtractionStoreConfig{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.Table,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return fmt.Errorf("init extraction store: %w", err)
	}
	defer store.Close()

	browser, err := content.New(content.Config{
		UserAgent:         cfg.Fetch.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
		FrameMarkers:      cfg.Fetch.FrameMarkers,
	}, system.New(), logger)
	if err != nil {
		return fmt.Errorf("init browser: %w", err)
	}
	defer browser.Close()

	archiver, err := buildArchiver(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init archiver: %w", err)
	}

	collector := search.New(browser, search.Config{
		BaseURL:   cfg.Search.BaseURL,
		PageSize:  cfg.Search.PageSize,
		PageDelay: cfg.PageDelay(),
	}, logger)

	orch := pipeline.New(
		collector,
		browser,
		extract.Record,
		store,
		archiver,
		pipeline.Config{CandidateDelay: cfg.CandidateDelay()},
		logger,
	)

	query := pipeline.SearchQuery{
		Keyword:    keyword,
		MaxResults: pick(maxResults, cfg.Search.MaxResults),
		MaxPages:   pick(maxPages, cfg.Search.MaxPages),
	}

	summary, runErr := orch.Run(ctx, query)
	printSummary(summary)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("run interrupted", zap.String("run_id", summary.RunID))
		}
		return runErr
	}
	return nil
}

func buildArchiver(ctx context.Context, cfg config.Config) (pipeline.Archiver, error) {
	switch cfg.Archive.Backend {
	case "", "none":
		return nil, nil
	case "local":
		return archive.NewLocal(cfg.Archive.Dir, cfg.Archive.Prefix)
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return archive.NewGCS(client, cfg.Archive.Bucket, cfg.Archive.Prefix)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Archive.Backend)
	}
}

func pick(flag, fallback int) int {
	if flag > 0 {
		return flag
	}
	return fallback
}

func printSummary(s pipeline.RunSummary) {
	fmt.Println()
	fmt.Printf("run %s (keyword %q)\n", s.RunID, s.Keyword)
	fmt.Printf("  candidates: %d\n", s.Total)
	fmt.Printf("  persisted:  %d\n", s.Persisted)
	fmt.Printf("  skipped:    %d (already stored)\n", s.Skipped)
	fmt.Printf("  rejected:   %d (missing yarn or needle)\n", s.Rejected)
	fmt.Printf("  failed:     %d\n", s.Failed)
}
