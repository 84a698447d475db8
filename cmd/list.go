package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haeun-dev/knitcrawl/internal/storage/postgres"
)

func newListCmd() *cobra.Command {
	var (
		keyword string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print stored extractions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.Context(), keyword, limit)
		},
	}
	cmd.Flags().StringVar(&keyword, "keyword", "", "only rows produced by this keyword")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to print")
	return cmd
}

func runList(ctx context.Context, keyword string, limit int) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

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

	rows, err := store.ListByKeyword(ctx, keyword, limit)
	if err != nil {
		return fmt.Errorf("list extractions: %w", err)
	}
	if len(rows) == 0 {
		fmt.Println("no extractions stored")
		return nil
	}

	for _, row := range rows {
		fmt.Printf("[%d] %s\n", row.ID, row.URL)
		fmt.Printf("    keyword: %s\n", row.Keyword)
		fmt.Printf("    yarn:    %s\n", row.Yarn)
		fmt.Printf("    needle:  %s\n", row.Needle)
		fmt.Printf("    stored:  %s\n", row.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("%d row(s)\n", len(rows))
	return nil
}
