package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invenzis/brain/internal/app"
	"github.com/invenzis/brain/internal/config"
	"github.com/invenzis/brain/internal/log"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Rebuild the embedded knowledge chunks from the source tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runIngest(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := log.New(log.Config{})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	stats, err := a.Ingester.Run(ctx)
	if err != nil {
		return fmt.Errorf("running ingest: %w", err)
	}

	fmt.Printf("Ingested %d chunks from %d tables (%d stale chunks removed)\n",
		stats.Chunks, stats.Tables, stats.Deleted)
	return nil
}
