package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invenzis/brain/internal/app"
	"github.com/invenzis/brain/internal/config"
	"github.com/invenzis/brain/internal/log"
)

var cleanCmd = &cobra.Command{
	Use:   "clean <conversation-id>",
	Short: "Remove technical artifacts from a conversation's history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClean(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(ctx context.Context, conversationID string) error {
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

	removed, err := a.Memory.Clean(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("cleaning conversation: %w", err)
	}

	fmt.Printf("Removed %d contaminated messages from %s\n", removed, conversationID)
	return nil
}
