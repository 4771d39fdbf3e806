package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"uploader/internal/uploader/queue"
	"uploader/pkg/config"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove uploads from the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRemove,
	}
}

func runRemove(cmd *cobra.Command, args []string) error {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := queue.Open(cfg.Queue.Path)
	if err != nil {
		return fmt.Errorf("failed to open upload queue: %w", err)
	}

	for _, id := range args {
		if _, exists := store.Get(id); !exists {
			return fmt.Errorf("%w: %s", queue.ErrNotFound, id)
		}
		store.Remove(id)
	}

	if err := store.Commit(); err != nil {
		return fmt.Errorf("failed to commit upload queue: %w", err)
	}

	for _, id := range args {
		fmt.Println(id)
	}
	return nil
}
