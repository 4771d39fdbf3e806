package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"uploader/internal/uploader/domain"
	"uploader/internal/uploader/queue"
	"uploader/pkg/config"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued uploads",
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := queue.Open(cfg.Queue.Path)
	if err != nil {
		return fmt.Errorf("failed to open upload queue: %w", err)
	}

	uploads := store.List()
	if len(uploads) == 0 {
		fmt.Println("No uploads queued")
		return nil
	}

	formatUploadList(uploads)
	return nil
}

func formatUploadList(uploads []*domain.Upload) {
	maxIDWidth := len("ID")
	maxURLWidth := len("URL")

	// find the maximum width needed for each column
	for _, upload := range uploads {
		if len(upload.ID) > maxIDWidth {
			maxIDWidth = len(upload.ID)
		}
		if len(upload.UploadURL) > maxURLWidth {
			maxURLWidth = len(upload.UploadURL)
		}
	}

	// add some padding
	maxIDWidth += 2
	maxURLWidth += 2

	fmt.Printf("%-*s %-*s %-6s %s\n",
		maxIDWidth, "ID",
		maxURLWidth, "URL",
		"DELETE",
		"FILE")

	fmt.Printf("%s %s %s %s\n",
		strings.Repeat("-", maxIDWidth),
		strings.Repeat("-", maxURLWidth),
		strings.Repeat("-", 6),
		strings.Repeat("-", 4))

	for _, upload := range uploads {
		fmt.Printf("%-*s %-*s %-6v %s\n",
			maxIDWidth, upload.ID,
			maxURLWidth, upload.UploadURL,
			upload.DeleteOnUpload,
			upload.FilePath)
	}
}
