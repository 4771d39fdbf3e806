package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"uploader/internal/uploader/domain"
	"uploader/internal/uploader/queue"
	"uploader/pkg/config"
)

func newEnqueueCmd() *cobra.Command {
	var (
		id             string
		deleteOnUpload bool
		extras         []string
	)

	cmd := &cobra.Command{
		Use:   "enqueue <file> <url>",
		Short: "Add a file to the upload queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnqueue(args[0], args[1], id, deleteOnUpload, extras)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "upload ID (generated when empty)")
	cmd.Flags().BoolVar(&deleteOnUpload, "delete-on-upload", false, "delete the file after a successful upload")
	cmd.Flags().StringArrayVar(&extras, "extra", nil, "extra key=value attached to status events (repeatable)")

	return cmd
}

func runEnqueue(filePath, uploadURL, id string, deleteOnUpload bool, extras []string) error {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if id == "" {
		id = nextUploadID()
	}

	upload := &domain.Upload{
		ID:             id,
		FilePath:       filePath,
		UploadURL:      uploadURL,
		DeleteOnUpload: deleteOnUpload,
	}

	for _, extra := range extras {
		key, value, found := strings.Cut(extra, "=")
		if !found {
			return fmt.Errorf("invalid extra %q, expected key=value", extra)
		}
		if upload.Extras == nil {
			upload.Extras = make(map[string]string)
		}
		upload.Extras[key] = value
	}

	if err := upload.Validate(); err != nil {
		return err
	}

	store, err := queue.Open(cfg.Queue.Path)
	if err != nil {
		return fmt.Errorf("failed to open upload queue: %w", err)
	}

	// replacing a queued upload under the same ID would lose it silently
	if _, exists := store.Get(upload.ID); exists {
		return fmt.Errorf("upload ID %s is already queued", upload.ID)
	}

	store.Add(upload)
	if err := store.Commit(); err != nil {
		return fmt.Errorf("failed to commit upload queue: %w", err)
	}

	fmt.Println(upload.ID)
	return nil
}

// nextUploadID returns a timestamped ID with a random suffix so that
// concurrent enqueue invocations cannot collide.
func nextUploadID() string {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("up-%s-%s", time.Now().Format("20060102-150405"), hex.EncodeToString(suffix))
}
