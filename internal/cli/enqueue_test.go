package cli

import (
	"os"
	"path/filepath"
	"testing"

	"uploader/internal/uploader/queue"
)

func setTestQueue(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue.json")
	t.Setenv("UPLOADER_CONFIG_PATH", "")
	t.Setenv("UPLOADER_QUEUE_PATH", path)
	return path
}

func TestNextUploadID_IsUnique(t *testing.T) {
	// IDs from separate invocations within the same second must not
	// collide, otherwise a later enqueue overwrites an earlier one
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := nextUploadID()
		if _, dup := seen[id]; dup {
			t.Fatalf("Generated duplicate upload ID %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestRunEnqueue_AddsUpload(t *testing.T) {
	queuePath := setTestQueue(t)

	file := filepath.Join(t.TempDir(), "a.bin")
	if err := os.WriteFile(file, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := runEnqueue(file, "http://example.com/a", "up-1", false, nil); err != nil {
		t.Fatalf("runEnqueue failed: %v", err)
	}

	store, err := queue.Open(queuePath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, exists := store.Get("up-1"); !exists {
		t.Error("Expected up-1 to be queued")
	}
}

func TestRunEnqueue_RejectsDuplicateID(t *testing.T) {
	queuePath := setTestQueue(t)

	if err := runEnqueue("/data/a.bin", "http://example.com/a", "up-1", false, nil); err != nil {
		t.Fatalf("First enqueue failed: %v", err)
	}

	err := runEnqueue("/data/b.bin", "http://example.com/b", "up-1", false, nil)
	if err == nil {
		t.Fatal("Expected duplicate ID to be rejected")
	}

	// the first upload must be untouched
	store, openErr := queue.Open(queuePath)
	if openErr != nil {
		t.Fatalf("Open failed: %v", openErr)
	}
	u, exists := store.Get("up-1")
	if !exists {
		t.Fatal("Expected up-1 to still be queued")
	}
	if u.FilePath != "/data/a.bin" {
		t.Errorf("Expected the first enqueue to survive, got file %s", u.FilePath)
	}
}
