package cleanup

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"uploader/pkg/logger"
)

// Worker deletes uploaded files on a single background goroutine so disk
// I/O never delays the upload path. Deletion is best effort: failures are
// logged and not reported upward.
type Worker struct {
	tasks chan string
	done  chan struct{}

	mu      sync.Mutex
	stopped bool

	stopOnce sync.Once

	logger *logger.Logger
}

// NewWorker starts a cleanup worker with a bounded task queue.
func NewWorker(queueSize int) *Worker {
	w := &Worker{
		tasks:  make(chan string, queueSize),
		done:   make(chan struct{}),
		logger: logger.WithField("component", "cleanup"),
	}

	go w.run()

	return w
}

// Post queues the file at path for deletion. Non-blocking: returns false
// when the worker is stopped or the queue is full.
func (w *Worker) Post(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		w.logger.Warn("cleanup worker stopped, dropping task", "path", path)
		return false
	}

	select {
	case w.tasks <- path:
		return true
	default:
		w.logger.Warn("cleanup queue full, dropping task", "path", path)
		return false
	}
}

// Stop closes the intake and waits up to wait for already-queued deletions
// to finish. Queued work still pending after the deadline is abandoned.
// Safe to call more than once.
func (w *Worker) Stop(wait time.Duration) {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		close(w.tasks)
		w.mu.Unlock()

		select {
		case <-w.done:
			w.logger.Debug("cleanup worker drained")
		case <-time.After(wait):
			w.logger.Warn("cleanup worker stop timed out, abandoning queued tasks", "wait", wait)
		}
	})
}

func (w *Worker) run() {
	for path := range w.tasks {
		w.deleteFile(path)
	}
	close(w.done)
}

// deleteFile removes the file and, when its parent directory became empty,
// the parent directory too.
func (w *Worker) deleteFile(path string) {
	if err := os.Remove(path); err != nil {
		w.logger.Warn("failed to delete file", "path", path, "error", err)
		return
	}

	w.logger.Debug("file deleted", "path", path)

	parent := filepath.Dir(path)
	entries, err := os.ReadDir(parent)
	if err != nil || len(entries) > 0 {
		return
	}

	if err := os.Remove(parent); err != nil {
		w.logger.Warn("failed to delete empty directory", "path", parent, "error", err)
		return
	}

	w.logger.Debug("empty directory deleted", "path", parent)
}
