package core

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"uploader/internal/uploader/domain"
	"uploader/internal/uploader/events"
	"uploader/internal/uploader/queue"
	"uploader/internal/uploader/transport"
	"uploader/pkg/logger"
)

// JobHandle identifies one invocation of the upload job.
type JobHandle struct {
	ID        string
	StartedAt time.Time
}

// Host is the external scheduler's side of the job contract. JobFinished
// is not idempotent at the boundary: the orchestrator calls it exactly
// once per invocation, after every dispatched upload has reported.
type Host interface {
	JobFinished(handle *JobHandle, needsReschedule bool)
}

// Cleaner receives best-effort file deletion tasks.
type Cleaner interface {
	Post(path string) bool
	Stop(wait time.Duration)
}

// batchState tracks one job invocation. Owned by the orchestrator,
// mutated only under the orchestrator mutex by outcome callbacks.
type batchState struct {
	handle *JobHandle

	total     int
	remaining int // uploads dispatched but not yet reported
	retryable int // failed uploads still queued for a later run

	reported bool
}

// Orchestrator runs one batch of uploads per job invocation: it dispatches
// every queued upload, tracks completion, reconciles the durable queue and
// reports to the host whether the job must be rescheduled.
type Orchestrator struct {
	store   queue.Store
	client  transport.Client
	cleaner Cleaner
	sink    events.Sink
	host    Host
	logger  *logger.Logger

	mu    sync.Mutex
	batch *batchState
}

// New wires an orchestrator. A nil sink discards events; store, client,
// cleaner and host must be non-nil.
func New(store queue.Store, client transport.Client, cleaner Cleaner, sink events.Sink, host Host) *Orchestrator {
	if sink == nil {
		sink = events.Discard{}
	}
	return &Orchestrator{
		store:   store,
		client:  client,
		cleaner: cleaner,
		sink:    sink,
		host:    host,
		logger:  logger.WithField("component", "orchestrator"),
	}
}

// Start begins a job invocation. It returns false when the queue is empty
// (nothing to do, the job may stop immediately) and true when uploads were
// dispatched and the job must stay alive until the completion report.
func (o *Orchestrator) Start(handle *JobHandle) bool {
	uploads := o.store.List()

	if len(uploads) == 0 {
		o.logger.Info("nothing to upload", "jobId", handle.ID)
		return false
	}

	o.mu.Lock()
	if o.batch != nil && !o.batch.reported {
		// the draining batch owns the queued entries; finish this
		// invocation right away and let the host retry later instead of
		// leaving it waiting for a report that would never come
		o.mu.Unlock()
		o.logger.Warn("job started while previous batch still draining", "jobId", handle.ID)
		o.host.JobFinished(handle, true)
		return true
	}
	o.batch = &batchState{
		handle:    handle,
		total:     len(uploads),
		remaining: len(uploads),
	}
	o.mu.Unlock()

	o.logger.Info("job started", "jobId", handle.ID, "files", len(uploads))

	for _, upload := range uploads {
		go o.dispatch(handle, upload)
	}

	return true
}

// OnStop is called when the host preempts the job before completion.
// It reports whether dispatched work is still outstanding and therefore
// the job needs rescheduling. It never blocks and never cancels in-flight
// uploads; their callbacks still run and complete the batch safely.
func (o *Orchestrator) OnStop(handle *JobHandle) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	b := o.batch
	needsReschedule := b != nil && b.handle == handle && !b.reported && b.remaining > 0

	o.logger.Info("job stopped", "jobId", handle.ID, "needsReschedule", needsReschedule)
	return needsReschedule
}

// Shutdown stops the cleanup worker, waiting up to wait for queued
// deletions. Safe to call more than once.
func (o *Orchestrator) Shutdown(wait time.Duration) {
	o.cleaner.Stop(wait)
}

// dispatch runs one upload to its terminal outcome. Exactly one of
// Completed, Cancelled or Failed is emitted per dispatched upload and the
// batch counter is decremented exactly once.
func (o *Orchestrator) dispatch(handle *JobHandle, upload *domain.Upload) {
	o.emit(upload, domain.StatusStarted, nil)

	info, err := os.Stat(upload.FilePath)
	if err != nil {
		o.abandonMissing(handle, upload, err)
		return
	}

	o.logger.Debug("uploading", "uploadId", upload.ID, "file", upload.FilePath, "bytes", info.Size())

	file, err := os.Open(upload.FilePath)
	if err != nil {
		o.abandonMissing(handle, upload, err)
		return
	}

	result, err := o.client.Upload(context.Background(), upload.UploadURL, file, info.Size())
	_ = file.Close()

	switch {
	case err != nil:
		o.failRetryable(handle, upload, &domain.UploadError{
			Kind:    domain.KindNetwork,
			Message: err.Error(),
		})
	case result.Successful():
		o.succeed(handle, upload, result)
	default:
		o.failRetryable(handle, upload, &domain.UploadError{
			Kind:       domain.KindResponse,
			HTTPStatus: result.StatusCode,
			Message:    result.Message,
		})
	}
}

// abandonMissing handles the terminal missing-file branch: the upload is
// removed from the durable queue, a Cancelled event is emitted and the
// item never counts toward the reschedule decision.
func (o *Orchestrator) abandonMissing(handle *JobHandle, upload *domain.Upload, cause error) {
	o.logger.Warn("file missing, abandoning upload", "uploadId", upload.ID, "file", upload.FilePath, "error", cause)

	o.removeDurably(upload)
	o.emit(upload, domain.StatusCancelled, &domain.UploadError{
		Kind:    domain.KindMissingFile,
		Message: fmt.Sprintf("file not found: %s", upload.FilePath),
	})

	o.completeOne(handle, false)
}

// succeed handles a delivered upload: durable removal from the queue,
// optional file cleanup, Completed event.
func (o *Orchestrator) succeed(handle *JobHandle, upload *domain.Upload, result *transport.Result) {
	o.logger.Info("upload completed", "uploadId", upload.ID, "status", result.StatusCode)

	o.removeDurably(upload)

	if upload.DeleteOnUpload {
		if !o.cleaner.Post(upload.FilePath) {
			o.logger.Warn("could not queue file for deletion", "uploadId", upload.ID, "file", upload.FilePath)
		}
	}

	o.emit(upload, domain.StatusCompleted, nil)
	o.completeOne(handle, false)
}

// failRetryable handles response and network failures: the upload stays
// in the durable queue for the next job run and counts toward reschedule.
func (o *Orchestrator) failRetryable(handle *JobHandle, upload *domain.Upload, uploadErr *domain.UploadError) {
	o.logger.Warn("upload failed", "uploadId", upload.ID,
		"kind", string(uploadErr.Kind), "httpStatus", uploadErr.HTTPStatus, "message", uploadErr.Message)

	o.emit(upload, domain.StatusFailed, uploadErr)
	o.completeOne(handle, true)
}

// removeDurably removes the upload from the queue and commits. The commit
// must be durable before the terminal event is considered final; a failed
// commit leaves the entry for a redundant re-attempt on the next run.
func (o *Orchestrator) removeDurably(upload *domain.Upload) {
	o.store.Remove(upload.ID)
	if err := o.store.Commit(); err != nil {
		o.logger.Error("failed to commit queue removal, upload may be re-attempted",
			"uploadId", upload.ID, "error", err)
	}
}

// completeOne records one terminal outcome and runs the completion check.
// Multiple outcome callbacks race here; the mutex makes exactly one of
// them the one that completes the batch, and the reported flag makes the
// host report exactly-once.
func (o *Orchestrator) completeOne(handle *JobHandle, retryable bool) {
	o.mu.Lock()

	b := o.batch
	if b == nil || b.handle != handle || b.remaining == 0 {
		o.mu.Unlock()
		o.logger.Warn("outcome reported for inactive batch", "jobId", handle.ID)
		return
	}

	if retryable {
		b.retryable++
	}
	b.remaining--

	finished := b.remaining == 0 && !b.reported
	if finished {
		b.reported = true
	}
	needsReschedule := b.retryable > 0
	pending := b.retryable

	o.mu.Unlock()

	if !finished {
		return
	}

	o.logger.Info("job finished", "jobId", handle.ID, "pendingUploads", pending, "needsReschedule", needsReschedule)
	o.host.JobFinished(handle, needsReschedule)
}

func (o *Orchestrator) emit(upload *domain.Upload, status domain.Status, uploadErr *domain.UploadError) {
	o.sink.Notify(events.Event{
		UploadID: upload.ID,
		Status:   status,
		Error:    uploadErr,
		Extras:   upload.Extras,
	})
}
