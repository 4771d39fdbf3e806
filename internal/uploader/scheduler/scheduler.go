package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"uploader/internal/uploader/core"
	"uploader/pkg/logger"
)

// Service is the orchestrator surface the host scheduler drives.
type Service interface {
	Start(handle *core.JobHandle) bool
	OnStop(handle *core.JobHandle) bool
}

// Scheduler is the host-side job trigger. It starts an upload job on every
// poll tick, waits for the completion report and re-triggers after the
// retry interval when the job asked to be rescheduled. It implements
// core.Host for the completion callback.
type Scheduler struct {
	poll   time.Duration
	retry  time.Duration
	logger *logger.Logger

	counter int64

	mu      sync.Mutex
	service Service
	current *core.JobHandle
	result  chan bool
}

// New returns a scheduler with the given trigger intervals. Attach must be
// called before Run.
func New(poll, retry time.Duration) *Scheduler {
	return &Scheduler{
		poll:   poll,
		retry:  retry,
		logger: logger.WithField("component", "scheduler"),
	}
}

// Attach binds the orchestrator the scheduler triggers. Separate from New
// because the orchestrator needs the scheduler as its host at construction.
func (s *Scheduler) Attach(service Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.service = service
}

// Run triggers jobs until ctx is cancelled. A job running at cancellation
// is preempted through OnStop; its in-flight uploads are left to finish on
// their own.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler running", "pollInterval", s.poll, "retryInterval", s.retry)

	delay := time.Duration(0) // first trigger is immediate
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		case <-timer.C:
		}

		delay = s.runJob(ctx)
		if ctx.Err() != nil {
			s.logger.Info("scheduler stopping")
			return
		}
		timer.Reset(delay)
	}
}

// runJob performs one job invocation and returns the delay until the next
// trigger.
func (s *Scheduler) runJob(ctx context.Context) time.Duration {
	handle := &core.JobHandle{
		ID:        fmt.Sprintf("job-%d", atomic.AddInt64(&s.counter, 1)),
		StartedAt: time.Now(),
	}
	result := make(chan bool, 1)

	s.mu.Lock()
	service := s.service
	s.current = handle
	s.result = result
	s.mu.Unlock()

	s.logger.Debug("triggering job", "jobId", handle.ID)

	if !service.Start(handle) {
		// nothing pending, wait for the next poll tick
		s.clearCurrent()
		return s.poll
	}

	select {
	case needsReschedule := <-result:
		s.clearCurrent()
		if needsReschedule {
			s.logger.Info("job requested reschedule", "jobId", handle.ID, "retryIn", s.retry)
			return s.retry
		}
		return s.poll
	case <-ctx.Done():
		// preemption: ask whether work is outstanding, never wait for it
		needsReschedule := service.OnStop(handle)
		s.clearCurrent()
		s.logger.Info("job preempted", "jobId", handle.ID, "needsReschedule", needsReschedule)
		return s.poll
	}
}

// JobFinished implements core.Host. Called exactly once per invocation by
// the orchestrator; a report for an unknown invocation is logged and
// dropped rather than propagated.
func (s *Scheduler) JobFinished(handle *core.JobHandle, needsReschedule bool) {
	s.mu.Lock()
	current := s.current
	result := s.result
	s.mu.Unlock()

	if current == nil || current != handle || result == nil {
		s.logger.Warn("completion report for unknown job invocation", "jobId", handle.ID)
		return
	}

	select {
	case result <- needsReschedule:
	default:
		s.logger.Warn("duplicate completion report", "jobId", handle.ID)
	}
}

func (s *Scheduler) clearCurrent() {
	s.mu.Lock()
	s.current = nil
	s.result = nil
	s.mu.Unlock()
}
