package events

import (
	"sync"

	"uploader/internal/uploader/domain"
	"uploader/pkg/logger"
)

// Event is one status change of an individual upload.
type Event struct {
	UploadID string
	Status   domain.Status
	// Error is set for FAILED and CANCELLED events.
	Error  *domain.UploadError
	Extras map[string]string
}

// Sink receives upload status changes. Implementations must never block
// the caller for long and must never fail the orchestration path.
type Sink interface {
	Notify(event Event)
}

// Discard is a Sink that drops every event.
type Discard struct{}

func (Discard) Notify(Event) {}

// Broadcaster fans events out to subscriber channels. Publishing is
// non-blocking; a subscriber whose channel is full simply misses the
// event rather than stalling an outcome callback.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	closed      bool

	logger *logger.Logger
}

// subscriber channel buffer, enough to ride out short consumer stalls
const subscriberBuffer = 16

// NewBroadcaster returns an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan Event]struct{}),
		logger:      logger.WithField("component", "events"),
	}
}

// Subscribe registers a new listener. The returned cancel function
// removes the subscription and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subscribers[ch] = struct{}{}
	total := len(b.subscribers)
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "totalSubscribers", total)

	return ch, func() { b.remove(ch) }
}

// Notify implements Sink. Slow subscribers are skipped, never waited on.
// The read lock is held across the sends: they cannot block (default case)
// and remove/Close only close channels under the write lock, so a send on
// a closed channel cannot happen.
func (b *Broadcaster) Notify(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed || len(b.subscribers) == 0 {
		return
	}

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Warn("subscriber not keeping up, event dropped",
				"uploadId", event.UploadID, "status", string(event.Status))
		}
	}
}

// Close shuts down all subscriptions. Safe to call more than once.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = make(map[chan Event]struct{})

	b.logger.Debug("broadcaster closed")
}

func (b *Broadcaster) remove(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[ch]; !exists {
		return
	}
	delete(b.subscribers, ch)
	close(ch)

	b.logger.Debug("subscriber removed", "remainingSubscribers", len(b.subscribers))
}
