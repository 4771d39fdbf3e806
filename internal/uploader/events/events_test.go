package events_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uploader/internal/uploader/domain"
	"uploader/internal/uploader/events"
)

func receive(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

func TestBroadcaster_DeliversToSubscriber(t *testing.T) {
	b := events.NewBroadcaster()
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	b.Notify(events.Event{
		UploadID: "up-1",
		Status:   domain.StatusFailed,
		Error:    &domain.UploadError{Kind: domain.KindNetwork, Message: "connection reset"},
		Extras:   map[string]string{"tenant": "acme"},
	})

	e := receive(t, ch)
	assert.Equal(t, "up-1", e.UploadID)
	assert.Equal(t, domain.StatusFailed, e.Status)
	require.NotNil(t, e.Error)
	assert.Equal(t, domain.KindNetwork, e.Error.Kind)
	assert.Equal(t, "acme", e.Extras["tenant"])
}

func TestBroadcaster_DeliversInOrder(t *testing.T) {
	b := events.NewBroadcaster()
	defer b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	b.Notify(events.Event{UploadID: "up-1", Status: domain.StatusStarted})
	b.Notify(events.Event{UploadID: "up-1", Status: domain.StatusCompleted})

	assert.Equal(t, domain.StatusStarted, receive(t, ch).Status)
	assert.Equal(t, domain.StatusCompleted, receive(t, ch).Status)
}

func TestBroadcaster_NotifyWithoutSubscribers(t *testing.T) {
	b := events.NewBroadcaster()
	defer b.Close()

	// must not block or panic
	b.Notify(events.Event{UploadID: "up-1", Status: domain.StatusStarted})
}

func TestBroadcaster_SlowSubscriberDoesNotBlockNotify(t *testing.T) {
	b := events.NewBroadcaster()
	defer b.Close()

	_, cancel := b.Subscribe()
	defer cancel()

	// overflow the subscriber buffer; Notify must stay non-blocking
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Notify(events.Event{UploadID: "up-1", Status: domain.StatusStarted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a slow subscriber")
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := events.NewBroadcaster()
	defer b.Close()

	ch, cancel := b.Subscribe()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// second cancel is a no-op
	cancel()
}

func TestBroadcaster_NotifyRacesSubscriberChurnSafely(t *testing.T) {
	b := events.NewBroadcaster()
	defer b.Close()

	// outcome callbacks keep emitting while listeners come and go at
	// shutdown; a send on a channel closed by unsubscribe would panic here
	stop := make(chan struct{})
	var notifiers sync.WaitGroup
	for i := 0; i < 4; i++ {
		notifiers.Add(1)
		go func() {
			defer notifiers.Done()
			for {
				select {
				case <-stop:
					return
				default:
					b.Notify(events.Event{UploadID: "up-1", Status: domain.StatusStarted})
				}
			}
		}()
	}

	var churn sync.WaitGroup
	for i := 0; i < 4; i++ {
		churn.Add(1)
		go func() {
			defer churn.Done()
			for j := 0; j < 200; j++ {
				_, cancel := b.Subscribe()
				cancel()
			}
		}()
	}

	churn.Wait()
	close(stop)
	notifiers.Wait()
}

func TestBroadcaster_NotifyRacesCloseSafely(t *testing.T) {
	b := events.NewBroadcaster()

	for i := 0; i < 4; i++ {
		_, cancel := b.Subscribe()
		defer cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			b.Notify(events.Event{UploadID: "up-1", Status: domain.StatusCompleted})
		}
	}()

	b.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify did not finish while racing Close")
	}
}

func TestBroadcaster_CloseTwiceIsSafe(t *testing.T) {
	b := events.NewBroadcaster()

	ch, _ := b.Subscribe()

	b.Close()
	b.Close()

	_, open := <-ch
	assert.False(t, open)

	// notify after close must not panic
	b.Notify(events.Event{UploadID: "up-1", Status: domain.StatusStarted})

	// subscribing after close yields a closed channel
	late, cancel := b.Subscribe()
	defer cancel()
	_, open = <-late
	assert.False(t, open)
}
