package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop())

	ch1, cancel1 := hub.Subscribe()
	ch2, cancel2 := hub.Subscribe()
	defer cancel1()
	defer cancel2()

	hub.Publish(Event{Type: EventUploadStart, RunID: "run-1"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			assert.Equal(t, EventUploadStart, evt.Type)
			assert.Equal(t, "run-1", evt.RunID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestHub_PublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop())

	done := make(chan struct{})
	go func() {
		hub.Publish(Event{Type: EventUploadProgress})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with no subscribers")
	}
}

func TestHub_FullSubscriberDropsEvents(t *testing.T) {
	hub := NewHub(zap.NewNop())

	_, cancel := hub.Subscribe()
	defer cancel()

	// Overflow the buffer; publish must stay non-blocking
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(Event{Type: EventUploadProgress})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on full subscriber")
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(zap.NewNop())

	_, cancel := hub.Subscribe()
	require.Equal(t, 1, hub.SubscriberCount())

	cancel()
	assert.Equal(t, 0, hub.SubscriberCount())

	// Idempotent
	cancel()
	assert.Equal(t, 0, hub.SubscriberCount())
}
