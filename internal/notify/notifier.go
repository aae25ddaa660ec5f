// Package notify fans out pipeline progress events to interested listeners.
// Delivery is best-effort and at-most-once: a slow or absent listener never
// affects pipeline correctness.
package notify

import (
	"sync"

	"go.uber.org/zap"
)

// EventType identifies the kind of progress event
type EventType string

const (
	EventUploadStart     EventType = "upload:start"
	EventUploadProgress  EventType = "upload:progress"
	EventUploadComplete  EventType = "upload:complete"
	EventUploadCancelled EventType = "upload:cancelled"
	EventUploadPaused    EventType = "upload:paused"
	EventUploadResumed   EventType = "upload:resumed"
	EventUploadError     EventType = "upload:error"
)

// Event is one progress notification emitted by the batch pipeline
type Event struct {
	Type     EventType      `json:"type"`
	RunID    string         `json:"runId,omitempty"`
	FileName string         `json:"fileName,omitempty"`
	Status   string         `json:"status,omitempty"`
	Message  string         `json:"message,omitempty"`
	Progress *int           `json:"progress,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Notifier is the event-emission contract consumed by the pipeline
type Notifier interface {
	Publish(evt Event)
}

// Hub distributes events to subscriber channels. Publishing never blocks:
// events for a full subscriber buffer are dropped.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
	logger *zap.Logger
}

// NewHub creates a new event hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]chan Event),
		logger: logger,
	}
}

// Subscribe registers a listener and returns its channel plus an
// unsubscribe function that closes it
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, 64)
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
}

// Publish delivers an event to every subscriber without blocking
func (h *Hub) Publish(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			h.logger.Debug("Dropping event for slow subscriber",
				zap.Int("subscriber", id),
				zap.String("type", string(evt.Type)))
		}
	}
}

// SubscriberCount returns the number of registered listeners
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
