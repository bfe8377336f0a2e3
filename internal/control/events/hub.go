package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/mission-control/internal/control/domain"
)

// EventType classifies messages pushed to listeners.
type EventType string

const (
	EventTypeState     EventType = "state"
	EventTypeCompleted EventType = "completed"
)

const defaultBuffer = 16

// Event is a sequenced snapshot notification.
type Event struct {
	Seq       int64           `json:"seq"`
	Timestamp time.Time       `json:"timestamp"`
	Type      EventType       `json:"type"`
	Snapshot  domain.Snapshot `json:"snapshot"`
}

// Listener receives events on C until it is unsubscribed or the hub closes.
type Listener struct {
	ID string
	C  <-chan Event

	ch chan Event
}

// Hub fans controller notifications out to any number of listeners. A
// listener that falls behind loses its oldest buffered events.
type Hub struct {
	mu        sync.Mutex
	logger    *slog.Logger
	nextSeq   int64
	buffer    int
	closed    bool
	listeners map[string]*Listener
}

// NewHub creates a hub with the given per-listener buffer size.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:    logger,
		buffer:    buffer,
		listeners: make(map[string]*Listener),
	}
}

// Subscribe registers a new listener. On a closed hub the listener's channel
// is already closed.
func (h *Hub) Subscribe() *Listener {
	ch := make(chan Event, h.buffer)
	l := &Listener{ID: uuid.NewString(), C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return l
	}
	h.listeners[l.ID] = l
	return l
}

// Unsubscribe removes a listener and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(l.ch)
	}
}

// Len returns the number of registered listeners.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Close unsubscribes every listener. Later notifications are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, l := range h.listeners {
		delete(h.listeners, id)
		close(l.ch)
	}
}

func (h *Hub) StateChanged(s domain.Snapshot) {
	h.publish(EventTypeState, s)
}

func (h *Hub) Completed(s domain.Snapshot) {
	h.publish(EventTypeCompleted, s)
}

func (h *Hub) publish(typ EventType, s domain.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	h.nextSeq++
	event := Event{
		Seq:       h.nextSeq,
		Timestamp: time.Now().UTC(),
		Type:      typ,
		Snapshot:  s,
	}

	for _, l := range h.listeners {
		select {
		case l.ch <- event:
			continue
		default:
		}
		// Full: drop the oldest event to make room.
		select {
		case <-l.ch:
			h.logger.Debug("Dropped event for slow listener",
				slog.String("listener_id", l.ID),
				slog.Int64("seq", event.Seq))
		default:
		}
		select {
		case l.ch <- event:
		default:
		}
	}
}
