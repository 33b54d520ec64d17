package trace

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is a trace record delivered to Hub subscribers.
type Event struct {
	Kind     string         `json:"kind"` // performance, sql, error, operation, corruption
	Time     time.Time      `json:"time"`
	Path     string         `json:"path,omitempty"`
	Tag      int64          `json:"tag,omitempty"`
	HandleID uint64         `json:"handle_id,omitempty"`
	SQL      string         `json:"sql,omitempty"`
	CostMS   float64        `json:"cost_ms,omitempty"`
	Level    string         `json:"level,omitempty"`
	Code     int            `json:"code,omitempty"`
	Message  string         `json:"message,omitempty"`
	Detail   map[string]any `json:"detail,omitempty"`
}

// Hub fans events out to subscribers. A subscriber that does not keep up
// loses events instead of blocking the publisher.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	nextID  int
	bufSize int
	dropped atomic.Uint64
}

// NewHub creates a hub whose subscribers buffer up to bufSize events.
func NewHub(bufSize int) *Hub {
	if bufSize < 1 {
		bufSize = 1
	}
	return &Hub{subs: make(map[int]chan Event), bufSize: bufSize}
}

// Subscribe returns the event channel and a cancel func that closes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.bufSize)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
