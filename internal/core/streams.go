package core

import (
	"log"
	"sync"

	"github.com/ngocvu/shopdash/internal/config"
	"github.com/ngocvu/shopdash/internal/gateway"
	"github.com/ngocvu/shopdash/internal/models"
	"github.com/ngocvu/shopdash/internal/stream"
	"github.com/ngocvu/shopdash/internal/websocket"
)

// LogRelay bridges the upstream SSE log consumer and the browser-facing
// fanout. It implements workflow.StreamControl: the session asks it to be
// active while a push runs and to drop history on reset.
type LogRelay struct {
	cfg *config.Config
	gw  *gateway.Client
	hub *websocket.Hub

	mu        sync.Mutex
	consumer  *stream.Consumer
	sub       *stream.Subscription
	listeners map[chan models.LogEntry]struct{}
	// history outlives individual consumers: a reconnect after a drop gets a
	// fresh consumer but the replay buffer carries on. Cleared only by
	// ClearBuffer.
	history []models.LogEntry
}

func NewLogRelay(cfg *config.Config, gw *gateway.Client, hub *websocket.Hub) *LogRelay {
	return &LogRelay{
		cfg:       cfg,
		gw:        gw,
		hub:       hub,
		listeners: make(map[chan models.LogEntry]struct{}),
	}
}

// Listen attaches a listener channel fed with entries as they arrive. The
// returned cancel func detaches it; calling it twice is safe.
func (r *LogRelay) Listen() (<-chan models.LogEntry, func()) {
	ch := make(chan models.LogEntry, 64)
	r.mu.Lock()
	r.listeners[ch] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, ch)
			r.mu.Unlock()
		})
	}
	return ch, cancel
}

func (r *LogRelay) publish(entry models.LogEntry) {
	r.mu.Lock()
	for ch := range r.listeners {
		select {
		case ch <- entry:
		default:
			// Slow listener; it catches up from the buffer on reconnect.
		}
	}
	r.mu.Unlock()
}

// EnsureActive opens the upstream connection unless one is already live.
// Reopening after a drop is this explicit call, made when a push starts; the
// consumer itself only retries when stream.reconnect is enabled.
func (r *LogRelay) EnsureActive() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub != nil && r.consumer.Status() != stream.StatusDisconnected {
		return
	}
	if r.sub != nil {
		r.sub.Dispose()
		r.sub = nil
	}

	url, err := r.gw.LogStreamURL()
	if err != nil {
		// Missing backend URL surfaces on the push call itself; the relay
		// just stays inactive.
		log.Printf("log relay: %v", err)
		return
	}

	consumer := stream.New(url)
	r.consumer = consumer
	r.sub = consumer.Subscribe(stream.Options{
		Filter:    r.cfg.Stream.Filter,
		Reconnect: r.cfg.Stream.Reconnect,
		OnOpen: func() {
			r.hub.Broadcast(map[string]any{"type": "stream_status", "status": stream.StatusConnected})
		},
		OnEvent: func(entry models.LogEntry) {
			r.mu.Lock()
			r.history = append(r.history, entry)
			r.mu.Unlock()
			r.hub.Broadcast(map[string]any{"type": "log", "entry": entry})
			r.publish(entry)
		},
		OnError: func(err error) {
			log.Printf("log relay: upstream stream error: %v", err)
			r.hub.Broadcast(map[string]any{"type": "stream_status", "status": stream.StatusDisconnected})
		},
	})
}

// ClearBuffer drops the buffered log history.
func (r *LogRelay) ClearBuffer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
	if r.consumer != nil {
		r.consumer.Clear()
	}
}

// Entries returns the buffered history in arrival order. The buffer spans
// reconnects; it empties only through ClearBuffer.
func (r *LogRelay) Entries() []models.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.LogEntry, len(r.history))
	copy(out, r.history)
	return out
}

// Status reports the upstream connection health; connecting until the first
// EnsureActive, disconnected after Close or a drop.
func (r *LogRelay) Status() stream.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.consumer == nil {
		return stream.StatusConnecting
	}
	return r.consumer.Status()
}

// Close releases the upstream connection. Safe to call repeatedly and
// regardless of connection state.
func (r *LogRelay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		r.sub.Dispose()
		r.sub = nil
	}
}
