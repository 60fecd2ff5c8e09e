// Package telemetry pushes performance metrics snapshots to websocket
// subscribers, for dashboards and monitoring tools that want updates
// without polling the clock.
//
// The hub is a strictly read-only consumer of the clock: it samples
// Metrics() on its own cadence and never mutates clock state. Slow or
// broken subscribers are dropped rather than allowed to stall the
// broadcast loop.
package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/halcyon-engine/timing"
)

const writeTimeout = 2 * time.Second

// MetricsSource is the read-only slice of the clock the hub needs.
// *timing.Clock satisfies it.
type MetricsSource interface {
	Metrics() timing.PerformanceMetrics
	Frame() uint64
	Now() float64
}

// Snapshot is the wire format broadcast to subscribers.
type Snapshot struct {
	MasterTime float64                   `json:"masterTime"`
	Frame      uint64                    `json:"frame"`
	Metrics    timing.PerformanceMetrics `json:"metrics"`
}

// Hub broadcasts metrics snapshots to websocket subscribers at a fixed
// interval.
type Hub struct {
	source   MetricsSource
	interval time.Duration
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[uuid.UUID]*subscriber
}

type subscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// write sends one websocket message guarded by the subscriber's mutex and
// a write deadline.
func (s *subscriber) write(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(messageType, data)
}

// NewHub creates a hub sampling source every interval. A non-positive
// interval defaults to one second; a nil logger defaults to
// slog.Default().
func NewHub(source MetricsSource, interval time.Duration, logger *slog.Logger) *Hub {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		source:      source,
		interval:    interval,
		logger:      logger,
		subscribers: make(map[uuid.UUID]*subscriber),
	}
}

// ServeHTTP upgrades the request to a websocket and registers the peer as
// a subscriber until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("telemetry: websocket upgrade failed", "error", err)
		return
	}
	id := uuid.New()
	sub := &subscriber{conn: conn}
	h.mu.Lock()
	h.subscribers[id] = sub
	h.mu.Unlock()
	h.logger.Info("telemetry: subscriber connected",
		"id", id.String(), "remote", r.RemoteAddr)

	// Drain reads to observe the peer closing; subscribers never send
	// anything meaningful.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(id)
				return
			}
		}
	}()
}

// Run broadcasts snapshots until ctx is cancelled, then closes every
// subscriber connection.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.broadcast()
		}
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// broadcast sends one snapshot to every subscriber, dropping any whose
// write fails or times out.
func (h *Hub) broadcast() {
	snap := Snapshot{
		MasterTime: h.source.Now(),
		Frame:      h.source.Frame(),
		Metrics:    h.source.Metrics(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error("telemetry: snapshot marshal failed", "error", err)
		return
	}

	h.mu.Lock()
	subs := make(map[uuid.UUID]*subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		if err := sub.write(websocket.TextMessage, data); err != nil {
			h.logger.Warn("telemetry: dropping slow subscriber",
				"id", id.String(), "error", err)
			h.drop(id)
		}
	}
}

func (h *Hub) drop(id uuid.UUID) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()
	if ok {
		sub.conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[uuid.UUID]*subscriber)
	h.mu.Unlock()
	for _, sub := range subs {
		sub.conn.Close()
	}
}
