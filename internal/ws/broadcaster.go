package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"dexflow/internal/domain"
	"dexflow/internal/infra"

	"github.com/gorilla/websocket"
)

// subscriber wraps a live connection with a write mutex so pipeline
// broadcasts and keep-alive replies never interleave frames.
type subscriber struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *subscriber) send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// Broadcaster keeps the per-order subscriber registry and pushes
// serialized status transitions to whoever is listening. One subscriber
// per order: a new registration replaces (and closes) any prior one.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]*subscriber
}

// NewBroadcaster creates an empty registry.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string]*subscriber),
	}
}

// Register associates a connection with an order id, replacing any
// prior subscriber for the same id.
func (b *Broadcaster) Register(orderID string, conn *websocket.Conn) {
	b.mu.Lock()
	prev := b.subs[orderID]
	b.subs[orderID] = &subscriber{conn: conn}
	b.mu.Unlock()

	if prev != nil {
		prev.conn.Close()
	} else {
		infra.GlobalMetrics.IncrementSubscribers()
	}
	slog.Debug("subscriber registered", slog.String("order_id", orderID))
}

// Unregister removes the subscriber for an order id. Idempotent. A
// non-nil conn restricts removal to that exact connection, so a reader
// exiting after its connection was replaced cannot drop the successor.
func (b *Broadcaster) Unregister(orderID string, conn *websocket.Conn) {
	b.mu.Lock()
	sub, ok := b.subs[orderID]
	if ok && conn != nil && sub.conn != conn {
		b.mu.Unlock()
		return
	}
	delete(b.subs, orderID)
	b.mu.Unlock()

	if ok {
		infra.GlobalMetrics.DecrementSubscribers()
		slog.Debug("subscriber removed", slog.String("order_id", orderID))
	}
}

// Publish sends a status update to the order's subscriber, if any. A
// dead or errored connection is dropped and deregistered silently.
func (b *Broadcaster) Publish(orderID string, update domain.StatusUpdate) {
	b.mu.RLock()
	sub := b.subs[orderID]
	b.mu.RUnlock()

	if sub == nil {
		return
	}

	if err := sub.send(update); err != nil {
		slog.Warn("dropping dead subscriber",
			slog.String("order_id", orderID),
			slog.Any("error", err),
		)
		b.Unregister(orderID, sub.conn)
		sub.conn.Close()
		return
	}
	slog.Debug("status update sent",
		slog.String("order_id", orderID),
		slog.String("status", string(update.Status)),
	)
}

// Send delivers an arbitrary frame to the order's subscriber, used for
// the connection greeting and keep-alive pong replies.
func (b *Broadcaster) Send(orderID string, v any) error {
	b.mu.RLock()
	sub := b.subs[orderID]
	b.mu.RUnlock()

	if sub == nil {
		return nil
	}
	return sub.send(v)
}

// Subscribers returns the number of registered subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
