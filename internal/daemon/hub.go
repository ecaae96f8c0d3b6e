package daemon

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"panemux/internal/mux"
	"panemux/internal/protocol"
)

// writeDeadline bounds a single framed write to an attached client. If a
// client's socket buffer is full long enough to trip this, the client is
// considered unresponsive and dropped.
const writeDeadline = 5 * time.Second

// clientConn is one attached client's outbound fan-out state. Lock
// ordering, never acquire in reverse: hub.mu -> outbox is channel-based, no
// separate lock needed.
type clientConn struct {
	id     mux.ClientID
	conn   net.Conn
	outbox chan protocol.ServerMessage
	done   chan struct{}
	once   sync.Once
}

func (c *clientConn) send(msg protocol.ServerMessage) bool {
	select {
	case c.outbox <- msg:
		return true
	default:
		return false
	}
}

func (c *clientConn) closeOnce() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Hub fans broadcast messages out to every attached client over its own
// bounded outbox channel; a client whose outbox is full is disconnected
// rather than allowed to stall the others. Adapted from a single-connection
// WebSocket hub design to true multi-client fan-out: outbox-per-client
// replaces the single shared connection, and capacity is floored at 256
// instead of relying on OS page-reload semantics.
type Hub struct {
	mu       sync.RWMutex
	clients  map[mux.ClientID]*clientConn
	capacity int
}

// NewHub constructs a Hub whose per-client outbox holds capacity messages.
// Values below 256 are floored to 256.
func NewHub(capacity int) *Hub {
	if capacity < 256 {
		capacity = 256
	}
	return &Hub{clients: make(map[mux.ClientID]*clientConn), capacity: capacity}
}

// Register starts a per-client writer goroutine draining outbox to conn,
// and returns the clientConn so the caller can Send/Unregister it.
func (h *Hub) Register(id mux.ClientID, conn net.Conn) *clientConn {
	c := &clientConn{
		id:     id,
		conn:   conn,
		outbox: make(chan protocol.ServerMessage, h.capacity),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()

	go h.writerLoop(c)
	return c
}

// Unregister removes a client from the fan-out set and stops its writer.
func (h *Hub) Unregister(id mux.ClientID) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()
	if ok {
		c.closeOnce()
	}
}

// Broadcast enqueues msg for every attached client. A client whose outbox
// is already full is dropped immediately rather than blocking the other
// clients' fan-out.
func (h *Hub) Broadcast(msg protocol.ServerMessage) {
	h.mu.RLock()
	targets := make([]*clientConn, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.send(msg) {
			slog.Warn("[daemon] client outbox full, disconnecting", "client_id", c.id)
			h.Unregister(c.id)
		}
	}
}

// Send enqueues msg for exactly one client.
func (h *Hub) Send(id mux.ClientID, msg protocol.ServerMessage) {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if !c.send(msg) {
		h.Unregister(id)
	}
}

// CloseAll disconnects every attached client, e.g. on daemon shutdown so
// their blocked reader goroutines unblock with an error.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[mux.ClientID]*clientConn)
	h.mu.Unlock()
	for _, c := range clients {
		c.closeOnce()
	}
}

// Count returns the number of currently attached clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) writerLoop(c *clientConn) {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.outbox:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				slog.Warn("[daemon] SetWriteDeadline failed, dropping client", "client_id", c.id, "error", err)
				h.Unregister(c.id)
				return
			}
			if err := protocol.WriteMessage(c.conn, msg); err != nil {
				slog.Debug("[daemon] write failed, dropping client", "client_id", c.id, "error", err)
				h.Unregister(c.id)
				return
			}
		}
	}
}
