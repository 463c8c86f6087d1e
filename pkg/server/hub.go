package server

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/forestwatch-dev/forestwatch/pkg/chartdata"
)

const (
	writeTimeout = 10 * time.Second

	// sendBuffer is the per-client outbound queue. A client that falls
	// this far behind is disconnected rather than allowed to stall the
	// broadcast path.
	sendBuffer = 64
)

// Envelope is the wire format for server-pushed events.
type Envelope struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// Hub fans events out to every connected WebSocket client. It
// implements the toast Emitter contract and relays chart updates from
// the registry.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger.With("component", "hub"),
		clients: make(map[*Client]struct{}),
	}
}

// Emit broadcasts a custom event to every connected client.
func (h *Hub) Emit(event string, data map[string]any) {
	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error("event marshal failed", "event", event, "error", err)
		return
	}
	h.broadcast(msg)
}

// BindRegistry relays chart updates to connected clients. The returned
// func unsubscribes.
func (h *Hub) BindRegistry(reg *chartdata.Registry) func() {
	return reg.Subscribe(func(p chartdata.Period, s chartdata.Series) {
		h.Emit("forestwatch:chart-update", map[string]any{
			"period":   string(p),
			"labels":   s.Labels,
			"lossData": s.LossData,
			"gainData": s.GainData,
		})
	})
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if !c.Send(msg) {
			h.logger.Warn("dropping slow client")
			c.Close()
		}
	}
}

// Add registers a connection and starts its write pump.
func (h *Hub) Add(conn *websocket.Conn) *Client {
	c := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		hub:  h,
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()
	return c
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Client is one connected WebSocket peer. All writes go through the
// send channel so the connection sees a single writer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	once sync.Once
}

// Send queues msg for delivery. Reports false when the client's queue
// is full or closed.
func (c *Client) Send(msg []byte) bool {
	defer func() { recover() }() // send on closed channel loses the race, not the server
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// SendJSON marshals v and queues it.
func (c *Client) SendJSON(v any) bool {
	msg, err := json.Marshal(v)
	if err != nil {
		c.hub.logger.Error("payload marshal failed", "error", err)
		return false
	}
	return c.Send(msg)
}

// Close removes the client from the hub and closes the connection.
// Idempotent.
func (c *Client) Close() {
	c.once.Do(func() {
		c.hub.mu.Lock()
		delete(c.hub.clients, c)
		c.hub.mu.Unlock()
		close(c.send)
		c.conn.Close()
	})
}

func (c *Client) writeLoop() {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.hub.logger.Error("write error", "error", err)
			}
			c.Close()
			return
		}
	}
}
