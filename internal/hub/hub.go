// Package hub owns the live websocket connections of this process, their
// room memberships and the primitives used to push frames to them.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"livechat/internal/metrics"
	"livechat/internal/models"
)

// DefaultSendBuffer is the number of outbound frames queued per connection.
const DefaultSendBuffer = 64

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
}

// Client is one registered connection. Frames are written by its own
// goroutine so a slow peer never blocks a broadcaster.
type Client struct {
	ID   string
	conn Conn
	send chan []byte
	done chan struct{}
}

// Done is closed once the write pump has stopped touching the connection.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) writePump(logger zerolog.Logger) {
	defer close(c.done)
	failed := false
	for msg := range c.send {
		if failed {
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			// the read loop sees the broken socket and unregisters us
			logger.Debug().Err(err).Str("conn_id", c.ID).Msg("write failed")
			failed = true
		}
	}
}

type set map[string]struct{}

// Hub tracks connections and rooms.
type Hub struct {
	mu sync.RWMutex
	// connID -> client
	clients map[string]*Client
	// room -> connIDs
	rooms map[string]set
	// connID -> rooms, for cleanup on unregister
	joined map[string]set

	sendBuffer int
	logger     zerolog.Logger
}

// New creates an empty hub.
func New(sendBuffer int, logger zerolog.Logger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]set),
		joined:     make(map[string]set),
		sendBuffer: sendBuffer,
		logger:     logger.With().Str("component", "hub").Logger(),
	}
}

// Register adds a connection and starts its write pump.
func (h *Hub) Register(connID string, conn Conn) *Client {
	c := &Client{
		ID:   connID,
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[connID] = c
	h.mu.Unlock()

	metrics.ActiveConnections.Inc()
	go c.writePump(h.logger)
	return c
}

// Unregister removes a connection from every room and stops its write pump.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[connID]
	if !ok {
		return
	}
	for room := range h.joined[connID] {
		if conns, ok := h.rooms[room]; ok {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.joined, connID)
	delete(h.clients, connID)
	close(c.send)
	metrics.ActiveConnections.Dec()
}

// Join subscribes a connection to a room. Joining twice is a no-op.
func (h *Hub) Join(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[connID]; !ok {
		return
	}
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(set)
	}
	h.rooms[room][connID] = struct{}{}
	if _, ok := h.joined[connID]; !ok {
		h.joined[connID] = make(set)
	}
	h.joined[connID][room] = struct{}{}
}

// InRoom reports whether connID is subscribed to room.
func (h *Hub) InRoom(connID, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][connID]
	return ok
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) encode(frame models.OutFrame) []byte {
	b, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error().Err(err).Str("event", frame.Event).Msg("encode frame")
		return nil
	}
	return b
}

// enqueue must be called with h.mu held.
func (h *Hub) enqueue(c *Client, event string, msg []byte) {
	select {
	case c.send <- msg:
	default:
		metrics.DroppedFrames.Inc()
		h.logger.Warn().Str("conn_id", c.ID).Str("event", event).Msg("send buffer full, frame dropped")
	}
}

// EmitToConn pushes an event to one connection. Unknown connections are ignored.
func (h *Hub) EmitToConn(connID, event string, payload interface{}) {
	msg := h.encode(models.OutFrame{Event: event, Data: payload})
	if msg == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		h.enqueue(c, event, msg)
	}
}

// EmitToRoom pushes an event to every connection in room except exceptConnID.
func (h *Hub) EmitToRoom(room, event string, payload interface{}, exceptConnID string) {
	msg := h.encode(models.OutFrame{Event: event, Data: payload})
	if msg == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.rooms[room] {
		if id == exceptConnID {
			continue
		}
		if c, ok := h.clients[id]; ok {
			h.enqueue(c, event, msg)
		}
	}
}

// Broadcast pushes an event to every connection.
func (h *Hub) Broadcast(event string, payload interface{}) {
	msg := h.encode(models.OutFrame{Event: event, Data: payload})
	if msg == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.enqueue(c, event, msg)
	}
}

// Ack answers a client request carrying an ack id.
func (h *Hub) Ack(connID string, ack int64, result models.AckResult) {
	if ack == 0 {
		return
	}
	msg := h.encode(models.OutFrame{Event: "ack", Ack: ack, Data: result})
	if msg == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		h.enqueue(c, "ack", msg)
	}
}
