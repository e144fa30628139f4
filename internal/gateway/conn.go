package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the deadline for a single write to the peer.
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong before dropping the peer.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound control messages from the peer.
	maxMessageSize = 4096

	// sendBufferSize is the per-client outbound queue. Events past this
	// backlog are dropped for the client rather than buffered forever.
	sendBufferSize = 64
)

// client is one authenticated WebSocket connection.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	logger *slog.Logger
	userID uuid.UUID
	send   chan []byte

	mu     sync.Mutex
	filter map[uuid.UUID]struct{} // job IDs this connection subscribed to
}

func newClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger, userID uuid.UUID) *client {
	return &client{
		hub:    hub,
		conn:   conn,
		logger: logger,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
		filter: make(map[uuid.UUID]struct{}),
	}
}

// wants reports whether this connection asked for updates on the job.
// Only explicitly subscribed jobs are delivered; a connection that has
// not subscribed to anything receives nothing.
func (c *client) wants(jobID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.filter[jobID]
	return ok
}

// controlMessage is the inbound message format: clients subscribe to the
// jobs they want updates for.
type controlMessage struct {
	Type  string    `json:"type"`
	JobID uuid.UUID `json:"job_id"`
}

// handleControl applies a subscribe or unsubscribe request.
func (c *client) handleControl(raw []byte) {
	var msg controlMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Debug("ignoring malformed control message", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Type {
	case "subscribe":
		if msg.JobID != uuid.Nil {
			c.filter[msg.JobID] = struct{}{}
		}
	case "unsubscribe":
		delete(c.filter, msg.JobID)
	default:
		c.logger.Debug("ignoring unknown control message", "type", msg.Type)
	}
}

// readPump consumes inbound messages until the connection drops. It is
// also what detects a dead peer via the pong deadline.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("connection closed unexpectedly", "error", err)
			}
			return
		}
		c.handleControl(raw)
	}
}

// writePump pushes queued events and keepalive pings to the peer.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
