package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kwren/taskhive-api/internal/domain"
)

const (
	// writeWait bounds how long a single frame write may take.
	writeWait = 10 * time.Second

	// maxMessageSize bounds inbound frames; clients only send small
	// heartbeat payloads.
	maxMessageSize = 4096

	// sendBufferSize is the per-connection outbound queue. A slow consumer
	// whose buffer fills up loses frames rather than blocking the hub.
	sendBufferSize = 32
)

// inboundFrame is what clients send us. Only heartbeats are expected.
type inboundFrame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
}

// client is one authenticated websocket connection.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan Frame
	userID uuid.UUID
	role   domain.Role
	name   string
	logger *slog.Logger

	// sendMu guards closing the send channel against concurrent enqueues;
	// frames can arrive from the hub, the handshake and the heartbeat path
	// while a displaced or shutting-down connection is being torn down.
	sendMu     sync.Mutex
	sendClosed bool
}

// readPump consumes frames from the connection until it errors or closes.
// It answers "ping" heartbeats and triggers unregistration on exit.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		var in inboundFrame
		if err := c.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", "user_id", c.userID, "error", err)
			}
			return
		}

		if in.Event == "ping" {
			data := map[string]any{}
			for k, v := range in.Data {
				data[k] = v
			}
			data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
			c.enqueue(Frame{Event: EventPong, Data: data})
		}
	}
}

// writePump serializes queued frames onto the connection. It exits when the
// send channel closes (unregistration) or a write fails.
func (c *client) writePump() {
	defer func() { _ = c.conn.Close() }()

	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(frame); err != nil {
			c.logger.Debug("websocket write failed", "user_id", c.userID, "error", err)
			return
		}
	}

	// Hub closed the channel: say goodbye before hanging up.
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// enqueue offers a frame to the client without blocking. Delivery is
// best-effort: a closed connection or full buffer drops the frame.
func (c *client) enqueue(frame Frame) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	select {
	case c.send <- frame:
	default:
		c.logger.Warn("dropping realtime frame for slow consumer",
			"user_id", c.userID,
			"event", frame.Event)
	}
}

// closeSend shuts the outbound queue, ending the write pump. Idempotent.
func (c *client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}
