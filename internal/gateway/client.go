package gateway

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chrissnell/remoterover/internal/types"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Base64 frames from a 640x480 camera run well under this.
	maxMessageSize = 2 << 20
)

// Client is one websocket connection. The hub writes into send; the two
// pumps own the connection.
type Client struct {
	id      string
	role    string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	dropped atomic.Uint64
}

type inboundMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// readPump consumes inbound messages until the connection dies. Camera
// publishers push frames through it; messages from observers are ignored.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debugf("gateway client %s read error: %v", c.id, err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.logger.Debugf("gateway client %s sent unparseable message", c.id)
			continue
		}
		if msg.Type != "frame" {
			continue
		}
		if c.role != RoleCamera {
			c.hub.logger.Warnf("gateway client %s pushed a frame without the camera role, ignoring", c.id)
			continue
		}
		if c.hub.pipeline == nil {
			continue
		}

		frame, err := DecodeFramePayload(msg.Data)
		if err != nil {
			c.hub.logger.Warnf("gateway client %s sent an undecodable frame payload: %v", c.id, err)
			continue
		}
		c.hub.pipeline.Submit(types.Frame{
			Data:      frame,
			Source:    types.FrameSourceWebsocket,
			Timestamp: time.Now(),
		})
	}
}

// writePump moves queued messages onto the wire with a bounded deadline per
// write. Any write failure ends the connection; readPump's exit handles the
// unregister.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.sendTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.sendTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// DecodeFramePayload accepts plain base64 or a data URL and returns the
// encoded image bytes. The REST frame endpoint shares this decode rule.
func DecodeFramePayload(payload string) ([]byte, error) {
	if idx := strings.Index(payload, "base64,"); idx >= 0 {
		payload = payload[idx+len("base64,"):]
	}
	return base64.StdEncoding.DecodeString(payload)
}
