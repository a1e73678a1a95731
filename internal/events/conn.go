package events

import (
	"time"

	"github.com/dhkim/storefront-gateway/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Subscribers only listen;
	// anything beyond a pong is unexpected.
	maxMessageSize = 4 * 1024
)

// Client is one subscribed WebSocket connection.
type Client struct {
	Hub   *Hub
	Conn  *websocket.Conn
	Owner string
	Send  chan []byte
}

// NewClient wraps an upgraded connection for the given owner key.
func NewClient(hub *Hub, conn *websocket.Conn, owner string) *Client {
	return &Client{
		Hub:   hub,
		Conn:  conn,
		Owner: owner,
		Send:  make(chan []byte, 16),
	}
}

// ReadPump drains the connection until it closes. Cart update subscribers
// never send application messages; the pump exists to process control
// frames and detect disconnects.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket read error", map[string]interface{}{
					"owner": c.Owner,
					"error": err.Error(),
				})
			}
			return
		}
	}
}

// WritePump forwards queued notifications to the peer and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("Failed to write cart update", map[string]interface{}{
					"owner": c.Owner,
					"error": err.Error(),
				})
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
