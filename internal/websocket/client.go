// internal/websocket/client.go
// WebSocket client connection handler for the spectator feed.

package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client represents one spectator websocket connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	leagues []string
	logger  *zap.Logger
}

// ClientMessage is a control message sent by a spectator (subscribe to or
// drop a league's event stream).
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Info("spectator connection closed unexpectedly", zap.Error(err))
			}
			break
		}

		switch msg.Type {
		case "subscribe":
			c.handleSubscribe(msg)
		case "unsubscribe":
			c.handleUnsubscribe(msg)
		case "ping":
			c.handlePing()
		default:
			c.logger.Debug("unknown spectator message type", zap.String("type", msg.Type))
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleSubscribe(msg ClientMessage) {
	var data struct {
		LeagueID string `json:"league_id"`
	}
	if err := json.Unmarshal(msg.Data, &data); err != nil || data.LeagueID == "" {
		return
	}

	c.hub.Subscribe(c, data.LeagueID)
	c.reply(Message{Type: "subscribed", LeagueID: data.LeagueID})
}

func (c *Client) handleUnsubscribe(msg ClientMessage) {
	var data struct {
		LeagueID string `json:"league_id"`
	}
	if err := json.Unmarshal(msg.Data, &data); err != nil || data.LeagueID == "" {
		return
	}

	c.hub.Unsubscribe(c, data.LeagueID)
	c.reply(Message{Type: "unsubscribed", LeagueID: data.LeagueID})
}

func (c *Client) handlePing() {
	c.reply(Message{Type: "pong", Data: map[string]int64{"timestamp": time.Now().Unix()}})
}

func (c *Client) reply(msg Message) {
	if data, err := json.Marshal(msg); err == nil {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (c *Client) close() {
	close(c.send)
}
