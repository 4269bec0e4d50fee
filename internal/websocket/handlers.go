// internal/websocket/handlers.go
// WebSocket connection entry point for the spectator feed.

package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleConnection upgrades a spectator's HTTP request to a websocket and
// registers it with hub. Spectators start unsubscribed and send a
// {"type":"subscribe","data":{"league_id":"..."}} message to start
// receiving that league's events.
func HandleConnection(hub *Hub, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Info("spectator upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			hub:     hub,
			conn:    conn,
			send:    make(chan []byte, 256),
			leagues: make([]string, 0),
			logger:  logger,
		}

		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}
