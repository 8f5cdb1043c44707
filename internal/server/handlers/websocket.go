// internal/server/handlers/websocket.go

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"membitpulse/internal/domain/trend"
)

// TrendFeed publishes trend snapshots as they are refreshed
type TrendFeed interface {
	Subscribe() (<-chan trend.Response, func())
}

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 4096,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the feed is read-only and carries no credentials
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// feedMessage is the frame sent for every snapshot
type feedMessage struct {
	Type string         `json:"type"`
	Data trend.Response `json:"data"`
}

// feedClient is one connected dashboard
type feedClient struct {
	conn    *websocket.Conn
	updates <-chan trend.Response
	cancel  func()
	config  WebSocketConfig
	once    sync.Once
}

// TrendWebSocketHandler streams trend snapshots. The latest snapshot is sent
// on connect and every refresh after that.
func TrendWebSocketHandler(feed TrendFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if feed == nil {
			respondWithError(w, http.StatusServiceUnavailable, "Live feed disabled", nil)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("[WebSocket] failed to upgrade", "error", err)
			return
		}

		updates, cancel := feed.Subscribe()
		client := &feedClient{
			conn:    conn,
			updates: updates,
			cancel:  cancel,
			config:  DefaultWebSocketConfig(),
		}

		slog.Debug("[WebSocket] feed client connected", "remote", r.RemoteAddr)

		go client.writePump()
		go client.readPump()
	}
}

// readPump discards inbound frames and keeps the read deadline alive
func (c *feedClient) readPump() {
	defer c.closeConnection()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("[WebSocket] read error", "error", err)
			}
			return
		}
	}
}

// writePump pumps snapshots from the feed to the WebSocket connection
func (c *feedClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case resp, ok := <-c.updates:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				// The feed closed the subscription
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			message, err := json.Marshal(feedMessage{Type: "trends", Data: resp})
			if err != nil {
				slog.Error("[WebSocket] failed to encode snapshot", "error", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeConnection releases the subscription and closes the socket once
func (c *feedClient) closeConnection() {
	c.once.Do(func() {
		c.cancel()
		c.conn.Close()
		slog.Debug("[WebSocket] feed client disconnected")
	})
}
