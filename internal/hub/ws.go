package hub

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames and the occasional ping text
	maxMessageSize = 4096
)

// WebSocketHandler upgrades requests and streams hub events as text frames
type WebSocketHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a handler. checkOrigin may be nil to accept
// same-origin requests only.
func NewWebSocketHandler(h *Hub, checkOrigin func(r *http.Request) bool) *WebSocketHandler {
	return &WebSocketHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (wh *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wh.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		wh.hub.logger.Warn("websocket upgrade failed", zap.Error(err), zap.String("remoteAddr", r.RemoteAddr))
		return
	}

	client := newClient("ws")
	if !wh.hub.join(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go wh.writePump(conn, client)
	wh.readPump(conn, client)
}

// readPump drains the connection until the peer goes away
func (wh *WebSocketHandler) readPump(conn *websocket.Conn, client *Client) {
	defer func() {
		wh.hub.leave(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				wh.hub.logger.Warn("websocket read error", zap.String("client", client.id), zap.Error(err))
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (wh *WebSocketHandler) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
