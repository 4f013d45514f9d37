// Package hub streams topology events to browsers over Server-Sent Events
// and WebSockets.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	clientBufferSize = 64
	keepAlivePeriod  = 30 * time.Second
)

// Client represents a connected SSE or WebSocket client
type Client struct {
	id     string
	kind   string
	events chan []byte
}

func newClient(kind string) *Client {
	return &Client{
		id:     uuid.NewString(),
		kind:   kind,
		events: make(chan []byte, clientBufferSize),
	}
}

// Hub manages streaming client connections
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan interface{}
	done       chan struct{}
	logger     *zap.Logger
}

// New creates a new Hub
func New(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan interface{}, 256),
		done:       make(chan struct{}),
		logger:     logger.Named("hub"),
	}
}

// Run starts the hub's event loop and blocks until ctx is cancelled.
// All client streams are closed on return.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.events)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected",
				zap.String("client", client.id),
				zap.String("kind", client.kind),
				zap.Int("total", total),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.events)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", zap.String("client", client.id), zap.Int("total", total))

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal event", zap.Error(err))
				continue
			}

			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.events <- data:
				default:
					// Client is slow, skip this message
					h.logger.Warn("client is slow, skipping message", zap.String("client", client.id))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// join registers a client; it returns false once the hub has stopped
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast sends an event to all connected clients
func (h *Hub) Broadcast(event interface{}) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles SSE connections
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := newClient("sse")
	if !h.join(client) {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.leave(client)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepAlivePeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.events:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
