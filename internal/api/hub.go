package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/opsdesk/console-core/internal/presentation"
)

// maxConnections caps concurrent websocket clients per process
const maxConnections = 32

// Hub fans presentation updates out to connected websocket clients
type Hub struct {
	mu          sync.Mutex
	connections map[*websocket.Conn]bool
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Serve upgrades an HTTP request and registers the connection until the
// client disconnects
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	if len(h.connections) >= maxConnections {
		h.mu.Unlock()
		h.logger.Warn("Max WebSocket connections reached, rejecting client")
		_ = conn.Close()
		return
	}
	h.connections[conn] = true
	total := len(h.connections)
	h.mu.Unlock()

	h.logger.Info("WebSocket client connected", zap.Int("total", total))

	// Drain reads so we notice the close; clients never send payloads.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()
}

// Broadcast sends the presentation to every connected client, dropping
// connections that fail to write
func (h *Hub) Broadcast(pres presentation.Presentation) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.connections {
		if err := conn.WriteJSON(pres); err != nil {
			h.logger.Error("Failed to send WebSocket update", zap.Error(err))
			_ = conn.Close()
			delete(h.connections, conn)
		}
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.connections {
		_ = conn.Close()
		delete(h.connections, conn)
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connections[conn] {
		_ = conn.Close()
		delete(h.connections, conn)
		h.logger.Info("WebSocket client disconnected", zap.Int("remaining", len(h.connections)))
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections)
}
