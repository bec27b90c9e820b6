package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/CarlosLisboa01/Novo-Task-sub000/pkg/events"
)

// Hub relays core events to every connected dashboard over WebSocket.
type Hub struct {
	mu          sync.Mutex
	connections map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{connections: make(map[*websocket.Conn]bool)}
}

var upgrader = websocket.Upgrader{
	// The API is same-origin behind the dashboard; CORS is handled at the
	// HTTP layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the request and keeps the connection registered until the
// client goes away. Clients only listen; inbound frames are drained and
// dropped.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.connections[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.connections, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends the event to every connection, dropping the ones that
// fail. Subscribed directly on the core bus.
func (h *Hub) Broadcast(e events.Event) {
	message, err := json.Marshal(e)
	if err != nil {
		log.Printf("Could not encode event for broadcast: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.connections {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			conn.Close()
			delete(h.connections, conn)
		}
	}
}
