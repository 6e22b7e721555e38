package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is read-only market data; any origin may subscribe.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is one message on the live feed.
type Event struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans refresh events out to connected websocket clients. Clients that
// cannot keep up are dropped rather than allowed to stall the broadcaster.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool
	logger  zerolog.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		logger:  log.With().Str("component", "ws_hub").Logger(),
	}
}

// BroadcastEvent sends an event to every connected client. Safe for
// concurrent use; never blocks on a slow client.
func (h *Hub) BroadcastEvent(event string, payload interface{}) {
	data, err := json.Marshal(Event{
		Event:     event,
		Timestamp: time.Now(),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("failed to marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Send buffer full; drop the client.
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHandler handles GET requests upgrading to the websocket live feed
func (h *Hub) ServeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		cl := &client{
			conn: conn,
			send: make(chan []byte, sendBufferSize),
		}

		h.mu.Lock()
		h.clients[cl] = true
		count := len(h.clients)
		h.mu.Unlock()

		h.logger.Info().Int("clients", count).Msg("websocket client connected")

		go h.writePump(cl)
		go h.readPump(cl)
	}
}

// writePump drains the client's send queue onto the wire.
func (h *Hub) writePump(cl *client) {
	defer cl.conn.Close()
	for data := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(cl)
			return
		}
	}
}

// readPump discards inbound messages; its job is to notice the close.
func (h *Hub) readPump(cl *client) {
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			h.remove(cl)
			cl.conn.Close()
			return
		}
	}
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[cl] {
		delete(h.clients, cl)
		close(cl.send)
		h.logger.Info().Int("clients", len(h.clients)).Msg("websocket client disconnected")
	}
}
