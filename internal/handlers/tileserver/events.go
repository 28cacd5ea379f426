package tileserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"globe-desktop/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	// the Wails webview origin is wails://wails
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Event is one message pushed to websocket clients
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data,omitempty"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to connected websocket clients. A client that cannot
// keep up is dropped rather than blocking the broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
	log     *zap.Logger
}

// NewHub creates an empty hub
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		log:     logger.OrNop(log),
	}
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to every client
func (h *Hub) Broadcast(name string, data interface{}) {
	msg, err := json.Marshal(Event{Name: name, Data: data})
	if err != nil {
		h.log.Error("[Events] failed to encode event", zap.String("event", name), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("[Events] dropping slow client", zap.String("client", c.id))
			h.removeLocked(c)
		}
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) add(c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) handleWebSocket(ec echo.Context) error {
	conn, err := upgrader.Upgrade(ec.Response(), ec.Request(), nil)
	if err != nil {
		h.log.Warn("[Events] websocket upgrade failed", zap.Error(err))
		return nil
	}

	c := &wsClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.add(c) {
		conn.Close()
		return nil
	}
	h.log.Debug("[Events] client connected", zap.String("client", c.id))

	go c.writeLoop()

	// Inbound messages are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	h.log.Debug("[Events] client disconnected", zap.String("client", c.id))
	return nil
}

func (c *wsClient) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
