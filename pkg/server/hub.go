package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/elektroapp/elektrodash/pkg/dashboard"
	"github.com/elektroapp/elektrodash/pkg/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	// viewers may be served from any local origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// viewSource is the part of the coordinator the hub streams from.
type viewSource interface {
	Subscribe() (<-chan struct{}, func())
	View() dashboard.View
}

// client is one connected WebSocket viewer.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks WebSocket clients and broadcasts view snapshots to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues msg for every client. Clients whose buffer is full skip
// it; the next snapshot supersedes it anyway.
func (h *Hub) Broadcast(ctx context.Context, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Ctx(ctx).WarnContext(ctx, "client buffer full, dropping snapshot")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

// Run broadcasts a fresh snapshot of src after every change until ctx is
// done.
func (h *Hub) Run(ctx context.Context, src viewSource) {
	changes, unsubscribe := src.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if h.ClientCount() == 0 {
				continue
			}
			msg, err := json.Marshal(src.View())
			if err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to encode view", slog.Any("error", err))
				continue
			}
			h.Broadcast(ctx, msg)
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.serveWS(w, r, s.dash)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request, src viewSource) {
	ctx := r.Context()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		log.Ctx(ctx).WarnContext(ctx, "websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	msg, err := json.Marshal(src.View())
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to encode view", slog.Any("error", err))
		conn.Close()
		return
	}
	c.send <- msg
	s.hub.register(c)

	go c.writePump()
	c.readPump(ctx)
}

// readPump only consumes control frames. It returns when the connection is
// closed.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Ctx(ctx).DebugContext(ctx, "websocket read error", slog.Any("error", err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
