package floor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"floorstate/internal/common/logger"
	"floorstate/internal/domain"
	floorcore "floorstate/internal/floor"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // displays live on the restaurant LAN
	},
}

// frame is the envelope pushed to display clients: either a full floor
// snapshot or a single alert.
type frame struct {
	Type   string             `json:"type"` // "floor" | "alert"
	Tables []domain.LiveTable `json:"tables,omitempty"`
	Alert  *floorcore.Alert   `json:"alert,omitempty"`
}

// Hub fans the session's snapshots and alerts out to every connected
// websocket client. Slow clients are dropped rather than allowed to
// stall the broadcast.
type Hub struct {
	lg *logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	latest  []byte // last floor frame, replayed to new clients
}

func NewHub(lg *logger.Logger) *Hub {
	return &Hub{lg: lg, clients: make(map[*client]struct{})}
}

// BroadcastSnapshot pushes the aggregated floor view to every client.
func (h *Hub) BroadcastSnapshot(tables []domain.LiveTable) {
	b, err := json.Marshal(frame{Type: "floor", Tables: tables})
	if err != nil {
		h.lg.Error("snapshot_encode_failed", err, nil)
		return
	}
	h.mu.Lock()
	h.latest = b
	for c := range h.clients {
		c.trySend(b)
	}
	h.mu.Unlock()
}

// BroadcastAlert pushes one notification cue. Non-blocking: this is
// the notifier's sink and must never hold up event application.
func (h *Hub) BroadcastAlert(a floorcore.Alert) {
	b, err := json.Marshal(frame{Type: "alert", Alert: &a})
	if err != nil {
		h.lg.Error("alert_encode_failed", err, nil)
		return
	}
	h.mu.RLock()
	for c := range h.clients {
		c.trySend(b)
	}
	h.mu.RUnlock()
}

// HandleWS upgrades the request and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.lg.Error("ws_upgrade_failed", err, nil)
		return
	}
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBufferSize)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.latest != nil {
		c.trySend(h.latest)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.lg.Debug("ws_client_connected", map[string]any{"clients": n})

	go c.writePump()
	go c.readPump()
}

// CloseAll tears down every client connection; used on shutdown.
func (h *Hub) CloseAll(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	dropped atomic.Bool
}

// trySend queues a frame without blocking. A full buffer marks the
// client for disconnect; the write pump closes it.
func (c *client) trySend(b []byte) {
	if c.dropped.Load() {
		return
	}
	select {
	case c.send <- b:
	default:
		c.dropped.Store(true)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.drop(c)
				return
			}
			if c.dropped.Load() {
				c.hub.drop(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.drop(c)
				return
			}
		}
	}
}

// readPump discards client messages; the display surface is push-only.
// It exists to service pongs and detect closed connections.
func (c *client) readPump() {
	defer func() {
		c.hub.drop(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
