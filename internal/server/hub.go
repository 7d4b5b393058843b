package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/rpn/internal/engine"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	sendBuffer = 64
)

// handleWatch upgrades to a websocket, sends the current snapshot and then
// every snapshot produced by a successful mutation.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.backend.State(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade watch websocket", "error", err)
		return
	}

	c := newClient(conn, s.logger)
	if msg, err := json.Marshal(snap); err == nil {
		c.send <- msg
	}
	s.hub.Register(c)
	go c.writeLoop()
	c.readLoop(func() {
		s.hub.Unregister(c)
	})
}

// hub fans snapshots out to watch clients.
type hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
	logger  *slog.Logger
}

func newHub(logger *slog.Logger) *hub {
	return &hub{clients: make(map[*client]struct{}), logger: logger}
}

func (h *hub) Register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		c.Close()
		return
	}
	h.clients[c] = struct{}{}
}

func (h *hub) Unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.Close()
}

// Publish sends snap to every client. Slow readers are dropped.
func (h *hub) Publish(snap engine.Snapshot) {
	msg, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error("encode snapshot", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Info("dropping watch client for slow reader")
			go h.Unregister(c)
		}
	}
}

// Len returns the number of connected clients.
func (h *hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.Close()
		delete(h.clients, c)
	}
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger
	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn, logger *slog.Logger) *client {
	return &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: logger,
	}
}

func (c *client) writeLoop() {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.logger.Debug("write watch message", "error", err)
			return
		}
	}
}

func (c *client) readLoop(onClose func()) {
	defer func() {
		if onClose != nil {
			onClose()
		}
	}()
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}
