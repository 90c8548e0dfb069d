package server

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"github.com/ytget/yt-downloader-web/internal/model"
)

// DefaultWriteTimeout bounds a single websocket write
const DefaultWriteTimeout = 10 * time.Second

// ErrSessionNotFound is returned when emitting to a session that is not connected
var ErrSessionNotFound = errors.New("session not found")

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Hub maps session ids to websocket connections and delivers events to
// exactly one session at a time.
type Hub struct {
	mu           sync.RWMutex
	clients      map[string]*client
	writeTimeout time.Duration
	logger       hclog.Logger
}

// NewHub creates an empty hub
func NewHub(logger hclog.Logger) *Hub {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Hub{
		clients:      make(map[string]*client),
		writeTimeout: DefaultWriteTimeout,
		logger:       logger,
	}
}

// Register attaches conn to sessionID, replacing any previous connection
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[sessionID] = &client{conn: conn}
	h.logger.Debug("session registered", "session", sessionID, "sessions", len(h.clients))
}

// Unregister detaches the session. The connection itself is not closed.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, sessionID)
	h.logger.Debug("session unregistered", "session", sessionID, "sessions", len(h.clients))
}

// Sessions returns the number of connected sessions
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Emit validates ev and writes it to the session's connection
func (h *Hub) Emit(sessionID string, ev model.Event) error {
	envelope, err := model.NewEnvelope(ev)
	if err != nil {
		return err
	}

	h.mu.RLock()
	c, ok := h.clients[sessionID]
	h.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	return c.conn.WriteJSON(envelope)
}

// CloseAll sends a close frame to every session and drops them
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, c := range clients {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = c.conn.Close()
		c.writeMu.Unlock()
	}
}
