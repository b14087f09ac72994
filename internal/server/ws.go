package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mindreader/internal/log"
	"github.com/ayusman/mindreader/internal/publish"
)

const (
	writeWait = time.Second

	// sendBuffer is the number of updates queued per client before it is
	// considered too slow and dropped.
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// stateClient is one websocket connection. Only its write loop writes
// data frames to conn.
type stateClient struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *stateClient) writeLoop() {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.conn.Close()
			return
		}
	}
}

// StateHub pushes estimator updates to websocket clients. New clients
// receive the most recent update immediately.
type StateHub struct {
	clients map[*stateClient]bool
	last    []byte
	closed  bool
	mu      sync.Mutex
}

// NewStateHub creates an empty hub.
func NewStateHub() *StateHub {
	return &StateHub{
		clients: make(map[*stateClient]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StateHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &stateClient{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.clients[c] = true
	if h.last != nil {
		c.send <- h.last
	}
	h.mu.Unlock()

	go c.writeLoop()
	defer h.remove(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Broadcast queues an update for every connected client without blocking on
// the network. Clients whose queue is full are dropped.
func (h *StateHub) Broadcast(u publish.Update) {
	msg, err := json.Marshal(u)
	if err != nil {
		log.Error("failed to encode state update", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = msg
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Warn("dropping slow websocket client", "remote", c.conn.RemoteAddr().String())
			h.dropLocked(c)
			c.conn.Close()
		}
	}
}

// Clients returns the number of connected clients.
func (h *StateHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *StateHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		h.dropLocked(c)
		c.conn.Close()
	}
}

func (h *StateHub) remove(c *stateClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

// dropLocked unregisters c and stops its write loop. h.mu must be held.
func (h *StateHub) dropLocked(c *stateClient) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
}
