// Package monitor is an optional websocket broadcast hub for modem events:
// decoded messages and stat snapshots pushed to any connected debug client.
// It is off by default; SPEC_FULL.md's monitor is a structured equivalent of
// the teacher's stdout "[SYNC DETECTED]"-style logging, grounded on
// websocket.go's upgrader and chat_websocket.go's broadcast-to-all pattern.
package monitor

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client wraps one websocket connection with a write mutex, mirroring
// websocket.go's wsConn (one goroutine-safe writer per connection).
type client struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

// Hub broadcasts modem events to every connected client. One Hub serves one
// Modem; it holds no modem state itself.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub returns an empty broadcast hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// ServeHTTP upgrades the request to a websocket and registers the connection
// until it closes or errors, mirroring websocket.go's Upgrade-then-register
// handler shape.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Monitor] upgrade failed: %v", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	log.Printf("[Monitor] client %s connected (%d total)", c.id, h.count())

	defer func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()
		conn.Close()
		log.Printf("[Monitor] client %s disconnected (%d total)", c.id, h.count())
	}()

	// Monitor clients are read-only observers; drain and discard any
	// message until the read fails, which is how a closed connection is
	// noticed and unregistered.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast sends v to every connected client, dropping any that errors
// (it will be cleaned up by its own ServeHTTP goroutine).
func (h *Hub) broadcast(v interface{}) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.writeJSON(v); err != nil {
			log.Printf("[Monitor] write to client %s failed: %v", c.id, err)
		}
	}
}

// MessageEvent is broadcast once per decoded message.
type MessageEvent struct {
	Type      string `json:"type"`
	Plaintext string `json:"plaintext"`
	Priority  string `json:"priority"`
	Timestamp string `json:"timestamp"`
}

// StatsEvent is broadcast periodically with a stats snapshot.
type StatsEvent struct {
	Type        string `json:"type"`
	MsgsOK      uint64 `json:"msgs_ok"`
	MsgsFail    uint64 `json:"msgs_fail"`
	CRCFail     uint64 `json:"crc_fail"`
	HammingFail uint64 `json:"hamming_fail"`
	SymFail     uint64 `json:"sym_fail"`
}

// BroadcastMessage notifies every connected client of a decoded message.
func (h *Hub) BroadcastMessage(plaintext, priority string) {
	h.broadcast(MessageEvent{
		Type:      "message",
		Plaintext: plaintext,
		Priority:  priority,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// BroadcastStats notifies every connected client of a stats snapshot.
func (h *Hub) BroadcastStats(msgsOK, msgsFail, crcFail, hammingFail, symFail uint64) {
	h.broadcast(StatsEvent{
		Type:        "stats",
		MsgsOK:      msgsOK,
		MsgsFail:    msgsFail,
		CRCFail:     crcFail,
		HammingFail: hammingFail,
		SymFail:     symFail,
	})
}
