package render

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Talendar/neuroevolutionary-snake/internal/env"
	"github.com/Talendar/neuroevolutionary-snake/internal/player"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// message is what clients send: {"type": "key", "key": "up"}.
type message struct {
	Type string `json:"type"`
	Key  string `json:"key"`
}

// Hub streams snapshots to websocket clients and collects their key presses.
type Hub struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	events  []player.InputEvent
	rows    int
	cols    int
}

// NewHub creates a hub for a board of the given size.
func NewHub(rows, cols int, log *slog.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[*client]struct{}),
		rows:    rows,
		cols:    cols,
	}
}

// ServeHTTP upgrades the connection and reads key messages until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	_ = c.send(map[string]interface{}{"type": "config", "rows": h.rows, "cols": h.cols})

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type != "key" {
			continue
		}
		a, err := env.ParseAction(msg.Key)
		if err != nil {
			h.log.Debug("ignoring key", "key", msg.Key)
			continue
		}
		h.mu.Lock()
		h.events = append(h.events, player.InputEvent{Key: a})
		h.mu.Unlock()
	}

	h.drop(c)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.conn.Close()
}

// Events drains the key presses received since the last call.
func (h *Hub) Events() []player.InputEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	ev := h.events
	h.events = nil
	return ev
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Render broadcasts the snapshot. Clients that fail to receive it are
// dropped; the game never stops because of a viewer.
func (h *Hub) Render(s env.Snapshot) error {
	h.mu.Lock()
	list := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		list = append(list, c)
	}
	h.mu.Unlock()

	frame := struct {
		Type string `json:"type"`
		env.Snapshot
	}{Type: "frame", Snapshot: s}

	for _, c := range list {
		if err := c.send(frame); err != nil {
			h.log.Warn("client send error", "err", err)
			h.drop(c)
		}
	}
	return nil
}
