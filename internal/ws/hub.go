package ws

import (
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

func (c *client) writeControl(messageType int, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(messageType, nil, deadline)
}

// hub fans messages out to the dashboards of one partner.
type hub struct {
	mu   sync.RWMutex
	subs map[string]map[*client]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*client]struct{})}
}

func (h *hub) subscribe(partnerID string, c *client) (unsubscribe func()) {
	key := strings.TrimSpace(partnerID)
	if key == "" {
		return func() {}
	}

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*client]struct{})
	}
	h.subs[key][c] = struct{}{}
	h.mu.Unlock()

	return func() { h.drop(key, c) }
}

func (h *hub) drop(key string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.subs[key]
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.subs, key)
	}
}

func (h *hub) broadcast(partnerID string, message any) int {
	key := strings.TrimSpace(partnerID)
	if key == "" {
		return 0
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.subs[key]))
	for c := range h.subs[key] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range clients {
		if err := c.writeJSON(message); err != nil {
			_ = c.conn.Close()
			h.drop(key, c)
			continue
		}
		sent++
	}
	return sent
}

func (h *hub) count(partnerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[strings.TrimSpace(partnerID)])
}
