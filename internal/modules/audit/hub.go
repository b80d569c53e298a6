package audit

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// client serializes writes to one connection; gorilla allows a single writer.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Hub tracks live event-feed connections per tenant.
type Hub struct {
	tenants map[string]map[*client]struct{}
	mutex   sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{tenants: make(map[string]map[*client]struct{})}
}

func (h *Hub) register(tenantID string, conn *websocket.Conn) *client {
	c := &client{conn: conn}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.tenants[tenantID] == nil {
		h.tenants[tenantID] = make(map[*client]struct{})
	}
	h.tenants[tenantID][c] = struct{}{}
	return c
}

func (h *Hub) unregister(tenantID string, c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	conns := h.tenants[tenantID]
	if _, ok := conns[c]; !ok {
		return
	}
	_ = c.conn.Close()
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.tenants, tenantID)
	}
}

// Broadcast writes message to every subscriber of tenantID and drops
// connections that fail. It returns the number of successful deliveries.
func (h *Hub) Broadcast(tenantID string, message interface{}) int {
	h.mutex.RLock()
	targets := make([]*client, 0, len(h.tenants[tenantID]))
	for c := range h.tenants[tenantID] {
		targets = append(targets, c)
	}
	h.mutex.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.writeJSON(message); err != nil {
			h.unregister(tenantID, c)
			continue
		}
		sent++
	}
	return sent
}

func (h *Hub) Subscribers(tenantID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.tenants[tenantID])
}

func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for tenantID, conns := range h.tenants {
		for c := range conns {
			_ = c.conn.Close()
		}
		delete(h.tenants, tenantID)
	}
}
