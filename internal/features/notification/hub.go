package notification

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// Hub fans live payloads out to websocket subscribers. Connections subscribe
// under keys: "user:<id>" for personal delivery and "role:<role>" for
// role-addressed workflow tasks. Delivery is fire-and-forget; a failed write
// drops the connection.
type Hub struct {
	mu     sync.Mutex
	conns  map[string]map[*websocket.Conn]bool
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  map[string]map[*websocket.Conn]bool{},
		logger: logger,
	}
}

func UserKey(userID string) string { return "user:" + userID }
func RoleKey(role string) string   { return "role:" + role }

func (h *Hub) Subscribe(key string, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[key] == nil {
		h.conns[key] = map[*websocket.Conn]bool{}
	}
	h.conns[key][c] = true
}

func (h *Hub) Unsubscribe(keys []string, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, key := range keys {
		delete(h.conns[key], c)
		if len(h.conns[key]) == 0 {
			delete(h.conns, key)
		}
	}
}

// Push marshals payload once and writes it to every subscriber of key. The
// hub lock doubles as the per-connection write lock.
func (h *Hub) Push(key string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal websocket payload", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns[key] {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("dropping websocket subscriber",
				zap.String("key", key),
				zap.Error(err))
			delete(h.conns[key], c)
		}
	}
	if len(h.conns[key]) == 0 {
		delete(h.conns, key)
	}
}
