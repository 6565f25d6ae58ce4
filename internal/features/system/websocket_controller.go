package system

import (
	"go-grc/internal/features/notification"
	"go-grc/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

type WebSocketController struct {
	Hub    *notification.Hub
	Logger *zap.Logger
}

func NewWebSocketController(hub *notification.Hub, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{
		Hub:    hub,
		Logger: logger,
	}
}

// HandleWebSocket subscribes the authenticated connection to its personal
// channel and its role channel, then blocks reading until the peer goes
// away. Inbound messages are ignored; the socket is push-only.
func (h *WebSocketController) HandleWebSocket(c *websocket.Conn) {
	claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		c.Close()
		return
	}

	keys := []string{
		notification.UserKey(claims.UserID),
		notification.RoleKey(claims.Role),
	}
	for _, key := range keys {
		h.Hub.Subscribe(key, c)
	}
	defer h.Hub.Unsubscribe(keys, c)

	h.Logger.Debug("websocket subscriber connected",
		zap.String("user_id", claims.UserID),
		zap.String("role", claims.Role))

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}
