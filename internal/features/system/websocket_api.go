package system

import (
	"go-grc/internal/common/api"
	"go-grc/internal/config"
	"go-grc/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type WebSocketApi struct {
	Controller *WebSocketController
	config     *config.Config
}

func NewWebSocketApi(controller *WebSocketController, cfg *config.Config) api.Route {
	return &WebSocketApi{
		Controller: controller,
		config:     cfg,
	}
}

func (h *WebSocketApi) Setup(app *fiber.App) {
	app.Use("/api/ws", middleware.AuthMiddleware(h.config.SkipAuth), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/api/ws", websocket.New(h.Controller.HandleWebSocket))
}
