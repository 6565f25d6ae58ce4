package system

import (
	"context"
	"time"

	"go-grc/internal/config"
	"go-grc/internal/database"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct {
	config *config.Config
	db     *database.MongodbDB
}

func NewHealthController(cfg *config.Config, db *database.MongodbDB) *HealthController {
	return &HealthController{
		config: cfg,
		db:     db,
	}
}

// Health godoc
// @Summary Liveness and database reachability probe
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string "Database unreachable"
// @Router /api/health [get]
func (c *HealthController) Health(ctx *fiber.Ctx) error {
	pingCtx, cancel := context.WithTimeout(ctx.UserContext(), 2*time.Second)
	defer cancel()

	if err := c.db.Client.Ping(pingCtx, nil); err != nil {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"error":  err.Error(),
		})
	}

	return ctx.JSON(fiber.Map{
		"status":      "ok",
		"app":         c.config.AppId,
		"environment": c.config.Environment,
	})
}
