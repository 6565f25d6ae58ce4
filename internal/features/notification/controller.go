package notification

import (
	"strconv"

	"go-grc/internal/common/apperr"
	"go-grc/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type NotificationController struct {
	service NotificationService
}

func NewNotificationController(service NotificationService) *NotificationController {
	return &NotificationController{
		service: service,
	}
}

func respondErr(ctx *fiber.Ctx, err error) error {
	return ctx.Status(apperr.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
}

// List godoc
// @Summary List the caller's notifications, newest first
// @Tags notifications
// @Produce json
// @Success 200 {array} Notification
// @Router /api/notifications [get]
func (c *NotificationController) List(ctx *fiber.Ctx) error {
	claims, ok := middleware.Claims(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authentication"})
	}

	page, _ := strconv.ParseInt(ctx.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(ctx.Query("limit", "10"), 10, 64)

	notifications, total, err := c.service.GetUserNotifications(ctx.UserContext(), claims.UserID, page, limit)
	if err != nil {
		return respondErr(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"data":  notifications,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetUnreadCount godoc
// @Summary Count the caller's unread notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]int64
// @Router /api/notifications/unread-count [get]
func (c *NotificationController) GetUnreadCount(ctx *fiber.Ctx) error {
	claims, ok := middleware.Claims(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authentication"})
	}

	count, err := c.service.GetUnreadCount(ctx.UserContext(), claims.UserID)
	if err != nil {
		return respondErr(ctx, err)
	}

	return ctx.JSON(fiber.Map{"count": count})
}

// MarkAsRead godoc
// @Summary Mark one notification as read
// @Tags notifications
// @Param id path string true "Notification ID"
// @Success 200 {object} map[string]string
// @Router /api/notifications/{id}/read [put]
func (c *NotificationController) MarkAsRead(ctx *fiber.Ctx) error {
	claims, ok := middleware.Claims(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authentication"})
	}

	if err := c.service.MarkAsRead(ctx.UserContext(), ctx.Params("id"), claims.UserID); err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}

// MarkAllAsRead godoc
// @Summary Mark all of the caller's notifications as read
// @Tags notifications
// @Success 200 {object} map[string]string
// @Router /api/notifications/mark-all-read [post]
func (c *NotificationController) MarkAllAsRead(ctx *fiber.Ctx) error {
	claims, ok := middleware.Claims(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authentication"})
	}

	if err := c.service.MarkAllAsRead(ctx.UserContext(), claims.UserID); err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(fiber.Map{"status": "success"})
}
