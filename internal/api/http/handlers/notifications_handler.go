package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-tracker/internal/api/dto"
	"github.com/spec-kit/incident-tracker/internal/service"
	apperrors "github.com/spec-kit/incident-tracker/pkg/util"
)

// NotificationsHandler exposes the notification log.
type NotificationsHandler struct {
	service *service.NotificationService
}

func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// ListRecent GET /notifications?hours=N.
func (h *NotificationsHandler) ListRecent(c *fiber.Ctx) error {
	hours := 0
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return apperrors.NewValidationError("hours must be an integer", nil)
		}
		hours = parsed
	}
	items, err := h.service.GetRecentNotifications(c.UserContext(), hours)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewNotificationResponses(items)})
}

// ListUnacknowledged GET /notifications/unacknowledged.
func (h *NotificationsHandler) ListUnacknowledged(c *fiber.Ctx) error {
	items, err := h.service.GetUnacknowledgedNotifications(c.UserContext())
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewNotificationResponses(items)})
}

// Acknowledge POST /notifications/:id/acknowledge.
func (h *NotificationsHandler) Acknowledge(c *fiber.Ctx) error {
	id := c.Params("id")
	ok, err := h.service.AcknowledgeNotification(c.UserContext(), id)
	if err != nil {
		return mapServiceError(err)
	}
	if !ok {
		return mapServiceError(service.ErrNotificationNotFound)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"id": id, "acknowledged": true}})
}
