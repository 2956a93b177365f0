package api

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/store"
)

// defaultNotificationLimit bounds the notification history page size.
const defaultNotificationLimit = 50

// NotificationHandler handles HTTP requests for the notification log.
type NotificationHandler struct {
	repo   store.NotificationRepository
	logger *slog.Logger
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(repo store.NotificationRepository, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		repo:   repo,
		logger: logger,
	}
}

// List handles GET /v1/notifications
// Returns the calling actor's most recent notifications, newest first.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	recipientID := actorID(c)
	if recipientID == "" {
		return BadRequest(c, "X-Actor-ID header is required")
	}

	limit := defaultNotificationLimit
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			return BadRequest(c, "limit must be a positive integer")
		}
		if parsed < limit {
			limit = parsed
		}
	}

	notifications, err := h.repo.ListByRecipient(c.Context(), recipientID, limit)
	if err != nil {
		h.logger.Error("failed to list notifications", "recipientID", recipientID, "error", err)
		return InternalError(c, "failed to list notifications")
	}

	return Success(c, notifications)
}

// MarkRead handles POST /v1/notifications/:id/read
// Only the notification's recipient may mark it read.
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	callerID := actorID(c)
	if callerID == "" {
		return BadRequest(c, "X-Actor-ID header is required")
	}

	id := c.Params("id")
	notification, err := h.repo.GetByID(c.Context(), id)
	if err != nil {
		h.logger.Error("failed to get notification", "notificationID", id, "error", err)
		return DomainError(c, err, "failed to get notification")
	}
	if notification.RecipientID != callerID {
		return Forbidden(c, "notification belongs to another recipient")
	}

	if err := h.repo.MarkRead(c.Context(), id); err != nil {
		h.logger.Error("failed to mark notification read", "notificationID", id, "error", err)
		return DomainError(c, err, "failed to mark notification read")
	}

	return NoContent(c)
}
