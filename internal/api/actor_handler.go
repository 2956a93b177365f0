package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"bloodlink/internal/store"
)

// ActorHandler handles the one actor mutation the engine owns: updating
// the notification channel token.
type ActorHandler struct {
	repo   store.ActorRepository
	logger *slog.Logger
}

// NewActorHandler creates a new actor handler.
func NewActorHandler(repo store.ActorRepository, logger *slog.Logger) *ActorHandler {
	return &ActorHandler{
		repo:   repo,
		logger: logger,
	}
}

// updatePushTokenRequest is the JSON body for a push-token update.
// An empty token clears the channel and the actor stops being notified.
type updatePushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// UpdatePushToken handles PUT /v1/actors/:id/push-token
// Actors may only update their own token.
func (h *ActorHandler) UpdatePushToken(c *fiber.Ctx) error {
	callerID := actorID(c)
	if callerID == "" {
		return BadRequest(c, "X-Actor-ID header is required")
	}

	id := c.Params("id")
	if id != callerID {
		return Forbidden(c, "actors may only update their own push token")
	}

	var req updatePushTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, "invalid request body")
	}

	if err := h.repo.UpdatePushToken(c.Context(), id, req.PushToken); err != nil {
		h.logger.Error("failed to update push token", "actorID", id, "error", err)
		return DomainError(c, err, "failed to update push token")
	}

	return NoContent(c)
}
