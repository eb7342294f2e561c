package handler

import (
	"sheetpulse/internal/apperr"
	"sheetpulse/pkg/queue"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// InternalHandler serves the internal/trigger-sync endpoint a cron or sheet
// webhook relay calls, authenticated by a shared secret rather than a
// caller identity — there is no end user on the other end of this request.
type InternalHandler struct {
	queue *queue.SyncQueue
}

func NewInternalHandler(q *queue.SyncQueue) *InternalHandler {
	return &InternalHandler{queue: q}
}

func (h *InternalHandler) TriggerSync(c *fiber.Ctx) error {
	var req struct {
		ConnectionId uuid.UUID `json:"connection_id"`
		UserId       uuid.UUID `json:"user_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.ConnectionId == uuid.Nil || req.UserId == uuid.Nil {
		return apperr.New(apperr.KindValidation, "connection_id and user_id are required")
	}
	task := queue.SyncTask{ConnectionId: req.ConnectionId, UserId: req.UserId}
	if err := h.queue.Enqueue(c.Context(), task); err != nil {
		return apperr.Wrap(apperr.KindFatal, "enqueueing sync task", err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}
