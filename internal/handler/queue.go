package handler

import (
	"errors"   // for errors.Is comparisons
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/venue-booking-engine/internal/waitqueue"
)

// QueueHandler exposes the priority wait queue: requesters join when
// the venue is contended, poll their position, and leave when they
// give up.  Priority tier comes from the identity token, never from
// the request body.
type QueueHandler struct {
	Waits *waitqueue.Queue
}

// NewQueueHandler constructs a QueueHandler.
func NewQueueHandler(waits *waitqueue.Queue) *QueueHandler {
	if waits == nil {
		panic("nil queue passed to NewQueueHandler")
	}
	return &QueueHandler{Waits: waits}
}

// Join handles POST /v1/queue/join.  Returns 201 with the position the
// entry landed at, or 409 when the requester already waits.
func (h *QueueHandler) Join(c echo.Context) error {
	requesterID, err := getRequesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	pos, err := h.Waits.Enqueue(requesterID, getPriorityTier(c))
	if err != nil {
		if errors.Is(err, waitqueue.ErrAlreadyQueued) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "already_queued"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"position": pos})
}

// Position handles GET /v1/queue/position.  Returns the requester's
// zero-based position plus an advisory wait estimate, or 404 when the
// requester does not wait.
func (h *QueueHandler) Position(c echo.Context) error {
	requesterID, err := getRequesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	pos, err := h.Waits.PositionOf(requesterID)
	if err != nil {
		if errors.Is(err, waitqueue.ErrNotInQueue) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_in_queue"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	wait, _ := h.Waits.EstimatedWait(requesterID)
	return c.JSON(http.StatusOK, echo.Map{
		"position":               pos,
		"estimated_wait_seconds": int(wait.Seconds()),
	})
}

// Leave handles DELETE /v1/queue.  Removes the requester's entry, or
// 404 when none exists.
func (h *QueueHandler) Leave(c echo.Context) error {
	requesterID, err := getRequesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	entry, err := h.Waits.Remove(requesterID)
	if err != nil {
		if errors.Is(err, waitqueue.ErrNotInQueue) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not_in_queue"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"left":        true,
		"enqueued_at": entry.EnqueuedAt,
	})
}
