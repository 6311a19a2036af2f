package handler

import (
	"net/http" // HTTP status codes
	"strconv"  // path parameter parsing

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/venue-booking-engine/internal/lock"
	"github.com/iliyamo/venue-booking-engine/internal/store"
)

// SeatHandler exposes read-only seat state: the current availability
// list and per-seat lock status.  Both endpoints are advisory
// snapshots; a client acting on them must still survive the conflict
// responses of the booking endpoints.
type SeatHandler struct {
	Seats store.SeatStore
	Locks lock.Coordinator
}

// NewSeatHandler constructs a SeatHandler.
func NewSeatHandler(seats store.SeatStore, locks lock.Coordinator) *SeatHandler {
	if seats == nil || locks == nil {
		panic("nil dependency passed to NewSeatHandler")
	}
	return &SeatHandler{Seats: seats, Locks: locks}
}

// ListAvailable handles GET /v1/seats.  Returns the ascending list of
// AVAILABLE seat IDs plus the count.
func (h *SeatHandler) ListAvailable(c echo.Context) error {
	ids, err := h.Seats.ListAvailable(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"available": ids,
		"count":     len(ids),
	})
}

// LockStatus handles GET /v1/seats/:id/lock.  Reports whether the
// seat's coordination lock is currently held and, if so, roughly how
// long until it self-expires.  The owner token is never exposed.
func (h *SeatHandler) LockStatus(c echo.Context) error {
	seatID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || seatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	ctx := c.Request().Context()
	key := lock.SeatKey(seatID)
	held, err := h.Locks.IsLocked(ctx, key)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	resp := echo.Map{"seat_id": seatID, "locked": held}
	if held {
		if ttl, err := h.Locks.TTLRemaining(ctx, key); err == nil && ttl != nil {
			resp["ttl_ms"] = ttl.Milliseconds()
		}
	}
	return c.JSON(http.StatusOK, resp)
}
