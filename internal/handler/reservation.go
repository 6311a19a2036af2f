package handler

import (
	"errors"   // for errors.Is comparisons against the engine taxonomy
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/venue-booking-engine/internal/engine"
)

// ReservationHandler maps the inbound booking surface onto the
// engine.  All methods assume that the RequesterIdentity middleware
// has already run.  The engine handles its own cleanup on every
// failure path, so these handlers only translate outcomes into
// transport-level responses.
type ReservationHandler struct {
	Orchestrator *engine.Orchestrator  // multi-seat reserve/book/release
	Allocator    *engine.FCFSAllocator // single-seat first-come-first-served
}

// NewReservationHandler constructs a ReservationHandler.  Both
// dependencies must be non-nil.
func NewReservationHandler(o *engine.Orchestrator, a *engine.FCFSAllocator) *ReservationHandler {
	if o == nil || a == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Orchestrator: o, Allocator: a}
}

// seatsBody is the request shape shared by reserve, book and release.
type seatsBody struct {
	SeatIDs       []uint64 `json:"seat_ids"`
	PaymentMethod string   `json:"payment_method,omitempty"`
}

// Reserve handles POST /v1/seats/reserve.  It places a soft-hold on
// the requested seats; held seats revert automatically when the hold
// TTL elapses.  Returns 201 with the expiry on success.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	requesterID, err := getRequesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body seatsBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Orchestrator.Reserve(c.Request().Context(), body.SeatIDs, requesterID)
	if err != nil {
		return attemptError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"seat_ids":   res.SeatIDs,
		"expires_at": res.ExpiresAt,
	})
}

// Book handles POST /v1/seats/book.  It runs the all-or-nothing
// multi-seat booking protocol and returns 201 with the booking ID on
// success.  Failures report which seats failed and why so the client
// can offer an alternative selection.
func (h *ReservationHandler) Book(c echo.Context) error {
	requesterID, err := getRequesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body seatsBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	result, err := h.Orchestrator.Book(c.Request().Context(), engine.BookingRequest{
		SeatIDs:       body.SeatIDs,
		RequesterID:   requesterID,
		PaymentMethod: body.PaymentMethod,
	})
	if err != nil {
		return attemptError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id":         result.BookingID,
		"seat_ids":           result.SeatIDs,
		"total_amount_cents": result.TotalAmountCents,
	})
}

// Release handles POST /v1/seats/release.  It reverts the requester's
// holds on the listed seats and reports how many were released.
func (h *ReservationHandler) Release(c echo.Context) error {
	requesterID, err := getRequesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body seatsBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	released, err := h.Orchestrator.Release(c.Request().Context(), body.SeatIDs, requesterID)
	if err != nil {
		return attemptError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}

// Allocate handles POST /v1/seats/allocate.  It claims any one
// available seat first-come-first-served and returns the seat plus
// the allocation sequence number.
func (h *ReservationHandler) Allocate(c echo.Context) error {
	requesterID, err := getRequesterID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	result, err := h.Allocator.Allocate(c.Request().Context(), requesterID)
	if err != nil {
		return attemptError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"seat_id":  result.SeatID,
		"sequence": result.Sequence,
	})
}

// attemptError translates the engine's error taxonomy into an HTTP
// response.  Retryable contention maps to 409 with a Retry-After
// hint; terminal outcomes map to their own statuses.
func attemptError(c echo.Context, err error) error {
	failed := engine.FailedSeatsOf(err)
	switch {
	case errors.Is(err, engine.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "failed_seats": failed})
	case errors.Is(err, engine.ErrSeatLocked):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat_locked", "failed_seats": failed})
	case errors.Is(err, engine.ErrSeatsNotAvailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seats_not_available", "failed_seats": failed})
	case errors.Is(err, engine.ErrOptimisticConflict):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusConflict, echo.Map{"error": "optimistic_conflict", "failed_seats": failed})
	case errors.Is(err, engine.ErrSoldOut):
		return c.JSON(http.StatusGone, echo.Map{"error": "sold_out"})
	case errors.Is(err, engine.ErrDuplicate):
		return c.JSON(http.StatusOK, echo.Map{"error": "duplicate", "message": "requester already holds an allocation"})
	case errors.Is(err, engine.ErrContention):
		c.Response().Header().Set("Retry-After", "1")
		return c.JSON(http.StatusConflict, echo.Map{"error": "contention"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
