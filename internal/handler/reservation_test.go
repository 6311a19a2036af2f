package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-booking-engine/internal/engine"
	"github.com/iliyamo/venue-booking-engine/internal/lock"
	"github.com/iliyamo/venue-booking-engine/internal/model"
	"github.com/iliyamo/venue-booking-engine/internal/store"
)

func newTestHandler(t *testing.T, seatCount int) (*ReservationHandler, *store.MemorySeatStore) {
	t.Helper()
	seats := store.NewMemorySeatStore()
	seed := make([]model.Seat, 0, seatCount)
	for i := 1; i <= seatCount; i++ {
		seed = append(seed, model.Seat{ID: uint64(i), Status: model.SeatAvailable})
	}
	require.NoError(t, seats.CreateBulk(context.Background(), seed))

	orch := engine.NewOrchestrator(seats, store.NewMemoryBookingStore(), lock.NewMemoryCoordinator(), engine.OrchestratorConfig{SeatPriceCents: 1000})
	alloc := engine.NewFCFSAllocator(seats, engine.NewMemoryDedupStore(), engine.FCFSConfig{})
	return NewReservationHandler(orch, alloc), seats
}

func doJSON(requesterID uint64, method, path, body string, h echo.HandlerFunc) *httptest.ResponseRecorder {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if requesterID != 0 {
		c.Set("requester_id", requesterID)
	}
	_ = h(c)
	return rec
}

func TestBookEndpointSuccess(t *testing.T) {
	h, _ := newTestHandler(t, 5)

	rec := doJSON(1, http.MethodPost, "/v1/seats/book", `{"seat_ids":[1,2],"payment_method":"card"}`, h.Book)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["booking_id"])
	assert.Equal(t, float64(2000), resp["total_amount_cents"])
}

func TestBookEndpointRequiresIdentity(t *testing.T) {
	h, _ := newTestHandler(t, 1)
	rec := doJSON(0, http.MethodPost, "/v1/seats/book", `{"seat_ids":[1]}`, h.Book)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookEndpointValidation(t *testing.T) {
	h, _ := newTestHandler(t, 1)
	rec := doJSON(1, http.MethodPost, "/v1/seats/book", `{"seat_ids":[]}`, h.Book)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookEndpointReportsFailedSeats(t *testing.T) {
	h, seats := newTestHandler(t, 5)
	other := uint64(9)
	require.NoError(t, seats.ConditionalWrite(context.Background(), 3, 0, model.SeatBooked, &other, nil))

	rec := doJSON(1, http.MethodPost, "/v1/seats/book", `{"seat_ids":[2,3]}`, h.Book)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Error       string `json:"error"`
		FailedSeats []struct {
			SeatID uint64 `json:"seat_id"`
			Reason string `json:"reason"`
		} `json:"failed_seats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "seats_not_available", resp.Error)
	require.Len(t, resp.FailedSeats, 1)
	assert.Equal(t, uint64(3), resp.FailedSeats[0].SeatID)

	// The available seat in the request was not committed.
	seat, err := seats.Read(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, seat.Status)
}

func TestAllocateEndpoint(t *testing.T) {
	h, _ := newTestHandler(t, 1)

	rec := doJSON(1, http.MethodPost, "/v1/seats/allocate", "", h.Allocate)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Same requester inside the dedup window: informational duplicate.
	rec = doJSON(1, http.MethodPost, "/v1/seats/allocate", "", h.Allocate)
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "duplicate", resp["error"])

	// Different requester, empty venue: gone.
	rec = doJSON(2, http.MethodPost, "/v1/seats/allocate", "", h.Allocate)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestReserveAndReleaseEndpoints(t *testing.T) {
	h, seats := newTestHandler(t, 3)

	rec := doJSON(5, http.MethodPost, "/v1/seats/reserve", `{"seat_ids":[1,2]}`, h.Reserve)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		SeatIDs   []uint64  `json:"seat_ids"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []uint64{1, 2}, resp.SeatIDs)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	seat, err := seats.Read(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.SeatHeld, seat.Status)

	rec = doJSON(5, http.MethodPost, "/v1/seats/release", `{"seat_ids":[1,2]}`, h.Release)
	assert.Equal(t, http.StatusOK, rec.Code)
	var rel map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rel))
	assert.Equal(t, float64(2), rel["released"])
}
