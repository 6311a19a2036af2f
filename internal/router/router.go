package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/venue-booking-engine/internal/config"
	"github.com/iliyamo/venue-booking-engine/internal/handler"    // import the handlers that translate engine outcomes to HTTP
	"github.com/iliyamo/venue-booking-engine/internal/middleware" // import middleware for requester identity and rate limiting
)

// Deps bundles everything the route table needs.  Redis may be nil,
// in which case the rate limiter becomes a pass-through.
type Deps struct {
	Reservations *handler.ReservationHandler
	Queue        *handler.QueueHandler
	Seats        *handler.SeatHandler

	JWTSecret string
	RateLimit config.RateLimitConfig
	Redis     *redis.Client

	// Backends drives the health endpoint's component report.
	DistributedLocks bool
	PersistentSeats  bool
}

// Register wires the full route table on the provided Echo instance.
// Read-only seat state and health live outside the identity group so
// monitors and browsing clients need no token; every mutating
// endpoint requires a requester identity and passes through the rate
// limiter, since the booking paths are the ones that see bursts.
func Register(e *echo.Echo, d Deps) {
	// Health endpoint for load balancers and monitoring systems.
	e.GET("/v1/healthz", handler.Health(d.DistributedLocks, d.PersistentSeats))

	// Public read-only seat state.  Advisory snapshots only.
	e.GET("/v1/seats", d.Seats.ListAvailable)
	e.GET("/v1/seats/:id/lock", d.Seats.LockStatus)

	// Every endpoint below requires a requester identity token and is
	// rate limited per requester.
	v1 := e.Group("/v1")
	v1.Use(middleware.RequesterIdentity(d.JWTSecret))
	v1.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis))

	// Multi-seat booking protocol.
	v1.POST("/seats/reserve", d.Reservations.Reserve)
	v1.POST("/seats/book", d.Reservations.Book)
	v1.POST("/seats/release", d.Reservations.Release)
	// Single-seat first-come-first-served allocation.
	v1.POST("/seats/allocate", d.Reservations.Allocate)

	// Priority wait queue.
	v1.POST("/queue/join", d.Queue.Join)
	v1.GET("/queue/position", d.Queue.Position)
	v1.DELETE("/queue", d.Queue.Leave)
}
