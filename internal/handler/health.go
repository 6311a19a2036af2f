package handler

import (
	"net/http" // status codes
	"time"     // response timestamp

	"github.com/labstack/echo/v4" // Echo web framework
)

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running.  It
// reports which backends the engine is wired against so an operator
// can tell a degraded in-memory deployment from a full one.
func Health(distributedLocks, persistentSeats bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"status":            "ok",
			"distributed_locks": distributedLocks,
			"persistent_seats":  persistentSeats,
			"time":              time.Now().UTC().Format(time.RFC3339),
		})
	}
}
