package handler

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-booking-engine/internal/model"
)

// errNoIdentity is returned when the identity middleware did not run
// or the token carried no usable subject.
var errNoIdentity = errors.New("no requester identity in context")

// getRequesterID extracts the requester identity injected by the
// RequesterIdentity middleware.
func getRequesterID(c echo.Context) (uint64, error) {
	if v := c.Get("requester_id"); v != nil {
		if id, ok := v.(uint64); ok && id != 0 {
			return id, nil
		}
	}
	return 0, errNoIdentity
}

// getPriorityTier extracts the tier claim, defaulting to NORMAL.
func getPriorityTier(c echo.Context) string {
	if v := c.Get("priority_tier"); v != nil {
		if tier, ok := v.(string); ok && tier != "" {
			return tier
		}
	}
	return model.TierNormal
}
