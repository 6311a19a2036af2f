package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strconv"  // parse numeric claims delivered as strings
	"strings"  // string utilities for prefix checking and trimming

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/venue-booking-engine/internal/model"
)

// RequesterIdentity returns an Echo middleware that validates a Bearer
// token and injects the requester's identity and priority tier into the
// request context.  The engine itself does not authenticate anyone; it
// only needs a stable requester ID for dedup/ownership checks and a
// tier claim for queue ordering.  Handlers read the values via
// `c.Get("requester_id")` and `c.Get("priority_tier")`.
func RequesterIdentity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse with HS256 and our secret; reject any other signing
			// method.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			requesterID := claimUint64(claims, "sub")
			if requesterID == 0 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing subject"})
			}
			c.Set("requester_id", requesterID)
			c.Set("priority_tier", claimTier(claims))
			return next(c)
		}
	}
}

// claimUint64 reads a claim that may arrive as a JSON number or a
// string and returns it as uint64, 0 when absent or malformed.
func claimUint64(claims jwt.MapClaims, key string) uint64 {
	switch v := claims[key].(type) {
	case float64:
		if v > 0 {
			return uint64(v)
		}
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// claimTier normalises the tier claim, defaulting to NORMAL so a
// token without one can still join the queue.
func claimTier(claims jwt.MapClaims) string {
	if v, ok := claims["tier"].(string); ok {
		switch strings.ToUpper(v) {
		case model.TierVIP:
			return model.TierVIP
		case model.TierPremium:
			return model.TierPremium
		}
	}
	return model.TierNormal
}
