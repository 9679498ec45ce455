// Package middleware contains reusable HTTP middleware for the gateway.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/retail-pos-core/internal/engine"
)

const profileKey = "auth_profile"

// Authenticate validates the Bearer access token through the auth
// engine, which also checks that the named session is still active. The
// verified profile is stored on the context for handlers downstream.
func Authenticate(auth *engine.AuthEngine) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			profile, err := auth.VerifyToken(c.Request().Context(), raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(profileKey, profile)
			return next(c)
		}
	}
}

// ProfileFrom retrieves the authenticated profile set by Authenticate.
func ProfileFrom(c echo.Context) (engine.UserProfile, bool) {
	p, ok := c.Get(profileKey).(engine.UserProfile)
	return p, ok
}

// RequireRole rejects authenticated requests whose role is not in the
// allowed set.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := ProfileFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			if _, ok := allowed[p.Role]; !ok {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
