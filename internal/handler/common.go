// Package handler contains the thin HTTP boundary over the engines. It
// binds input, performs surface-level validation and maps fault kinds to
// transport status codes; all business rules live below it.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/retail-pos-core/internal/engine"
	"github.com/iliyamo/retail-pos-core/internal/fault"
)

// writeError maps an engine error to an HTTP response without leaking
// internals beyond the error's own message.
func writeError(c echo.Context, err error) error {
	if errors.Is(err, engine.ErrAccountLocked) {
		return c.JSON(http.StatusLocked, echo.Map{"error": err.Error()})
	}
	switch fault.KindOf(err) {
	case fault.KindValidation:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case fault.KindAuthentication:
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case fault.KindConnectivity:
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
