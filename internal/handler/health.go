package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/retail-pos-core/internal/database"
	"github.com/iliyamo/retail-pos-core/internal/health"
)

// HealthHandler exposes the pool's health classification for load
// balancers and operators.
type HealthHandler struct {
	Pool *database.Pool
}

func NewHealthHandler(pool *database.Pool) *HealthHandler { return &HealthHandler{Pool: pool} }

// Check runs an on-demand probe and reports the derived metrics. 200
// while the connection is usable, 503 otherwise.
func (h *HealthHandler) Check(c echo.Context) error {
	h.Pool.CheckHealth(c.Request().Context())
	metrics := h.Pool.HealthMetrics()
	status := http.StatusOK
	if !h.Pool.IsReady() || metrics.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, echo.Map{
		"state":   h.Pool.State().String(),
		"metrics": metrics,
	})
}
