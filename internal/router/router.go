// Package router wires the HTTP routes to their handlers.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/retail-pos-core/internal/engine"
	"github.com/iliyamo/retail-pos-core/internal/handler"
	"github.com/iliyamo/retail-pos-core/internal/middleware"
	"github.com/iliyamo/retail-pos-core/internal/model"
)

// Register mounts every route. Unauthenticated surface: health check,
// login, refresh, logout. Everything else sits behind the access-token
// middleware; sales additionally require a POS role.
func Register(e *echo.Echo, auth *engine.AuthEngine, ah *handler.AuthHandler, sh *handler.SaleHandler, hh *handler.HealthHandler) {
	e.GET("/healthz", hh.Check)

	g := e.Group("/v1/auth")
	g.POST("/login", ah.Login)
	g.POST("/refresh", ah.Refresh)
	// Logout works with or without a verifiable token so a client can
	// always terminate its session.
	g.POST("/logout", ah.Logout)

	v1 := e.Group("/v1")
	v1.Use(middleware.Authenticate(auth))
	v1.GET("/me", ah.Me)
	v1.POST("/auth/change-password", ah.ChangePassword)

	pos := v1.Group("")
	pos.Use(middleware.RequireRole(model.RoleCashier, model.RoleManager, model.RoleAdmin))
	pos.POST("/sales", sh.Create)
	pos.GET("/sales/:ref", sh.Receipt)
	pos.GET("/items/:id/stock", sh.ItemStock)
}
