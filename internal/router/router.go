// Package router maps URLs to handlers and attaches the middleware
// each surface needs: nothing on the guest routes, JWT plus role
// checks on the staff and admin groups.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/jmorales/wedding-pass-api/internal/handler"
	"github.com/jmorales/wedding-pass-api/internal/middleware"
	"github.com/jmorales/wedding-pass-api/internal/model"
)

// RegisterRoutes registers routes that require no authentication:
// the health check and the guest invitation surface. Guests hold
// only their access code.
func RegisterRoutes(e *echo.Echo, confirm *handler.ConfirmHandler) {
	e.GET("/healthz", handler.Health)

	e.GET("/v1/confirm/:code", confirm.GetInvitation)
	e.POST("/v1/confirm/:code", confirm.Confirm)
	e.POST("/v1/confirm/:code/download", confirm.RecordDownload)
}

// RegisterAuth registers the auth endpoints. Register, login,
// refresh and logout need no session; /v1/me requires a valid token
// with any staff role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleStaff),
	)
	auth.GET("/me", a.Me)

	// Logout also lives outside the auth prefix so a client with only
	// a refresh token can end its session.
	e.POST("/v1/logout", a.Logout)
}
