package router

import (
	"github.com/labstack/echo/v4"

	"github.com/jmorales/wedding-pass-api/internal/handler"
	"github.com/jmorales/wedding-pass-api/internal/middleware"
	"github.com/jmorales/wedding-pass-api/internal/model"
)

// RegisterCheckin registers the door-station endpoints under
// /v1/checkin. Both roles may scan; rateMW shields the group from
// scanner retry storms.
func RegisterCheckin(e *echo.Echo, h *handler.CheckinHandler, jwtSecret string, rateMW echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/checkin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleStaff),
		rateMW,
	)

	g.GET("/passes/:code", h.GetPassByCode)
	g.POST("/passes/:code/entries", h.RecordEntry)
	g.GET("/entries", h.ListEntries)
	g.GET("/stats", h.CheckinStats)
}
