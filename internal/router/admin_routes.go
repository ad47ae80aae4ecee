package router

import (
	"github.com/labstack/echo/v4"

	"github.com/jmorales/wedding-pass-api/internal/handler"
	"github.com/jmorales/wedding-pass-api/internal/middleware"
	"github.com/jmorales/wedding-pass-api/internal/model"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1: seating
// plan management, pass issuance and the dashboard. cacheMW wraps the
// shared read endpoints whose responses are identical for every
// admin; per-user reads stay uncached.
func RegisterAdmin(e *echo.Echo, t *handler.TableHandler, p *handler.PassHandler, s *handler.StatsHandler, jwtSecret string, cacheMW echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Tables ----
	g.POST("/tables", t.CreateTable)
	g.POST("/tables/bulk", t.CreateTablesBulk)
	g.GET("/tables", t.ListTables, cacheMW)
	// Static "empty" route wins over ":id" in Echo's router.
	g.DELETE("/tables/empty", t.DeleteEmptyTables)
	g.DELETE("/tables/:id", t.DeleteTable)

	// ---- Guest passes ----
	g.POST("/passes", p.CreatePass)
	g.GET("/passes", p.ListPasses)
	g.GET("/passes/:id", p.GetPass)
	g.PUT("/passes/:id", p.UpdatePass)
	g.PATCH("/passes/:id", p.UpdatePass)
	g.DELETE("/passes/:id", p.DeletePass)

	// ---- Dashboard ----
	g.GET("/stats", s.Stats, cacheMW)
	g.GET("/event-config", s.GetEventConfig)
	g.PUT("/event-config", s.UpdateEventConfig)
}
