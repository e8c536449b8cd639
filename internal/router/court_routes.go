package router

import (
	"github.com/labstack/echo/v4"

	"github.com/courtshare/courtshare/internal/handler"
)

// RegisterCourts registers the public court catalogue.  cache wraps the
// catalogue reads only; time slots change with every booking and are never
// cached.
func RegisterCourts(g *echo.Group, h *handler.CourtHandler, cache echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	g.GET("/courts", h.List, mw...)
	g.GET("/courts/:id", h.Get, mw...)
	g.GET("/courts/:id/time-slots", h.TimeSlots)
}
