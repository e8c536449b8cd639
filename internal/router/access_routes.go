package router

import (
	"github.com/labstack/echo/v4"

	"github.com/courtshare/courtshare/internal/handler"
	"github.com/courtshare/courtshare/internal/middleware"
)

// RegisterAccess registers invite and short-URL routes.  Resolving an invite
// or a short URL works without a session; accepting, verifying and joining
// need one.
func RegisterAccess(g *echo.Group, a *handler.AccessHandler) {
	g.GET("/invites/:token", a.ResolveInvite)
	g.POST("/invites/:token/accept", a.AcceptInvite, middleware.RequireUser())

	g.GET("/reservations/short/:short_url", a.ResolveShortURL)
	g.POST("/reservations/short/:short_url/verify-password", a.VerifyPassword, middleware.RequireUser())
	g.POST("/reservations/short/:short_url/join", a.Join, middleware.RequireUser())
}
