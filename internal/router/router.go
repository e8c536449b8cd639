package router // package router registers HTTP routes on the echo instance

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/courtshare/courtshare/internal/handler"
	"github.com/courtshare/courtshare/internal/middleware"
)

// RegisterRoutes registers routes that live outside the versioned API.
// Currently it exposes only the health check.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// NewV1 creates the /v1 group.  Every request passes the JWT middleware,
// which records the caller when a bearer token is sent, and then the rate
// limiter so that buckets can be keyed per user.  Routes that need a caller
// add middleware.RequireUser themselves.
func NewV1(e *echo.Echo, jwtSecret string, limiter echo.MiddlewareFunc) *echo.Group {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	if limiter != nil {
		g.Use(limiter)
	}
	return g
}
