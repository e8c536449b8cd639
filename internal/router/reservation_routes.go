package router

import (
	"github.com/labstack/echo/v4"

	"github.com/courtshare/courtshare/internal/handler"
	"github.com/courtshare/courtshare/internal/middleware"
)

// RegisterReservations registers the authenticated reservation routes:
// lifecycle, participants and messages.
func RegisterReservations(g *echo.Group, r *handler.ReservationHandler, a *handler.AccessHandler, m *handler.MessageHandler) {
	auth := g.Group("/reservations", middleware.RequireUser())

	auth.POST("", r.Create)
	auth.GET("", r.List)
	auth.GET("/:id", r.Get)
	auth.PUT("/:id", r.Update)
	auth.DELETE("/:id", r.Delete)
	auth.DELETE("/:id/delete", r.Delete)
	auth.PUT("/:id/time-slot", r.Reschedule)

	auth.POST("/:id/invite", a.CreateInvite)
	auth.POST("/:id/participants", r.AddParticipant)
	auth.DELETE("/:id/participants/:user_id", r.RemoveParticipant)
	auth.PUT("/:id/participant-status", r.UpdateStatus)

	auth.GET("/:id/messages", m.List)
	auth.POST("/:id/messages", m.Post)
}
