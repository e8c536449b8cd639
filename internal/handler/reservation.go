package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/courtshare/courtshare/internal/service"
)

// ReservationHandler serves the owner and participant reservation routes.
// All methods assume RequireUser has run.
type ReservationHandler struct {
    Reservations *service.ReservationService
    Participants *service.ParticipantService
}

// NewReservationHandler panics on nil services.
func NewReservationHandler(r *service.ReservationService, p *service.ParticipantService) *ReservationHandler {
    if r == nil || p == nil {
        panic("nil service passed to NewReservationHandler")
    }
    return &ReservationHandler{Reservations: r, Participants: p}
}

type createReservationRequest struct {
    CourtID           uint64    `json:"courtId"`
    StartTime         time.Time `json:"startTime"`
    EndTime           time.Time `json:"endTime"`
    Description       *string   `json:"description"`
    ParticipantIDs    []string  `json:"participantIds"` // participant emails
    ParticipantEmails []string  `json:"participantEmails"`
    PaymentRequired   bool      `json:"paymentRequired"`
    PaymentInfo       *string   `json:"paymentInfo"`
    Password          *string   `json:"password"`
    PasswordRequired  bool      `json:"passwordRequired"`
}

// Create handles POST /v1/reservations and returns 201 with the full
// reservation.
func (h *ReservationHandler) Create(c echo.Context) error {
    var req createReservationRequest
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid request body")
    }
    emails := append(append([]string{}, req.ParticipantIDs...), req.ParticipantEmails...)
    view, err := h.Reservations.Create(c.Request().Context(), caller(c), service.CreateInput{
        CourtID:           req.CourtID,
        StartTime:         req.StartTime,
        EndTime:           req.EndTime,
        Description:       req.Description,
        ParticipantEmails: emails,
        PaymentRequired:   req.PaymentRequired,
        PaymentInfo:       req.PaymentInfo,
        Password:          req.Password,
        PasswordRequired:  req.PasswordRequired,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, view)
}

// List handles GET /v1/reservations: everything the caller owns or joined.
func (h *ReservationHandler) List(c echo.Context) error {
    views, err := h.Reservations.List(c.Request().Context(), caller(c))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, views)
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    view, err := h.Reservations.Get(c.Request().Context(), caller(c), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, view)
}

// Update handles PUT /v1/reservations/:id.  Absent fields are unchanged.
func (h *ReservationHandler) Update(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    var req struct {
        Description *string `json:"description"`
        PaymentInfo *string `json:"paymentInfo"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid request body")
    }
    view, err := h.Reservations.Update(c.Request().Context(), caller(c), id, service.UpdateInput{
        Description: req.Description,
        PaymentInfo: req.PaymentInfo,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, view)
}

// Reschedule handles PUT /v1/reservations/:id/time-slot.
func (h *ReservationHandler) Reschedule(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    var req struct {
        StartTime time.Time `json:"startTime"`
        EndTime   time.Time `json:"endTime"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid request body")
    }
    view, err := h.Reservations.Reschedule(c.Request().Context(), caller(c), id, req.StartTime, req.EndTime)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, view)
}

// Delete handles DELETE /v1/reservations/:id (and the /delete alias).
func (h *ReservationHandler) Delete(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    if err := h.Reservations.Delete(c.Request().Context(), caller(c), id); err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "id": id})
}

// AddParticipant handles POST /v1/reservations/:id/participants {email}.
func (h *ReservationHandler) AddParticipant(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    var req struct {
        Email string `json:"email"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid request body")
    }
    p, err := h.Reservations.AddParticipant(c.Request().Context(), caller(c), id, req.Email)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, p)
}

// RemoveParticipant handles DELETE /v1/reservations/:id/participants/:user_id.
func (h *ReservationHandler) RemoveParticipant(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    userID, ok := parseID(c, "user_id")
    if !ok {
        return badRequest(c, "invalid user id")
    }
    if err := h.Reservations.RemoveParticipant(c.Request().Context(), caller(c), id, userID); err != nil {
        return respondError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}

// UpdateStatus handles PUT /v1/reservations/:id/participant-status
// {userId, type: payment|attendance, value}.
func (h *ReservationHandler) UpdateStatus(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    var req struct {
        UserID uint64 `json:"userId"`
        Type   string `json:"type"`
        Value  *bool  `json:"value"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid request body")
    }
    if req.Value == nil {
        return badRequest(c, "value is required")
    }
    p, err := h.Participants.UpdateStatus(c.Request().Context(), caller(c), id, service.StatusInput{
        UserID: req.UserID,
        Type:   req.Type,
        Value:  *req.Value,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, p)
}
