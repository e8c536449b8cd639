package handler

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/courtshare/courtshare/internal/service"
)

// CourtHandler serves the court catalogue and day availability.
type CourtHandler struct {
    Availability *service.AvailabilityService
}

// NewCourtHandler panics on a nil service.
func NewCourtHandler(a *service.AvailabilityService) *CourtHandler {
    if a == nil {
        panic("nil service passed to NewCourtHandler")
    }
    return &CourtHandler{Availability: a}
}

// List handles GET /v1/courts.
func (h *CourtHandler) List(c echo.Context) error {
    courts, err := h.Availability.Courts(c.Request().Context())
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, courts)
}

// Get handles GET /v1/courts/:id.
func (h *CourtHandler) Get(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid court id")
    }
    court, err := h.Availability.Court(c.Request().Context(), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, court)
}

// TimeSlots handles GET /v1/courts/:id/time-slots?date=YYYY-MM-DD.  An
// optional reservation_id switches to the edit grid for that reservation.
func (h *CourtHandler) TimeSlots(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid court id")
    }
    q := service.SlotQuery{CourtID: id, Date: strings.TrimSpace(c.QueryParam("date"))}
    if raw := strings.TrimSpace(c.QueryParam("reservation_id")); raw != "" {
        rid, err := strconv.ParseUint(raw, 10, 64)
        if err != nil || rid == 0 {
            return badRequest(c, "invalid reservation_id")
        }
        q.EditReservationID = rid
    }
    slots, err := h.Availability.TimeSlots(c.Request().Context(), caller(c), q)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, slots)
}
