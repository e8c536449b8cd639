package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/courtshare/courtshare/internal/service"
)

// MessageHandler serves the reservation message board.
type MessageHandler struct {
    Messages *service.MessageService
}

func NewMessageHandler(m *service.MessageService) *MessageHandler {
    if m == nil {
        panic("nil service passed to NewMessageHandler")
    }
    return &MessageHandler{Messages: m}
}

// List handles GET /v1/reservations/:id/messages.
func (h *MessageHandler) List(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    msgs, err := h.Messages.List(c.Request().Context(), caller(c), id)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, msgs)
}

// Post handles POST /v1/reservations/:id/messages {content}.
func (h *MessageHandler) Post(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return badRequest(c, "invalid reservation id")
    }
    var req struct {
        Content string `json:"content"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid request body")
    }
    msg, err := h.Messages.Post(c.Request().Context(), caller(c), id, req.Content)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, msg)
}
