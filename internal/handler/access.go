package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/courtshare/courtshare/internal/service"
)

// AccessHandler serves invites and short-URL access.
type AccessHandler struct {
    Access *service.AccessService
}

// NewAccessHandler panics on a nil service.
func NewAccessHandler(a *service.AccessService) *AccessHandler {
    if a == nil {
        panic("nil service passed to NewAccessHandler")
    }
    return &AccessHandler{Access: a}
}

// CreateInvite handles POST /v1/reservations/:id/invite {email}.  The
// response carries the invite link; delivery is left to the mail consumer
// of the invite.created event.
func (h *AccessHandler) CreateInvite(c echo.Context) error {
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
    inv, err := h.Access.CreateInvite(c.Request().Context(), caller(c), id, req.Email)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, inv)
}

// ResolveInvite handles GET /v1/invites/:token.
func (h *AccessHandler) ResolveInvite(c echo.Context) error {
    token := strings.TrimSpace(c.Param("token"))
    if token == "" {
        return badRequest(c, "missing token")
    }
    sum, err := h.Access.ResolveInvite(c.Request().Context(), token)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, sum)
}

// AcceptInvite handles POST /v1/invites/:token/accept.
func (h *AccessHandler) AcceptInvite(c echo.Context) error {
    token := strings.TrimSpace(c.Param("token"))
    if token == "" {
        return badRequest(c, "missing token")
    }
    p, err := h.Access.AcceptInvite(c.Request().Context(), caller(c), token)
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "participant": p})
}

// ResolveShortURL handles GET /v1/reservations/short/:short_url.  The
// caller may be anonymous.
func (h *AccessHandler) ResolveShortURL(c echo.Context) error {
    view, err := h.Access.ResolveShortURL(c.Request().Context(), caller(c), c.Param("short_url"))
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, view)
}

// VerifyPassword handles POST /v1/reservations/short/:short_url/verify-password
// {password} and answers {success}.
func (h *AccessHandler) VerifyPassword(c echo.Context) error {
    var req struct {
        Password string `json:"password"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid request body")
    }
    err := h.Access.VerifyPassword(c.Request().Context(), caller(c), c.Param("short_url"), req.Password)
    if err != nil {
        if errors.Is(err, service.ErrUnauthorized) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": err.Error()})
        }
        return respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Join handles POST /v1/reservations/short/:short_url/join
// {password?, isGoing?, hasPaid?}.
func (h *AccessHandler) Join(c echo.Context) error {
    var req struct {
        Password string `json:"password"`
        IsGoing  *bool  `json:"isGoing"`
        HasPaid  *bool  `json:"hasPaid"`
    }
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid request body")
    }
    p, err := h.Access.Join(c.Request().Context(), caller(c), c.Param("short_url"), service.JoinInput{
        Password: req.Password,
        IsGoing:  req.IsGoing,
        HasPaid:  req.HasPaid,
    })
    if err != nil {
        return respondError(c, err)
    }
    return c.JSON(http.StatusCreated, p)
}
