// Package handler holds the echo handlers for the court reservation API.
// Handlers only bind input, build the caller identity from the JWT context
// and map service errors to status codes; all rules live in the service
// package.
package handler

import (
    "errors"
    "log"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/courtshare/courtshare/internal/middleware"
    "github.com/courtshare/courtshare/internal/service"
)

// getUserID extracts the user_id stored by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
    switch t := c.Get(middleware.UserIDKey).(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// caller builds the service identity.  Anonymous requests yield the zero
// Caller, which services reject where a caller is required.
func caller(c echo.Context) service.Caller {
    id, err := getUserID(c)
    if err != nil {
        return service.Caller{}
    }
    email, _ := c.Get(middleware.EmailKey).(string)
    return service.Caller{UserID: id, Email: email}
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
    n, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
    if err != nil || n == 0 {
        return 0, false
    }
    return n, true
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// statusOf maps the service error taxonomy to HTTP.
func statusOf(err error) int {
    switch {
    case errors.Is(err, service.ErrValidation):
        return http.StatusBadRequest
    case errors.Is(err, service.ErrUnauthorized):
        return http.StatusUnauthorized
    case errors.Is(err, service.ErrForbidden):
        return http.StatusForbidden
    case errors.Is(err, service.ErrNotFound):
        return http.StatusNotFound
    case errors.Is(err, service.ErrConflict):
        return http.StatusConflict
    case errors.Is(err, service.ErrExpired):
        return http.StatusGone
    }
    return http.StatusInternalServerError
}

// respondError writes err as {"error": msg}.  Unexpected errors are logged
// and hidden behind a generic message.
func respondError(c echo.Context, err error) error {
    status := statusOf(err)
    if status == http.StatusInternalServerError {
        log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
        return c.JSON(status, echo.Map{"error": "internal error"})
    }
    return c.JSON(status, echo.Map{"error": err.Error()})
}
