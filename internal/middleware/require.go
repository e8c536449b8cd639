package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireUser aborts with 401 unless JWTAuth has stored a caller identity.
// It must run after JWTAuth.
func RequireUser() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if id, ok := c.Get(UserIDKey).(uint64); !ok || id == 0 {
                return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authentication required"})
            }
            return next(c)
        }
    }
}
