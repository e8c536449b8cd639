package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strconv"  // parsing string subjects
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// Context keys set by JWTAuth.
const (
    UserIDKey = "user_id" // uint64 subject of the access token
    EmailKey  = "email"   // verified email claim
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// issued by the session layer and injects its subject and email claims into
// the request context as UserIDKey and EmailKey.  Requests without an
// Authorization header pass through anonymously so that public routes can
// still personalise responses; a header that is present but invalid is
// rejected with 401.  Pair with RequireUser on routes that need a caller.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if auth == "" {
                return next(c)
            }
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Reject any signing method other than HMAC.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            uid, ok := subject(claims["sub"])
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
            }
            email, _ := claims["email"].(string)
            if strings.TrimSpace(email) == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing email claim"})
            }

            c.Set(UserIDKey, uid)
            c.Set(EmailKey, strings.ToLower(strings.TrimSpace(email)))
            return next(c)
        }
    }
}

// subject converts the sub claim (a JSON number or numeric string) to a
// positive user id.
func subject(v interface{}) (uint64, bool) {
    switch t := v.(type) {
    case float64:
        if t >= 1 && t == float64(uint64(t)) {
            return uint64(t), true
        }
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil && n > 0 {
            return n, true
        }
    }
    return 0, false
}
