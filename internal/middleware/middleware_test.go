package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtshare/courtshare/internal/config"
	"github.com/courtshare/courtshare/internal/utils"
)

const secret = "s3cret"

func whoami(c echo.Context) error {
	id, _ := c.Get(UserIDKey).(uint64)
	email, _ := c.Get(EmailKey).(string)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "email": email})
}

func serve(e *echo.Echo, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	tok, err := utils.NewAccessToken(secret, 42, "Ann@Example.com", 5)
	require.NoError(t, err)
	rec := serve(e, "Bearer "+tok.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":42,"email":"ann@example.com"}`, rec.Body.String())
}

func TestJWTAuthAnonymousPassesThrough(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))
	rec := serve(e, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":0,"email":""}`, rec.Body.String())
}

func TestJWTAuthRejectsBadTokens(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	wrong, err := utils.NewAccessToken("other", 1, "a@example.com", 5)
	require.NoError(t, err)
	expired, err := utils.NewAccessToken(secret, 1, "a@example.com", -5)
	require.NoError(t, err)
	noEmail, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	for name, header := range map[string]string{
		"scheme":    "Basic abc",
		"garbage":   "Bearer abc.def.ghi",
		"signature": "Bearer " + wrong.Token,
		"expired":   "Bearer " + expired.Token,
		"no email":  "Bearer " + noEmail,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, serve(e, header).Code)
		})
	}
}

func TestSubjectAcceptsNumericStrings(t *testing.T) {
	id, ok := subject("12")
	assert.True(t, ok)
	assert.Equal(t, uint64(12), id)
	_, ok = subject(float64(1.5))
	assert.False(t, ok)
	_, ok = subject("0")
	assert.False(t, ok)
}

func TestRequireUser(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret), RequireUser())
	assert.Equal(t, http.StatusUnauthorized, serve(e, "").Code)

	tok, err := utils.NewAccessToken(secret, 3, "c@example.com", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, serve(e, "Bearer "+tok.Token).Code)
}

func TestTokenBucketFallsBackToLocal(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := echo.New()
	e.GET("/me", whoami, NewTokenBucket(cfg, nil))

	for i := 0; i < 2; i++ {
		rec := serve(e, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := serve(e, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	secs, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, secs, 0)
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(e, "").Code)
	}
}

func TestBuildRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/courts", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/courts")
	c.Set(UserIDKey, uint64(9))

	cfg := config.RateLimitConfig{Prefix: "rl"}
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(cfg, c))
	cfg.KeyStrategy = "user_route"
	assert.Equal(t, "rl:user:9:route:GET /v1/courts", buildRateKey(cfg, c))
	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.0.0.1:user:9:route:GET /v1/courts", buildRateKey(cfg, c))
}

func TestTeeWriterStopsCapturingPastLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &teeWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = w.Write([]byte("abc"))
	assert.False(t, w.overflow)
	_, _ = w.Write([]byte("def"))
	assert.True(t, w.overflow)
	assert.Equal(t, "abcdef", rec.Body.String())
}

func TestRedisCacheWithoutClientIsNoop(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, NewRedisCache(config.CacheConfig{Enabled: true, Methods: []string{"GET"}}, nil))
	rec := serve(e, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}
