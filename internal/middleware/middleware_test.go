package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/model"
	"github.com/iliyamo/hotel-reservation/internal/utils"
)

const secret = "test-secret"

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func bearer(t *testing.T, id uint64, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoami(c echo.Context) error {
	req, ok := Requester(c)
	if !ok {
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": req.ID, "role": req.Role})
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	g := e.Group("", JWTAuth(secret))
	g.GET("/me", whoami)
	g.GET("/manage", whoami, RequireRole(model.RoleManager, model.RoleAdmin))

	rec := do(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/me", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/me", bearer(t, 9, model.RoleGuest))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":9,"role":"GUEST"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/manage", bearer(t, 9, model.RoleGuest))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodGet, "/manage", bearer(t, 2, model.RoleManager))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenBucket(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := echo.New()
	e.Use(NewTokenBucket(cfg, rdb, zap.NewNop()))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	for i := 0; i < 2; i++ {
		rec := do(e, http.MethodGet, "/ping", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := do(e, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketDisabledWithoutRedis(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, nil))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/ping", "").Code)
	}
}

func TestCacheAndInvalidation(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
	calls := 0
	failWrite := false
	e := echo.New()
	e.Use(InvalidateCache(cfg, rdb, zap.NewNop()))
	e.GET("/rooms", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, NewRedisCache(cfg, rdb, zap.NewNop()))
	e.POST("/bookings", func(c echo.Context) error {
		if failWrite {
			return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
		}
		return c.NoContent(http.StatusCreated)
	})

	rec := do(e, http.MethodGet, "/rooms", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	rec = do(e, http.MethodGet, "/rooms", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"calls":1}`, rec.Body.String())

	failWrite = true
	assert.Equal(t, http.StatusConflict, do(e, http.MethodPost, "/bookings", "").Code)
	rec = do(e, http.MethodGet, "/rooms", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"), "failed writes keep the cache")

	failWrite = false
	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/bookings", "").Code)
	rec = do(e, http.MethodGet, "/rooms", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"calls":2}`, rec.Body.String())
}

func newCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

func TestCacheKeyedByViewer(t *testing.T) {
	rdb := newRedis(t)
	cfg := newCacheConfig()
	e := echo.New()
	g := e.Group("", JWTAuth(secret))
	g.GET("/rooms", whoami, NewRedisCache(cfg, rdb, zap.NewNop()))

	rec := do(e, http.MethodGet, "/rooms", bearer(t, 2, model.RoleGuest))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	rec = do(e, http.MethodGet, "/rooms", bearer(t, 3, model.RoleGuest))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"), "guests never share a cached copy")
	assert.JSONEq(t, `{"id":3,"role":"GUEST"}`, rec.Body.String())
	rec = do(e, http.MethodGet, "/rooms", bearer(t, 2, model.RoleGuest))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"id":2,"role":"GUEST"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/rooms", bearer(t, 1, model.RoleAdmin))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	rec = do(e, http.MethodGet, "/rooms", bearer(t, 5, model.RoleManager))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"), "staff share one copy")
}

func TestCacheIgnoresResponseComputedDuringWrite(t *testing.T) {
	rdb := newRedis(t)
	cfg := newCacheConfig()
	version := 1
	e := echo.New()
	e.Use(InvalidateCache(cfg, rdb, zap.NewNop()))
	e.POST("/bookings", func(c echo.Context) error {
		version++
		return c.NoContent(http.StatusCreated)
	})
	e.GET("/rooms", func(c echo.Context) error {
		seen := version
		if c.QueryParam("racing") == "1" {
			// A write commits while this read is still being served.
			require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/bookings", "").Code)
		}
		return c.JSON(http.StatusOK, echo.Map{"version": seen})
	}, NewRedisCache(cfg, rdb, zap.NewNop()))

	rec := do(e, http.MethodGet, "/rooms?racing=1", "")
	assert.JSONEq(t, `{"version":1}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/rooms?racing=1", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"), "stale copy must not be served")
	assert.JSONEq(t, `{"version":2}`, rec.Body.String())
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)
	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0})
	assert.False(t, ok)
}
