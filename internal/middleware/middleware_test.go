package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/retreat-allocation/internal/config"
    "github.com/iliyamo/retreat-allocation/internal/utils"
)

const secret = "test-secret"

func protected(e *echo.Echo, mws ...echo.MiddlewareFunc) {
    e.GET("/v1/courses/:id/whoami", func(c echo.Context) error {
        id, _ := AdminID(c)
        return c.JSON(http.StatusOK, echo.Map{"admin_id": id})
    }, mws...)
}

func do(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, nil)
    if token != "" {
        req.Header.Set("Authorization", "Bearer "+token)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestJWTAuthAndRole(t *testing.T) {
    e := echo.New()
    protected(e, JWTAuth(secret), RequireRole(RoleAdmin))

    admin, err := utils.NewAccessToken(secret, 42, "admin", 5)
    require.NoError(t, err)
    rec := do(e, http.MethodGet, "/v1/courses/1/whoami", admin.Token)
    require.Equal(t, http.StatusOK, rec.Code)
    require.JSONEq(t, `{"admin_id":42}`, rec.Body.String())

    staff, err := utils.NewAccessToken(secret, 43, "STAFF", 5)
    require.NoError(t, err)
    require.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/v1/courses/1/whoami", staff.Token).Code)

    forged, err := utils.NewAccessToken("other-secret", 42, "ADMIN", 5)
    require.NoError(t, err)
    require.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/courses/1/whoami", forged.Token).Code)

    expired, err := utils.NewAccessToken(secret, 42, "ADMIN", -5)
    require.NoError(t, err)
    require.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/courses/1/whoami", expired.Token).Code)

    require.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/courses/1/whoami", "").Code)

    noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "ADMIN"}).SignedString([]byte(secret))
    require.NoError(t, err)
    require.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/courses/1/whoami", noSub).Code)

    strSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "role": "ADMIN"}).SignedString([]byte(secret))
    require.NoError(t, err)
    rec = do(e, http.MethodGet, "/v1/courses/1/whoami", strSub)
    require.Equal(t, http.StatusOK, rec.Code)
    require.JSONEq(t, `{"admin_id":7}`, rec.Body.String())
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return mr, rdb
}

func TestTokenBucket(t *testing.T) {
    _, rdb := newRedis(t)
    cfg := config.RateLimitConfig{
        Enabled: true, Capacity: 4, RefillTokens: 1, RefillInterval: time.Hour,
        TTL: 5 * time.Hour, KeyStrategy: "user_route", Prefix: "rl", WriteCost: 3,
    }
    e := echo.New()
    ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
    e.GET("/r", ok, NewTokenBucket(cfg, rdb))
    e.POST("/w", ok, NewTokenBucket(cfg, rdb))

    rec := do(e, http.MethodPost, "/w", "")
    require.Equal(t, http.StatusNoContent, rec.Code)
    require.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

    rec = do(e, http.MethodPost, "/w", "")
    require.Equal(t, http.StatusTooManyRequests, rec.Code)
    require.NotEmpty(t, rec.Header().Get("Retry-After"))

    // Reads have their own bucket per route.
    for i := 0; i < 4; i++ {
        require.Equal(t, http.StatusNoContent, do(e, http.MethodGet, "/r", "").Code)
    }
    require.Equal(t, http.StatusTooManyRequests, do(e, http.MethodGet, "/r", "").Code)
}

func TestTokenBucketPassThrough(t *testing.T) {
    e := echo.New()
    e.GET("/r", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
        NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil))
    for i := 0; i < 3; i++ {
        require.Equal(t, http.StatusNoContent, do(e, http.MethodGet, "/r", "").Code)
    }
}

func TestRedisCacheAndPurge(t *testing.T) {
    mr, rdb := newRedis(t)
    cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "layout"}
    calls := 0
    e := echo.New()
    e.GET("/v1/courses/:id/seating/layout", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, echo.Map{"course": c.Param("id"), "calls": calls})
    }, NewRedisCache(cfg, rdb))

    first := do(e, http.MethodGet, "/v1/courses/1/seating/layout", "")
    require.Equal(t, "MISS", first.Header().Get("X-Cache"))
    second := do(e, http.MethodGet, "/v1/courses/1/seating/layout", "")
    require.Equal(t, "HIT", second.Header().Get("X-Cache"))
    require.Equal(t, first.Body.String(), second.Body.String())

    other := do(e, http.MethodGet, "/v1/courses/2/seating/layout", "")
    require.Equal(t, "MISS", other.Header().Get("X-Cache"))
    require.Contains(t, other.Body.String(), `"course":"2"`)
    require.Len(t, mr.Keys(), 2)

    require.NoError(t, PurgeCourse(context.Background(), cfg, rdb, 1))
    require.Len(t, mr.Keys(), 1)
    third := do(e, http.MethodGet, "/v1/courses/1/seating/layout", "")
    require.Equal(t, "MISS", third.Header().Get("X-Cache"))
    require.Equal(t, 3, calls)

    require.NoError(t, PurgeCourse(context.Background(), cfg, nil, 1))
}
