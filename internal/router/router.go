package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"  // Echo web framework
	"github.com/redis/go-redis/v9" // shared client for rate limiting and caching

	"github.com/iliyamo/retreat-allocation/internal/config"     // middleware settings
	"github.com/iliyamo/retreat-allocation/internal/handler"    // admin and health handlers
	"github.com/iliyamo/retreat-allocation/internal/middleware" // JWT, role, rate limit and cache middleware
)

// Deps carries what RegisterRoutes needs.  Redis and Metrics are optional;
// without Redis the rate limiter and the layout cache pass requests
// through.
type Deps struct {
	Admin     *handler.AdminHandler
	JWTSecret string
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
	Checks    map[string]handler.Check
	Metrics   http.Handler
}

// RegisterRoutes registers the unauthenticated health checks and the admin API.
func RegisterRoutes(e *echo.Echo, d Deps) {
	// Liveness never touches dependencies; readiness does.
	e.GET("/healthz", handler.Health(nil))
	e.GET("/readyz", handler.Health(d.Checks))
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	RegisterAdmin(e, d)
}

// RegisterAdmin registers the ADMIN-scoped endpoints under /v1.  Every
// route requires a valid JWT with the ADMIN role and is rate limited per
// administrator.
func RegisterAdmin(e *echo.Echo, d Deps) {
	h := d.Admin
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(middleware.RoleAdmin),
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
	)

	// ---- Participants ----
	g.GET("/courses/:id/participants", h.ListParticipants)
	g.POST("/courses/:id/participants/import", h.ImportParticipants)
	g.PATCH("/courses/:id/participants/:pid/status", h.ChangeStatus)

	// ---- Seating ----
	g.GET("/courses/:id/seating", h.GetSeating)
	g.PUT("/courses/:id/seating", h.PutSeating)
	g.GET("/courses/:id/seating/layout", h.Layout, middleware.NewRedisCache(d.Cache, d.Redis))
	g.POST("/courses/:id/seating/auto-assign", h.AutoAssign)

	// ---- Pools ----
	g.GET("/courses/:id/pools/:pool/occupancy", h.Occupancy)
	g.GET("/courses/:id/pools/:pool/available", h.Available)
	g.POST("/courses/:id/pools/:pool/select", h.Select)
	g.POST("/courses/:id/pools/:pool/moves", h.Move)
	g.POST("/pools/:pool/resources", h.ImportResources)
}
