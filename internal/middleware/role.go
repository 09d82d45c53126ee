package middleware // middleware provides shared request processing for handlers

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
)

// RoleAdmin is the role claim of retreat-center administrators.
const RoleAdmin = "ADMIN"

// RequireRole aborts with 403 unless the "role" stored by JWTAuth is one of
// roles.  Roles compare case-insensitively.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[strings.ToUpper(r)] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get("role").(string)
            if !ok || !allowed[strings.ToUpper(role)] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}
