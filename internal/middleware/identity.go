package middleware

// identity.go holds the helpers that read the authenticated administrator
// from the Echo context.  JWTAuth stores the id; handlers, the rate limiter
// and the selection store key off it.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

const ctxAdminID = "admin_id"

// AdminID returns the id of the authenticated administrator.
func AdminID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(ctxAdminID).(uint64)
    return id, ok && id != 0
}

// claimID accepts the subject as a JSON number or a decimal string.
func claimID(v interface{}) (uint64, bool) {
    switch t := v.(type) {
    case float64:
        if t <= 0 || t != float64(uint64(t)) {
            return 0, false
        }
        return uint64(t), true
    case string:
        n, err := strconv.ParseUint(t, 10, 64)
        return n, err == nil && n != 0
    }
    return 0, false
}

// currentUserID renders the administrator id for rate limit keys; "anon"
// when the request is not authenticated.
func currentUserID(c echo.Context) string {
    if id, ok := AdminID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
