package handler // declare the package name; contains HTTP handlers

import (
    "context"  // checks receive a bounded context
    "net/http" // net/http provides status codes
    "sort"     // checks are reported in name order
    "time"     // per-check timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Check reports whether one dependency (database, redis) is reachable.
type Check func(ctx context.Context) error

// Health returns the health-check endpoint used by load balancers and
// monitoring systems.  With no checks it always answers 200 "ok"; otherwise
// every check runs with a two second budget and any failure turns the
// response into a 503 listing the failing dependency.
func Health(checks map[string]Check) echo.HandlerFunc {
    names := make([]string, 0, len(checks))
    for name := range checks {
        names = append(names, name)
    }
    sort.Strings(names)

    return func(c echo.Context) error {
        if len(names) == 0 {
            return c.String(http.StatusOK, "ok")
        }
        status := http.StatusOK
        result := map[string]string{}
        for _, name := range names {
            ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
            err := checks[name](ctx)
            cancel()
            if err != nil {
                status = http.StatusServiceUnavailable
                result[name] = err.Error()
                continue
            }
            result[name] = "ok"
        }
        state := "ok"
        if status != http.StatusOK {
            state = "degraded"
        }
        return c.JSON(status, echo.Map{"status": state, "checks": result})
    }
}
