package middleware // reusable HTTP middleware for the admin API

import (
    "net/http" // HTTP status codes for responses
    "strings"  // prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // token parsing and validation
    "github.com/labstack/echo/v4"  // middleware and handler types
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the administrator id and role into the request context.  The
// token is minted by the login collaborator with the same secret; this
// service only verifies it.  Handlers read the values with AdminID(c) and
// c.Get("role").
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Only HMAC signed tokens are accepted.
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
            id, ok := claimID(claims["sub"])
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
            }

            c.Set(ctxAdminID, id)
            c.Set("role", claims["role"])
            return next(c)
        }
    }
}
