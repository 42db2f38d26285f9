package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bookshare/bookshare-go/internal/auth"
)

// claimsKey is the context key the validated principal is stored under.
// Handlers retrieve it through ClaimsFrom and pass it on explicitly;
// nothing else reads it.
const claimsKey = "claims"

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the immutable claims value into the request context. The
// provided secret must match the one used when issuing tokens. Expired or
// malformed tokens are rejected with 401; the refresh endpoint is the only
// place expired tokens are accepted, and it does its own parsing.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := auth.Parse(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// ClaimsFrom extracts the validated principal placed by JWTAuth. The
// boolean is false on routes that did not run the middleware.
func ClaimsFrom(c echo.Context) (auth.Claims, bool) {
	claims, ok := c.Get(claimsKey).(auth.Claims)
	return claims, ok
}
