package middleware // reusable HTTP middleware: auth, roles, rate limiting, caching

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/park-passes/internal/utils"
)

// Context keys set by the auth middleware.
const (
	ctxUserID          = "user_id"
	ctxRole            = "role"
	ctxRetailerGroupID = "retailer_group_id"
)

// JWTAuth validates a Bearer access token and injects the user id, role
// and retailer group into the request context.  Requests without a valid
// token are answered with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			if err := authenticate(c, secret, raw); err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			return next(c)
		}
	}
}

// OptionalJWT is JWTAuth for public endpoints whose output depends on the
// caller: an absent token passes through anonymously, an invalid one is
// still rejected.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return next(c)
			}
			if err := authenticate(c, secret, raw); err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			return next(c)
		}
	}
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(auth, "Bearer "), true
}

func authenticate(c echo.Context, secret, raw string) error {
	claims, err := utils.ParseAccessToken(secret, raw)
	if err != nil {
		return err
	}
	uid, err := claims.UserID()
	if err != nil {
		return err
	}
	c.Set(ctxUserID, uid)
	c.Set(ctxRole, claims.Role)
	c.Set(ctxRetailerGroupID, claims.RetailerGroupID)
	return nil
}
