// Package router registers the HTTP routes of the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/park-passes/internal/handler"
	"github.com/iliyamo/park-passes/internal/middleware"
	"github.com/iliyamo/park-passes/internal/model"
)

// anyRole admits every authenticated user.
var anyRole = []string{model.RoleStaff, model.RoleRetailer, model.RoleCustomer}

func authenticated(jwtSecret string) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireRole(anyRole...)}
}

func staffOnly(jwtSecret string) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleStaff)}
}

// RegisterRoutes registers the unauthenticated health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers session endpoints.  Register, login and refresh
// need no token; logout accepts either a refresh token in the body or the
// caller's access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))

	e.GET("/v1/me", a.Me, authenticated(jwtSecret)...)
	e.POST("/v1/users", a.CreateUser, staffOnly(jwtSecret)...)
}
