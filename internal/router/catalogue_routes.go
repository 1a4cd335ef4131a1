package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/park-passes/internal/handler"
	"github.com/iliyamo/park-passes/internal/middleware"
)

// RegisterCatalogue registers pass types, pricing windows and options.
// The pass type reads are public, vary by caller role and go through the
// response cache.
func RegisterCatalogue(e *echo.Echo, h *handler.CatalogueHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	pub := e.Group("/v1/pass-types", middleware.OptionalJWT(jwtSecret))
	pub.GET("", h.ListPassTypes, cache)
	pub.GET("/:id", h.GetPassType, cache)
	pub.GET("/:id/options", h.CurrentOptions, cache)

	auth := e.Group("/v1", authenticated(jwtSecret)...)
	auth.GET("/pricing-windows", h.ListWindows)
	auth.GET("/pricing-windows/:id", h.GetWindow)
	auth.GET("/pricing-options", h.ListOptions)

	staff := e.Group("/v1", staffOnly(jwtSecret)...)
	staff.POST("/pass-types", h.CreatePassType)
	staff.PUT("/pass-types/:id", h.UpdatePassType)
	staff.POST("/pricing-windows", h.CreateWindow)
	staff.DELETE("/pricing-windows/:id", h.DeleteWindow)
	staff.POST("/pricing-options", h.CreateOption)
	staff.DELETE("/pricing-options/:id", h.DeleteOption)
}
