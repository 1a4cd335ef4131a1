package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/park-passes/internal/handler"
	"github.com/iliyamo/park-passes/internal/middleware"
	"github.com/iliyamo/park-passes/internal/model"
)

// RegisterAdmin registers staff reference data, pass templates and the
// retailer reports.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1", staffOnly(jwtSecret)...)
	g.GET("/concessions", h.ListConcessions)
	g.POST("/concessions", h.CreateConcession)
	g.GET("/discount-codes", h.ListDiscountCodes)
	g.POST("/discount-codes", h.CreateDiscountCode)
	g.GET("/retailer-groups", h.ListRetailerGroups)
	g.POST("/retailer-groups", h.CreateRetailerGroup)
	g.GET("/pass-templates", h.ListTemplates)
	g.POST("/pass-templates", h.UploadTemplate)

	e.GET("/v1/reports", h.ListReports, middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleStaff, model.RoleRetailer))
}
