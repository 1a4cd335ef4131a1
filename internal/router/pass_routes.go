package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/park-passes/internal/handler"
)

// RegisterPasses registers the pass endpoints.  Ownership is checked by
// the service; only cancellation is staff-only at the route.
func RegisterPasses(e *echo.Echo, h *handler.PassHandler, jwtSecret string) {
	g := e.Group("/v1/passes", authenticated(jwtSecret)...)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.POST("/:id/checkout", h.Checkout)
	g.POST("/:id/cancel-renewal", h.CancelRenewal)
	g.GET("/:id/qr", h.QRCode)
	g.GET("/:id/document", h.Document)

	staff := e.Group("/v1/passes", staffOnly(jwtSecret)...)
	staff.POST("/:id/cancellation", h.Cancel)
	staff.DELETE("/:id/cancellation", h.Uncancel)
}

// RegisterVouchers registers the voucher endpoints.  Validation is public
// and guarded by its own rate limit bucket.
func RegisterVouchers(e *echo.Echo, h *handler.VoucherHandler, jwtSecret string, validateLimit echo.MiddlewareFunc) {
	e.GET("/v1/vouchers/validate", h.Validate, validateLimit)

	g := e.Group("/v1/vouchers", authenticated(jwtSecret)...)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.POST("/:id/checkout", h.Checkout)

	staff := e.Group("/v1/voucher-transactions", staffOnly(jwtSecret)...)
	staff.GET("", h.ListTransactions)
	staff.POST("", h.AddTransaction)
}
