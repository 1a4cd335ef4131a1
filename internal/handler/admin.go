package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/service"
)

// maxTemplateBytes caps pass template uploads.
const maxTemplateBytes = 10 << 20

// AdminHandler serves the staff managed reference data, retailer reports
// and pass templates.
type AdminHandler struct {
	Admin *service.AdminService
	Docs  *service.DocumentService
}

func NewAdminHandler(a *service.AdminService, d *service.DocumentService) *AdminHandler {
	return &AdminHandler{Admin: a, Docs: d}
}

type concessionReq struct {
	ConcessionType     string          `json:"concession_type" validate:"required,max=50"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DisplayOrder       int16           `json:"display_order" validate:"gte=0"`
}

type discountCodeReq struct {
	Code               string           `json:"code" validate:"required,alphanum,max=50"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
	DiscountAmount     *decimal.Decimal `json:"discount_amount"`
	DatetimeStart      time.Time        `json:"datetime_start" validate:"required"`
	DatetimeExpiry     time.Time        `json:"datetime_expiry" validate:"required"`
	MaxUses            *int             `json:"max_uses" validate:"omitempty,gt=0"`
}

type retailerGroupReq struct {
	Name                 string          `json:"name" validate:"required,max=150"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
	Active               *bool           `json:"active"`
}

func (h *AdminHandler) ListConcessions(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	cs, err := h.Admin.ListConcessions(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *AdminHandler) CreateConcession(c echo.Context) error {
	var req concessionReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	con := model.Concession{ConcessionType: req.ConcessionType, DiscountPercentage: req.DiscountPercentage, DisplayOrder: req.DisplayOrder}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Admin.CreateConcession(ctx, &con); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, con)
}

func (h *AdminHandler) ListDiscountCodes(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ds, err := h.Admin.ListDiscountCodes(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ds)
}

func (h *AdminHandler) CreateDiscountCode(c echo.Context) error {
	var req discountCodeReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	d := model.DiscountCode{
		Code:               req.Code,
		DiscountPercentage: req.DiscountPercentage,
		DiscountAmount:     req.DiscountAmount,
		DatetimeStart:      req.DatetimeStart.UTC(),
		DatetimeExpiry:     req.DatetimeExpiry.UTC(),
		MaxUses:            req.MaxUses,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Admin.CreateDiscountCode(ctx, &d); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *AdminHandler) ListRetailerGroups(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	gs, err := h.Admin.ListRetailerGroups(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, gs)
}

func (h *AdminHandler) CreateRetailerGroup(c echo.Context) error {
	var req retailerGroupReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	g := model.RetailerGroup{Name: req.Name, CommissionPercentage: req.CommissionPercentage, Active: true}
	if req.Active != nil {
		g.Active = *req.Active
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Admin.CreateRetailerGroup(ctx, &g); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, g)
}

// ListReports: GET /v1/reports
func (h *AdminHandler) ListReports(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	rs, err := h.Admin.ListReports(ctx, actor(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rs)
}

// UploadTemplate: POST /v1/pass-templates, multipart field "file".
func (h *AdminHandler) UploadTemplate(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, &model.ValidationError{Msg: "file is required"})
	}
	if fh.Size > maxTemplateBytes {
		return fail(c, &model.ValidationError{Msg: "file is too large"})
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, err)
	}
	defer f.Close()
	body, err := io.ReadAll(io.LimitReader(f, maxTemplateBytes))
	if err != nil {
		return fail(c, err)
	}
	if len(body) == 0 {
		return fail(c, &model.ValidationError{Msg: "file is empty"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Docs.UploadTemplate(ctx, body)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *AdminHandler) ListTemplates(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	ts, err := h.Docs.ListTemplates(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ts)
}
