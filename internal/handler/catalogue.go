package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/service"
)

// CatalogueHandler serves pass types, pricing windows and their options.
type CatalogueHandler struct {
	Svc *service.CatalogueService
}

func NewCatalogueHandler(s *service.CatalogueService) *CatalogueHandler {
	return &CatalogueHandler{Svc: s}
}

type passTypeReq struct {
	Name              string  `json:"name" validate:"required,max=100"`
	DisplayName       string  `json:"display_name" validate:"required,max=100"`
	Description       *string `json:"description"`
	OracleCode        *string `json:"oracle_code" validate:"omitempty,max=50"`
	DisplayOrder      int16   `json:"display_order" validate:"gte=0"`
	DisplayRetailer   bool    `json:"display_retailer"`
	DisplayExternally bool    `json:"display_externally"`
}

func (r passTypeReq) model() model.PassType {
	return model.PassType{
		Name:              strings.TrimSpace(r.Name),
		DisplayName:       strings.TrimSpace(r.DisplayName),
		Description:       r.Description,
		OracleCode:        r.OracleCode,
		DisplayOrder:      r.DisplayOrder,
		DisplayRetailer:   r.DisplayRetailer,
		DisplayExternally: r.DisplayExternally,
	}
}

type optionReq struct {
	PricingWindowID uint64          `json:"pricing_window_id"`
	Name            string          `json:"name" validate:"required,max=50"`
	Duration        int             `json:"duration" validate:"required,gt=0"`
	Price           decimal.Decimal `json:"price"`
}

type windowReq struct {
	PassTypeID uint64      `json:"pass_type_id" validate:"required"`
	Name       string      `json:"name" validate:"max=50"`
	DateStart  string      `json:"date_start" validate:"required,datetime=2006-01-02"`
	DateExpiry *string     `json:"date_expiry" validate:"omitempty,datetime=2006-01-02"`
	Options    []optionReq `json:"options" validate:"dive"`
}

func (r windowReq) model() model.PricingWindow {
	w := model.PricingWindow{
		PassTypeID: r.PassTypeID,
		Name:       strings.TrimSpace(r.Name),
		DateStart:  parseDate(r.DateStart),
	}
	if r.DateExpiry != nil {
		exp := parseDate(*r.DateExpiry)
		w.DateExpiry = &exp
	}
	for _, o := range r.Options {
		w.Options = append(w.Options, model.PricingOption{Name: strings.TrimSpace(o.Name), Duration: o.Duration, Price: o.Price.Round(2)})
	}
	return w
}

// ListPassTypes: GET /v1/pass-types
func (h *CatalogueHandler) ListPassTypes(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	types, err := h.Svc.ListPassTypes(ctx, actor(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, types)
}

// GetPassType: GET /v1/pass-types/:id
func (h *CatalogueHandler) GetPassType(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Svc.GetPassType(ctx, actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// CurrentOptions: GET /v1/pass-types/:id/options
func (h *CatalogueHandler) CurrentOptions(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	opts, err := h.Svc.CurrentOptions(ctx, actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, opts)
}

func (h *CatalogueHandler) CreatePassType(c echo.Context) error {
	var req passTypeReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	t := req.model()
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.CreatePassType(ctx, &t); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *CatalogueHandler) UpdatePassType(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	var req passTypeReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	t := req.model()
	t.ID = id
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.UpdatePassType(ctx, &t); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// ListWindows: GET /v1/pricing-windows?pass_type_id=
func (h *CatalogueHandler) ListWindows(c echo.Context) error {
	passTypeID, err := queryID(c, "pass_type_id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ws, err := h.Svc.ListWindows(ctx, passTypeID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ws)
}

func (h *CatalogueHandler) GetWindow(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	w, err := h.Svc.GetWindow(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

func (h *CatalogueHandler) CreateWindow(c echo.Context) error {
	var req windowReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	w := req.model()
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.CreateWindow(ctx, &w); err != nil {
		return fail(c, err)
	}
	view, err := h.Svc.GetWindow(ctx, w.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}

func (h *CatalogueHandler) DeleteWindow(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.DeleteWindow(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListOptions: GET /v1/pricing-options?pricing_window_id=
func (h *CatalogueHandler) ListOptions(c echo.Context) error {
	windowID, err := queryID(c, "pricing_window_id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	opts, err := h.Svc.ListOptions(ctx, windowID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, opts)
}

func (h *CatalogueHandler) CreateOption(c echo.Context) error {
	var req optionReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	if req.PricingWindowID == 0 {
		return fail(c, &model.ValidationError{Msg: "pricing_window_id is required"})
	}
	o := model.PricingOption{PricingWindowID: req.PricingWindowID, Name: strings.TrimSpace(req.Name), Duration: req.Duration, Price: req.Price}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.CreateOption(ctx, &o); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *CatalogueHandler) DeleteOption(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.DeleteOption(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
