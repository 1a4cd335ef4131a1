package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/repository"
	"github.com/iliyamo/park-passes/internal/service"
)

// PassHandler serves the pass cart, checkout and cancellation endpoints.
type PassHandler struct {
	Svc  *service.PassService
	Docs *service.DocumentService
}

func NewPassHandler(s *service.PassService, d *service.DocumentService) *PassHandler {
	return &PassHandler{Svc: s, Docs: d}
}

type createPassReq struct {
	OptionID                     uint64  `json:"option_id" validate:"required"`
	FirstName                    string  `json:"first_name" validate:"required,max=50"`
	LastName                     string  `json:"last_name" validate:"required,max=50"`
	Email                        string  `json:"email" validate:"required,email,max=100"`
	Mobile                       string  `json:"mobile" validate:"required,max=10"`
	Company                      *string `json:"company" validate:"omitempty,max=50"`
	AddressLine1                 *string `json:"address_line_1" validate:"omitempty,max=100"`
	AddressLine2                 *string `json:"address_line_2" validate:"omitempty,max=100"`
	Suburb                       *string `json:"suburb" validate:"omitempty,max=100"`
	State                        *string `json:"state" validate:"omitempty,max=3"`
	Postcode                     *string `json:"postcode" validate:"omitempty,numeric,len=4"`
	RacMemberNumber              *string `json:"rac_member_number" validate:"omitempty,max=20"`
	VehicleRegistration1         *string `json:"vehicle_registration_1" validate:"omitempty,max=9"`
	VehicleRegistration2         *string `json:"vehicle_registration_2" validate:"omitempty,max=9"`
	DriversLicenceNumber         *string `json:"drivers_licence_number" validate:"omitempty,max=11"`
	DateStart                    string  `json:"date_start" validate:"required,datetime=2006-01-02"`
	RenewAutomatically           bool    `json:"renew_automatically"`
	PreventFurtherVehicleUpdates bool    `json:"prevent_further_vehicle_updates"`
}

type updatePassReq struct {
	FirstName            *string `json:"first_name" validate:"omitempty,max=50"`
	LastName             *string `json:"last_name" validate:"omitempty,max=50"`
	Email                *string `json:"email" validate:"omitempty,email,max=100"`
	Mobile               *string `json:"mobile" validate:"omitempty,max=10"`
	Company              *string `json:"company" validate:"omitempty,max=50"`
	AddressLine1         *string `json:"address_line_1" validate:"omitempty,max=100"`
	AddressLine2         *string `json:"address_line_2" validate:"omitempty,max=100"`
	Suburb               *string `json:"suburb" validate:"omitempty,max=100"`
	State                *string `json:"state" validate:"omitempty,max=3"`
	Postcode             *string `json:"postcode" validate:"omitempty,numeric,len=4"`
	VehicleRegistration1 *string `json:"vehicle_registration_1" validate:"omitempty,max=9"`
	VehicleRegistration2 *string `json:"vehicle_registration_2" validate:"omitempty,max=9"`
	DateStart            *string `json:"date_start" validate:"omitempty,datetime=2006-01-02"`
	RenewAutomatically   *bool   `json:"renew_automatically"`
}

type checkoutReq struct {
	ConcessionID         *uint64 `json:"concession_id"`
	ConcessionCardNumber string  `json:"concession_card_number" validate:"max=50"`
	DiscountCode         string  `json:"discount_code" validate:"max=50"`
	VoucherCode          string  `json:"voucher_code" validate:"omitempty,len=8"`
	VoucherPin           string  `json:"voucher_pin" validate:"omitempty,numeric,len=6"`
}

type cancelReq struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

// Create: POST /v1/passes
func (h *PassHandler) Create(c echo.Context) error {
	var req createPassReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Svc.Create(ctx, actor(c), service.PassInput{
		OptionID:                     req.OptionID,
		FirstName:                    req.FirstName,
		LastName:                     req.LastName,
		Email:                        req.Email,
		Mobile:                       req.Mobile,
		Company:                      req.Company,
		AddressLine1:                 req.AddressLine1,
		AddressLine2:                 req.AddressLine2,
		Suburb:                       req.Suburb,
		State:                        req.State,
		Postcode:                     req.Postcode,
		RacMemberNumber:              req.RacMemberNumber,
		VehicleRegistration1:         req.VehicleRegistration1,
		VehicleRegistration2:         req.VehicleRegistration2,
		DriversLicenceNumber:         req.DriversLicenceNumber,
		DateStart:                    parseDate(req.DateStart),
		RenewAutomatically:           req.RenewAutomatically,
		PreventFurtherVehicleUpdates: req.PreventFurtherVehicleUpdates,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// passFilter reads the list filters: pass_type_id, status, in_cart, limit
// and offset.
func passFilter(c echo.Context) (repository.PassFilter, error) {
	var f repository.PassFilter
	var err error
	if f.PassType, err = queryID(c, "pass_type_id"); err != nil {
		return f, err
	}
	if raw := c.QueryParam("status"); raw != "" {
		st := model.PassStatus(raw)
		switch st {
		case model.PassStatusFuture, model.PassStatusCurrent, model.PassStatusExpired, model.PassStatusCancelled:
		default:
			return f, &model.ValidationError{Msg: "status must be one of FU, CU, EX, CA"}
		}
		f.Status = &st
	}
	if raw := c.QueryParam("in_cart"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return f, &model.ValidationError{Msg: "invalid in_cart"}
		}
		f.InCart = &b
	}
	f.Limit, f.Offset, err = page(c)
	return f, err
}

// page reads limit and offset; the limit defaults to 50 and is capped at 200.
func page(c echo.Context) (limit, offset int, err error) {
	limit = 50
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit <= 0 {
			return 0, 0, &model.ValidationError{Msg: "invalid limit"}
		}
		if limit > 200 {
			limit = 200
		}
	}
	if raw := c.QueryParam("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			return 0, 0, &model.ValidationError{Msg: "invalid offset"}
		}
	}
	return limit, offset, nil
}

// List: GET /v1/passes
func (h *PassHandler) List(c echo.Context) error {
	f, err := passFilter(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	passes, err := h.Svc.List(ctx, actor(c), f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, passes)
}

// Get: GET /v1/passes/:id
func (h *PassHandler) Get(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Svc.Get(ctx, actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Update: PATCH /v1/passes/:id
func (h *PassHandler) Update(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	var req updatePassReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	u := service.PassUpdate{
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		Email:                req.Email,
		Mobile:               req.Mobile,
		Company:              req.Company,
		AddressLine1:         req.AddressLine1,
		AddressLine2:         req.AddressLine2,
		Suburb:               req.Suburb,
		State:                req.State,
		Postcode:             req.Postcode,
		VehicleRegistration1: req.VehicleRegistration1,
		VehicleRegistration2: req.VehicleRegistration2,
		RenewAutomatically:   req.RenewAutomatically,
	}
	if req.DateStart != nil {
		d := parseDate(*req.DateStart)
		u.DateStart = &d
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Svc.Update(ctx, actor(c), id, u)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Checkout: POST /v1/passes/:id/checkout
func (h *PassHandler) Checkout(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	var req checkoutReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Svc.Checkout(ctx, actor(c), id, service.CheckoutInput{
		ConcessionID:         req.ConcessionID,
		ConcessionCardNumber: req.ConcessionCardNumber,
		DiscountCode:         req.DiscountCode,
		VoucherCode:          req.VoucherCode,
		VoucherPin:           req.VoucherPin,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// CancelRenewal: POST /v1/passes/:id/cancel-renewal
func (h *PassHandler) CancelRenewal(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Svc.CancelRenewal(ctx, actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Cancel: POST /v1/passes/:id/cancellation (staff)
func (h *PassHandler) Cancel(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	var req cancelReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Svc.Cancel(ctx, id, req.Reason)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Uncancel: DELETE /v1/passes/:id/cancellation (staff)
func (h *PassHandler) Uncancel(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Svc.Uncancel(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// QRCode: GET /v1/passes/:id/qr
func (h *PassHandler) QRCode(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	png, err := h.Docs.PassQR(ctx, actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// Document: GET /v1/passes/:id/document
func (h *PassHandler) Document(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	png, err := h.Docs.PassDocument(ctx, actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
