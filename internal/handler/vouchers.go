package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/repository"
	"github.com/iliyamo/park-passes/internal/service"
)

// VoucherHandler serves holiday pass vouchers and their ledger.
type VoucherHandler struct {
	Svc *service.VoucherService
}

func NewVoucherHandler(s *service.VoucherService) *VoucherHandler {
	return &VoucherHandler{Svc: s}
}

type createVoucherReq struct {
	RecipientName   string          `json:"recipient_name" validate:"required,max=50"`
	RecipientEmail  string          `json:"recipient_email" validate:"required,email,max=255"`
	DatetimeToEmail time.Time       `json:"datetime_to_email" validate:"required"`
	PersonalMessage string          `json:"personal_message" validate:"max=1000"`
	Amount          decimal.Decimal `json:"amount"`
}

type updateVoucherReq struct {
	RecipientName   *string    `json:"recipient_name" validate:"omitempty,max=50"`
	RecipientEmail  *string    `json:"recipient_email" validate:"omitempty,email,max=255"`
	DatetimeToEmail *time.Time `json:"datetime_to_email"`
	PersonalMessage *string    `json:"personal_message" validate:"omitempty,max=1000"`
}

type transactionReq struct {
	VoucherID uint64          `json:"voucher_id" validate:"required"`
	Credit    decimal.Decimal `json:"credit"`
	Debit     decimal.Decimal `json:"debit"`
}

// Create: POST /v1/vouchers
func (h *VoucherHandler) Create(c echo.Context) error {
	var req createVoucherReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.Svc.Create(ctx, actor(c), service.VoucherInput{
		RecipientName:   req.RecipientName,
		RecipientEmail:  req.RecipientEmail,
		DatetimeToEmail: req.DatetimeToEmail,
		PersonalMessage: req.PersonalMessage,
		Amount:          req.Amount,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

// List: GET /v1/vouchers?processing_status=&to_email_from=&to_email_to=
func (h *VoucherHandler) List(c echo.Context) error {
	var f repository.VoucherFilter
	if raw := c.QueryParam("processing_status"); raw != "" {
		st := model.VoucherStatus(raw)
		switch st {
		case model.VoucherStatusNew, model.VoucherStatusDelivered, model.VoucherStatusNotDelivered:
		default:
			return fail(c, &model.ValidationError{Msg: "processing_status must be one of N, D, ND"})
		}
		f.Status = &st
	}
	var err error
	if f.ToEmailFrom, err = queryDate(c, "to_email_from"); err != nil {
		return fail(c, err)
	}
	if f.ToEmailTo, err = queryDate(c, "to_email_to"); err != nil {
		return fail(c, err)
	}
	if f.ToEmailTo != nil {
		// inclusive of the whole final day
		end := f.ToEmailTo.AddDate(0, 0, 1)
		f.ToEmailTo = &end
	}
	if f.Limit, f.Offset, err = page(c); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	vs, err := h.Svc.List(ctx, actor(c), f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, vs)
}

// Get: GET /v1/vouchers/:id
func (h *VoucherHandler) Get(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.Svc.Get(ctx, actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Update: PATCH /v1/vouchers/:id
func (h *VoucherHandler) Update(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	var req updateVoucherReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.Svc.Update(ctx, actor(c), id, service.VoucherUpdate{
		RecipientName:   req.RecipientName,
		RecipientEmail:  req.RecipientEmail,
		DatetimeToEmail: req.DatetimeToEmail,
		PersonalMessage: req.PersonalMessage,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Checkout: POST /v1/vouchers/:id/checkout
func (h *VoucherHandler) Checkout(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.Svc.Checkout(ctx, actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// Validate: GET /v1/vouchers/validate?email=&code=&pin=
// Incomplete queries are answered as an invalid voucher.
func (h *VoucherHandler) Validate(c echo.Context) error {
	email, code, pin := c.QueryParam("email"), c.QueryParam("code"), c.QueryParam("pin")
	if email == "" || code == "" || pin == "" {
		return c.JSON(http.StatusOK, service.ValidationResult{})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Svc.Validate(ctx, email, code, pin)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListTransactions: GET /v1/voucher-transactions?voucher_id= (staff)
func (h *VoucherHandler) ListTransactions(c echo.Context) error {
	voucherID, err := queryID(c, "voucher_id")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	ts, err := h.Svc.ListTransactions(ctx, voucherID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ts)
}

// AddTransaction: POST /v1/voucher-transactions (staff)
func (h *VoucherHandler) AddTransaction(c echo.Context) error {
	var req transactionReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	t, err := h.Svc.AddTransaction(ctx, service.TransactionInput{VoucherID: req.VoucherID, Credit: req.Credit, Debit: req.Debit})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}
