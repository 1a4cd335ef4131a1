// Package service holds the use cases of the park passes API.  Services
// own their transactions and talk to storage through the narrow
// interfaces below, so the handlers stay thin and the rules can be tested
// against in-memory fakes.
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/park-passes/internal/logging"
	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/repository"
)

var (
	ErrPassNotInCart         = &model.ValidationError{Msg: "this pass has already been checked out"}
	ErrPassCancelled         = &model.ValidationError{Msg: "this pass has been cancelled"}
	ErrPassAlreadyCancelled  = &model.ValidationError{Msg: "this pass has already been cancelled"}
	ErrOptionNotOnSale       = &model.ValidationError{Msg: "the selected option is not currently available for this pass type"}
	ErrVehicleUpdatesLocked  = &model.ValidationError{Msg: "vehicle details can no longer be changed for this pass"}
	ErrConcessionCardMissing = &model.ValidationError{Msg: "a concession card number is required"}
	ErrInvalidDiscountCode   = &model.ValidationError{Msg: "the discount code is not valid"}
	ErrInvalidVoucher        = &model.ValidationError{Msg: "the voucher code, pin or email is not valid"}
	ErrVoucherExpired        = &model.ValidationError{Msg: "the voucher has expired"}
	ErrVoucherNotInCart      = &model.ValidationError{Msg: "this voucher has already been purchased"}
	ErrVoucherDelivered      = &model.ValidationError{Msg: "the voucher has already been delivered"}
	ErrVoucherEmpty          = &model.ValidationError{Msg: "the voucher has no balance remaining"}
)

// Actor is the authenticated caller of a use case.  The zero value is an
// anonymous visitor.
type Actor struct {
	UserID          uint64
	Role            string
	RetailerGroupID *uint64
}

func (a Actor) IsStaff() bool    { return a.Role == model.RoleStaff }
func (a Actor) IsRetailer() bool { return a.Role == model.RoleRetailer && a.RetailerGroupID != nil }

// Transactor runs fn inside one database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type PassTypeStore interface {
	List(ctx context.Context, vis repository.PassTypeVisibility) ([]model.PassType, error)
	GetByID(ctx context.Context, id uint64) (model.PassType, error)
	Create(ctx context.Context, t *model.PassType) error
	Update(ctx context.Context, t *model.PassType) error
}

type WindowStore interface {
	List(ctx context.Context, passTypeID *uint64) ([]model.PricingWindow, error)
	ListByPassTypeTx(ctx context.Context, tx *sql.Tx, passTypeID uint64) ([]model.PricingWindow, error)
	GetByID(ctx context.Context, id uint64) (model.PricingWindow, error)
	CreateTx(ctx context.Context, tx *sql.Tx, w *model.PricingWindow) error
	Delete(ctx context.Context, id uint64) error
}

type OptionStore interface {
	List(ctx context.Context, windowID *uint64) ([]model.PricingOption, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.PricingOption, error)
	Create(ctx context.Context, o *model.PricingOption) error
	Delete(ctx context.Context, id uint64) error
}

type PassStore interface {
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Pass, error)
	GetByID(ctx context.Context, id uint64) (model.Pass, error)
	List(ctx context.Context, f repository.PassFilter) ([]model.Pass, error)
	ListExpiringOn(ctx context.Context, day time.Time) ([]model.Pass, error)
	ListSoldViaBetween(ctx context.Context, groupID uint64, from, to time.Time) ([]model.Pass, error)
	InsertTx(ctx context.Context, tx *sql.Tx, p *model.Pass) error
	SetPassNumberTx(ctx context.Context, tx *sql.Tx, id uint64, number string) error
	UpdateTx(ctx context.Context, tx *sql.Tx, p *model.Pass) error
	SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.PassStatus) error
	MarkPurchaseEmailSent(ctx context.Context, id uint64) error
	SetDocumentKey(ctx context.Context, id uint64, key string) error
	CreateCancellationTx(ctx context.Context, tx *sql.Tx, c *model.PassCancellation) error
	DeleteCancellationTx(ctx context.Context, tx *sql.Tx, passID uint64) error
	AttachConcessionTx(ctx context.Context, tx *sql.Tx, u *model.ConcessionUsage) error
	AttachDiscountCodeTx(ctx context.Context, tx *sql.Tx, u *model.DiscountCodeUsage) error
}

type ConcessionStore interface {
	List(ctx context.Context) ([]model.Concession, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Concession, error)
	Create(ctx context.Context, c *model.Concession) error
}

type DiscountCodeStore interface {
	List(ctx context.Context) ([]model.DiscountCode, error)
	GetByCodeTx(ctx context.Context, tx *sql.Tx, code string) (model.DiscountCode, error)
	Create(ctx context.Context, d *model.DiscountCode) error
}

type VoucherStore interface {
	InsertTx(ctx context.Context, tx *sql.Tx, v *model.Voucher) error
	SetVoucherNumberTx(ctx context.Context, tx *sql.Tx, id uint64, number string) error
	CodeExists(ctx context.Context, code string) (bool, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Voucher, error)
	GetByCodeTx(ctx context.Context, tx *sql.Tx, code string) (model.Voucher, error)
	FindRedeemable(ctx context.Context, email, code, pin string) (model.Voucher, error)
	List(ctx context.Context, f repository.VoucherFilter) ([]model.Voucher, error)
	ListDueForEmail(ctx context.Context, day time.Time) ([]model.Voucher, error)
	UpdateTx(ctx context.Context, tx *sql.Tx, v *model.Voucher) error
	SetStatus(ctx context.Context, id uint64, status model.VoucherStatus) error
}

type VoucherTransactionStore interface {
	ListByVoucherTx(ctx context.Context, tx *sql.Tx, voucherID uint64) ([]model.VoucherTransaction, error)
	List(ctx context.Context, voucherID *uint64) ([]model.VoucherTransaction, error)
	InsertTx(ctx context.Context, tx *sql.Tx, t *model.VoucherTransaction) error
}

type RetailerGroupStore interface {
	List(ctx context.Context) ([]model.RetailerGroup, error)
	ListInvoiceable(ctx context.Context, excludeName string) ([]model.RetailerGroup, error)
	GetByName(ctx context.Context, name string) (model.RetailerGroup, error)
	Create(ctx context.Context, g *model.RetailerGroup) error
}

type ReportStore interface {
	Upsert(ctx context.Context, rep *model.Report) error
	List(ctx context.Context, groupID *uint64) ([]model.Report, error)
}

type PassTemplateStore interface {
	Latest(ctx context.Context) (model.PassTemplate, error)
	List(ctx context.Context) ([]model.PassTemplate, error)
	Create(ctx context.Context, t *model.PassTemplate) error
}

type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// CachePurger drops cached catalogue responses.
type CachePurger interface {
	Purge(ctx context.Context)
}

func utcNow() time.Time { return time.Now().UTC() }

// logIntegrity reports configuration and data integrity failures at
// critical severity before they propagate.
func logIntegrity(err error, fields log.Fields) {
	if errors.Is(err, model.ErrIntegrity) {
		logging.Critical().WithFields(fields).WithError(err).Error("integrity violation")
	}
}
