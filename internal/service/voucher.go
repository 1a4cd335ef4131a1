package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/park-passes/internal/config"
	"github.com/iliyamo/park-passes/internal/ledger"
	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/queue"
	"github.com/iliyamo/park-passes/internal/repository"
)

var ErrVoucherAmountInvalid = &model.ValidationError{Msg: "the voucher amount must be greater than zero"}

// VoucherService sells, validates and adjusts gift vouchers.
type VoucherService struct {
	Vouchers    VoucherStore
	VoucherTxns VoucherTransactionStore
	Tx          Transactor
	Events      EventPublisher
	Settings    config.Settings
	Now         func() time.Time
}

func (s *VoucherService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return utcNow()
}

// VoucherInput carries a new voucher's recipient and value.
type VoucherInput struct {
	RecipientName   string
	RecipientEmail  string
	DatetimeToEmail time.Time
	PersonalMessage string
	Amount          decimal.Decimal
}

// VoucherUpdate carries the editable recipient details.  Nil fields are
// left untouched.
type VoucherUpdate struct {
	RecipientName   *string
	RecipientEmail  *string
	DatetimeToEmail *time.Time
	PersonalMessage *string
}

// VoucherDetails is a voucher with its remaining balance.
type VoucherDetails struct {
	model.Voucher
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	StatusDisplay    string          `json:"processing_status_display"`
}

// Create puts a new voucher in the cart.  Code and pin are assigned once
// here.  A code that collides at insert time with a concurrent purchase
// is redrawn, up to ledger.MaxCodeAttempts inserts.
func (s *VoucherService) Create(ctx context.Context, a Actor, in VoucherInput) (VoucherDetails, error) {
	if !in.Amount.IsPositive() {
		return VoucherDetails{}, ErrVoucherAmountInvalid
	}
	now := s.now()
	v := model.Voucher{
		RecipientName:    strings.TrimSpace(in.RecipientName),
		RecipientEmail:   strings.ToLower(strings.TrimSpace(in.RecipientEmail)),
		DatetimeToEmail:  in.DatetimeToEmail,
		PersonalMessage:  in.PersonalMessage,
		Amount:           in.Amount.Round(2),
		Expiry:           now.AddDate(0, 0, s.Settings.VoucherExpiryDays),
		ProcessingStatus: model.VoucherStatusNew,
		InCart:           true,
	}
	if v.DatetimeToEmail.IsZero() {
		v.DatetimeToEmail = now
	}
	if a.UserID != 0 {
		uid := a.UserID
		v.PurchaserID = &uid
	}
	pin, err := ledger.GeneratePIN()
	if err != nil {
		return VoucherDetails{}, err
	}
	v.Pin = pin

	err = s.Tx.WithinTx(ctx, func(tx *sql.Tx) error {
		for attempt := 1; ; attempt++ {
			code, err := ledger.GenerateUniqueCode(func(c string) (bool, error) { return s.Vouchers.CodeExists(ctx, c) })
			if err != nil {
				return err
			}
			v.Code = code
			err = s.Vouchers.InsertTx(ctx, tx, &v)
			if err == nil {
				break
			}
			if !repository.IsDuplicateKey(err) || attempt >= ledger.MaxCodeAttempts {
				return err
			}
			log.WithField("attempt", attempt).Warn("voucher code collided on insert; drawing a new one")
		}
		number := ledger.VoucherNumber(v.ID)
		if err := s.Vouchers.SetVoucherNumberTx(ctx, tx, v.ID, number); err != nil {
			return err
		}
		v.VoucherNumber = &number
		return nil
	})
	if err != nil {
		return VoucherDetails{}, err
	}
	log.WithFields(log.Fields{"voucher_id": v.ID, "voucher_number": *v.VoucherNumber}).Info("voucher created")
	return VoucherDetails{Voucher: v, RemainingBalance: v.Amount, StatusDisplay: v.ProcessingStatus.Display()}, nil
}

func authorizeVoucher(a Actor, v *model.Voucher) error {
	if a.IsStaff() {
		return nil
	}
	if a.UserID != 0 && v.PurchaserID != nil && *v.PurchaserID == a.UserID {
		return nil
	}
	return repository.ErrForbidden
}

func (s *VoucherService) details(ctx context.Context, tx *sql.Tx, v model.Voucher) (VoucherDetails, error) {
	txns, err := s.VoucherTxns.ListByVoucherTx(ctx, tx, v.ID)
	if err != nil {
		return VoucherDetails{}, err
	}
	remaining, err := ledger.RemainingBalance(v, txns)
	if err != nil {
		logIntegrity(err, log.Fields{"voucher_id": v.ID})
		return VoucherDetails{}, err
	}
	return VoucherDetails{Voucher: v, RemainingBalance: remaining, StatusDisplay: v.ProcessingStatus.Display()}, nil
}

// Get returns a voucher visible to a with its balance.
func (s *VoucherService) Get(ctx context.Context, a Actor, id uint64) (VoucherDetails, error) {
	v, err := s.Vouchers.GetByIDTx(ctx, nil, id)
	if err != nil {
		return VoucherDetails{}, err
	}
	if err := authorizeVoucher(a, &v); err != nil {
		return VoucherDetails{}, err
	}
	return s.details(ctx, nil, v)
}

// List returns vouchers; non-staff callers only see their purchases.
func (s *VoucherService) List(ctx context.Context, a Actor, f repository.VoucherFilter) ([]model.Voucher, error) {
	if !a.IsStaff() {
		if a.UserID == 0 {
			return nil, repository.ErrForbidden
		}
		uid := a.UserID
		f.PurchaserID = &uid
	}
	return s.Vouchers.List(ctx, f)
}

// Update edits the recipient details of a voucher that has not been
// delivered yet.
func (s *VoucherService) Update(ctx context.Context, a Actor, id uint64, u VoucherUpdate) (VoucherDetails, error) {
	var out VoucherDetails
	err := s.Tx.WithinTx(ctx, func(tx *sql.Tx) error {
		v, err := s.Vouchers.GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorizeVoucher(a, &v); err != nil {
			return err
		}
		if v.ProcessingStatus == model.VoucherStatusDelivered {
			return ErrVoucherDelivered
		}
		if u.RecipientName != nil {
			v.RecipientName = strings.TrimSpace(*u.RecipientName)
		}
		if u.RecipientEmail != nil {
			v.RecipientEmail = strings.ToLower(strings.TrimSpace(*u.RecipientEmail))
		}
		if u.DatetimeToEmail != nil {
			v.DatetimeToEmail = *u.DatetimeToEmail
		}
		if u.PersonalMessage != nil {
			v.PersonalMessage = *u.PersonalMessage
		}
		if err := s.Vouchers.UpdateTx(ctx, tx, &v); err != nil {
			return err
		}
		out, err = s.details(ctx, tx, v)
		return err
	})
	return out, err
}

// Checkout takes a voucher out of the cart and announces the purchase.
func (s *VoucherService) Checkout(ctx context.Context, a Actor, id uint64) (VoucherDetails, error) {
	var out VoucherDetails
	err := s.Tx.WithinTx(ctx, func(tx *sql.Tx) error {
		v, err := s.Vouchers.GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorizeVoucher(a, &v); err != nil {
			return err
		}
		if !v.InCart {
			return ErrVoucherNotInCart
		}
		v.InCart = false
		if err := s.Vouchers.UpdateTx(ctx, tx, &v); err != nil {
			return err
		}
		out, err = s.details(ctx, tx, v)
		return err
	})
	if err != nil {
		return VoucherDetails{}, err
	}
	if s.Events != nil {
		ev := queue.VoucherPurchasedEvent{VoucherID: id, PurchasedAt: s.now()}
		if err := s.Events.VoucherPurchased(ctx, ev); err != nil {
			log.WithError(err).WithField("voucher_id", id).Error("publish voucher purchased event failed")
		}
	}
	return out, nil
}

// ValidationResult answers a public voucher check.
type ValidationResult struct {
	IsValid          bool            `json:"is_voucher_code_valid"`
	BalanceRemaining decimal.Decimal `json:"balance_remaining"`
}

// Validate reports whether a purchased, delivered voucher matches email,
// code and pin, and how much of it is left.  Expiry is not checked here;
// it is enforced when the voucher is redeemed at checkout.  Unknown
// vouchers are simply invalid; a corrupt ledger is an error.
func (s *VoucherService) Validate(ctx context.Context, email, code, pin string) (ValidationResult, error) {
	v, err := s.Vouchers.FindRedeemable(ctx, email, code, pin)
	if errors.Is(err, repository.ErrNotFound) {
		return ValidationResult{}, nil
	}
	if err != nil {
		return ValidationResult{}, err
	}
	d, err := s.details(ctx, nil, v)
	if err != nil {
		return ValidationResult{}, err
	}
	return ValidationResult{IsValid: true, BalanceRemaining: d.RemainingBalance}, nil
}

// TransactionInput is a manual ledger adjustment.
type TransactionInput struct {
	VoucherID uint64
	Credit    decimal.Decimal
	Debit     decimal.Decimal
}

// AddTransaction appends a manual credit or debit.  The entry is checked
// against the locked ledger so the balance stays within [0, amount].
func (s *VoucherService) AddTransaction(ctx context.Context, in TransactionInput) (model.VoucherTransaction, error) {
	t := model.VoucherTransaction{VoucherID: in.VoucherID, Credit: in.Credit.Round(2), Debit: in.Debit.Round(2)}
	err := s.Tx.WithinTx(ctx, func(tx *sql.Tx) error {
		v, err := s.Vouchers.GetByIDTx(ctx, tx, in.VoucherID)
		if err != nil {
			return err
		}
		txns, err := s.VoucherTxns.ListByVoucherTx(ctx, tx, v.ID)
		if err != nil {
			return err
		}
		if _, err := ledger.CheckEntry(v, txns, t); err != nil {
			return err
		}
		t.DatetimeCreated = s.now()
		return s.VoucherTxns.InsertTx(ctx, tx, &t)
	})
	if err != nil {
		logIntegrity(err, log.Fields{"voucher_id": in.VoucherID})
		return model.VoucherTransaction{}, err
	}
	return t, nil
}

func (s *VoucherService) ListTransactions(ctx context.Context, voucherID *uint64) ([]model.VoucherTransaction, error) {
	return s.VoucherTxns.List(ctx, voucherID)
}
