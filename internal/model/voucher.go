package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VoucherStatus tracks delivery of the voucher to its recipient.
type VoucherStatus string

const (
	VoucherStatusNew          VoucherStatus = "N"
	VoucherStatusDelivered    VoucherStatus = "D"
	VoucherStatusNotDelivered VoucherStatus = "ND"
)

// Display returns the human readable delivery status.
func (s VoucherStatus) Display() string {
	switch s {
	case VoucherStatusNew:
		return "New"
	case VoucherStatusDelivered:
		return "Delivered"
	case VoucherStatusNotDelivered:
		return "Not Delivered"
	}
	return "Unknown"
}

// Voucher is a prepaid gift credit.  Code and Pin are assigned once at
// first insert; the code is globally unique (UNIQUE vouchers.code).
//
// Fields:
//  ID               – primary key identifier.
//  VoucherNumber    – "V" + six digit zero padded id, assigned after insert.
//  PurchaserID      – user who bought the voucher (nullable).
//  RecipientName    – name of the person receiving the voucher.
//  RecipientEmail   – delivery address, also used when validating.
//  DatetimeToEmail  – when the recipient notification is due.
//  PersonalMessage  – message included in the recipient email.
//  Amount           – face value.
//  Expiry           – fixed offset from creation.
//  Code             – eight character redemption code.
//  Pin              – six digit zero padded pin.
//  ProcessingStatus – delivery status.
//  InCart           – true until checkout.
type Voucher struct {
	ID                uint64          `json:"id"`
	VoucherNumber     *string         `json:"voucher_number"`
	PurchaserID       *uint64         `json:"purchaser,omitempty"`
	RecipientName     string          `json:"recipient_name"`
	RecipientEmail    string          `json:"recipient_email"`
	DatetimeToEmail   time.Time       `json:"datetime_to_email"`
	PersonalMessage   string          `json:"personal_message"`
	Amount            decimal.Decimal `json:"amount"`
	Expiry            time.Time       `json:"expiry"`
	Code              string          `json:"code"`
	Pin               string          `json:"pin"`
	ProcessingStatus  VoucherStatus   `json:"processing_status"`
	InCart            bool            `json:"in_cart"`
	DatetimePurchased time.Time       `json:"datetime_purchased"`
	DatetimeUpdated   time.Time       `json:"datetime_updated"`
}

// HasExpired reports whether the voucher can no longer be redeemed.
func (v Voucher) HasExpired(now time.Time) bool { return !now.Before(v.Expiry) }

// VoucherTransaction is a ledger entry against a voucher.  When it pays
// for a pass, PassID is set and unique.  Credit and Debit are never
// negative.
type VoucherTransaction struct {
	ID              uint64          `json:"id"`
	VoucherID       uint64          `json:"voucher_id"`
	PassID          *uint64         `json:"pass_id,omitempty"`
	Credit          decimal.Decimal `json:"credit"`
	Debit           decimal.Decimal `json:"debit"`
	DatetimeCreated time.Time       `json:"datetime_created"`
}

// Balance is the signed contribution of the transaction: credit − debit.
func (t VoucherTransaction) Balance() decimal.Decimal { return t.Credit.Sub(t.Debit) }
