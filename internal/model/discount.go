package model

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Concession is a percentage discount granted to eligible holders
// (seniors, pensioners ...).
type Concession struct {
	ID                 uint64          `json:"id"`
	ConcessionType     string          `json:"concession_type"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DisplayOrder       int16           `json:"display_order"`
}

// DiscountAsAmount converts the concession percentage into a currency
// amount for the given price, rounded to cents.
func (c Concession) DiscountAsAmount(price decimal.Decimal) decimal.Decimal {
	return price.Mul(c.DiscountPercentage).Div(hundred).Round(2)
}

// ConcessionUsage attaches a concession to a pass (one per pass).
type ConcessionUsage struct {
	ID               uint64     `json:"id"`
	PassID           uint64     `json:"pass_id"`
	ConcessionID     uint64     `json:"concession_id"`
	ConcessionCardNo string     `json:"concession_card_number"`
	Concession       Concession `json:"concession"`
}

// DiscountCode is a redeemable code that takes either a percentage or a
// fixed amount off a pass price.  Exactly one of DiscountPercentage and
// DiscountAmount is set.
type DiscountCode struct {
	ID                 uint64           `json:"id"`
	Code               string           `json:"code"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discount_amount,omitempty"`
	DatetimeStart      time.Time        `json:"datetime_start"`
	DatetimeExpiry     time.Time        `json:"datetime_expiry"`
	MaxUses            *int             `json:"max_uses,omitempty"`
	TimesUsed          int              `json:"times_used"`
}

// DiscountAsAmount converts the code into a currency amount for the given
// price.  A fixed amount never exceeds the price it is applied to.
func (d DiscountCode) DiscountAsAmount(price decimal.Decimal) decimal.Decimal {
	switch {
	case d.DiscountPercentage != nil:
		return price.Mul(*d.DiscountPercentage).Div(hundred).Round(2)
	case d.DiscountAmount != nil:
		return decimal.Min(*d.DiscountAmount, price)
	}
	return decimal.Zero
}

// IsRedeemableAt reports whether the code is inside its validity period
// and still has uses left.
func (d DiscountCode) IsRedeemableAt(now time.Time) bool {
	if now.Before(d.DatetimeStart) || !now.Before(d.DatetimeExpiry) {
		return false
	}
	if d.MaxUses != nil && d.TimesUsed >= *d.MaxUses {
		return false
	}
	return true
}

// DiscountCodeUsage attaches a discount code to a pass (one per pass).
type DiscountCodeUsage struct {
	ID             uint64       `json:"id"`
	PassID         uint64       `json:"pass_id"`
	DiscountCodeID uint64       `json:"discount_code_id"`
	DiscountCode   DiscountCode `json:"discount_code"`
}
