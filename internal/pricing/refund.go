package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/park-passes/internal/model"
)

// RefundPercentage is the pro-rata share (0-100) of a pass that is still
// unused at now, rounded half to even.  A pass that has not started yet is
// fully refundable and an expired pass is worth nothing.
func RefundPercentage(p *model.Pass, now time.Time) int {
	today := model.DateOf(now)
	start, expiry := model.DateOf(p.DateStart), model.DateOf(p.DateExpiry)
	if !start.Before(today) {
		return 100
	}
	if !expiry.After(today) {
		return 0
	}
	duration := model.DaysBetween(start, expiry)
	if p.Option != nil && p.Option.Duration > 0 {
		duration = p.Option.Duration
	}
	if duration <= 0 {
		return 0
	}
	remaining := duration - model.DaysBetween(start, today)
	if remaining <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(remaining) * 100).
		Div(decimal.NewFromInt(int64(duration))).
		RoundBank(0).IntPart()
	return int(pct)
}

// RefundAmount is the share of the final price refundable at now.
func RefundAmount(p *model.Pass, now time.Time) decimal.Decimal {
	pct := decimal.NewFromInt(int64(RefundPercentage(p, now)))
	return FinalPrice(p).Mul(pct).Div(hundred).Round(2)
}
