// Package ledger keeps the arithmetic of gift vouchers: the remaining
// balance derived from the transaction log and the generation of voucher
// codes, PINs and numbers.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/park-passes/internal/model"
)

var (
	ErrBalanceExceedsAmount = &model.IntegrityError{Msg: "voucher balance is greater than the voucher amount"}
	ErrBalanceBelowZero     = &model.IntegrityError{Msg: "voucher balance is below zero"}

	ErrNegativeEntry       = &model.ValidationError{Msg: "credit and debit must not be negative"}
	ErrInsufficientBalance = &model.ValidationError{Msg: "the voucher balance is not sufficient for this debit"}
)

// RemainingBalance is amount + Σcredit − Σdebit over the voucher's
// transactions.  A result outside [0, amount] means the log is corrupt; it
// is reported, never clamped.
func RemainingBalance(v model.Voucher, txns []model.VoucherTransaction) (decimal.Decimal, error) {
	remaining := v.Amount
	for _, t := range txns {
		remaining = remaining.Add(t.Balance())
	}
	if remaining.GreaterThan(v.Amount) {
		return remaining, ErrBalanceExceedsAmount
	}
	if remaining.IsNegative() {
		return remaining, ErrBalanceBelowZero
	}
	return remaining, nil
}

// DebitFor is the amount a voucher contributes towards a payable price.
func DebitFor(remaining, payable decimal.Decimal) decimal.Decimal {
	if payable.IsNegative() || remaining.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(remaining, payable)
}

// CheckEntry verifies that adding t to the log keeps the balance within
// bounds.  Manual adjustments and checkout debits both go through here
// before they are inserted.
func CheckEntry(v model.Voucher, txns []model.VoucherTransaction, t model.VoucherTransaction) (decimal.Decimal, error) {
	if t.Credit.IsNegative() || t.Debit.IsNegative() {
		return decimal.Zero, ErrNegativeEntry
	}
	remaining, err := RemainingBalance(v, txns)
	if err != nil {
		return remaining, err
	}
	after := remaining.Add(t.Balance())
	if after.IsNegative() {
		return remaining, ErrInsufficientBalance
	}
	if after.GreaterThan(v.Amount) {
		return remaining, ErrBalanceExceedsAmount
	}
	return after, nil
}
