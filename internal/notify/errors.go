// Package notify renders and sends the customer notifications.  Every send
// failure comes back as an *Error naming the notification kind, so callers
// can tell a failed purchase email from a failed expiry email without
// losing the cause.
package notify

import "fmt"

// Kind names a notification.
type Kind string

const (
	KindPassPurchased    Kind = "pass_purchased"
	KindPassUpdated      Kind = "pass_updated"
	KindPassAutoRenew    Kind = "pass_autorenew"
	KindPassExpiry       Kind = "pass_expiry"
	KindPassExpired      Kind = "pass_expired"
	KindVoucherRecipient Kind = "voucher_recipient"
	KindVoucherPurchaser Kind = "voucher_purchaser"
	KindVoucherReceipt   Kind = "voucher_receipt"
)

// One sentinel per kind.  errors.Is(err, ErrPassPurchasedFailed) matches
// any *Error of that kind.
var (
	ErrPassPurchasedFailed    = &Error{Kind: KindPassPurchased}
	ErrPassUpdatedFailed      = &Error{Kind: KindPassUpdated}
	ErrPassAutoRenewFailed    = &Error{Kind: KindPassAutoRenew}
	ErrPassExpiryFailed       = &Error{Kind: KindPassExpiry}
	ErrPassExpiredFailed      = &Error{Kind: KindPassExpired}
	ErrVoucherRecipientFailed = &Error{Kind: KindVoucherRecipient}
	ErrVoucherPurchaserFailed = &Error{Kind: KindVoucherPurchaser}
	ErrVoucherReceiptFailed   = &Error{Kind: KindVoucherReceipt}
)

// Error is a failed notification.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("send %s notification failed", e.Kind)
	}
	return fmt.Sprintf("send %s notification failed: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func failed(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}
