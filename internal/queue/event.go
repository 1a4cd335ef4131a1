// Package queue defines message payloads exchanged over the message broker
// and the consumer that dispatches them.
package queue

import "time"

// PassSavedEvent is published after commit whenever a purchased,
// non-cancelled pass is saved.  The worker regenerates the pass document
// and sends the purchased or updated notification.
type PassSavedEvent struct {
	PassID  uint64    `json:"pass_id"`
	SavedAt time.Time `json:"saved_at"`
}

// VoucherPurchasedEvent is published after a voucher leaves the cart.
type VoucherPurchasedEvent struct {
	VoucherID   uint64    `json:"voucher_id"`
	PurchasedAt time.Time `json:"purchased_at"`
}
