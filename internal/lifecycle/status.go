// Package lifecycle derives the state of a pass from its dates and
// cancellation, and owns the small rules that every pass save applies.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/iliyamo/park-passes/internal/model"
)

// RenewalCutoff is how far ahead of expiry a renewal can still be cancelled.
const RenewalCutoff = 24 * time.Hour

var (
	ErrNotRenewing      = &model.ValidationError{Msg: "this pass is not set to renew automatically"}
	ErrRenewalTooLate   = &model.ValidationError{Msg: "automatic renewal can no longer be cancelled within 24 hours of expiry"}
	ErrOptionRequired   = &model.ValidationError{Msg: "a pricing option is required"}
	ErrStartNotEditable = &model.ValidationError{Msg: "the start date can only be changed while the pass is in the cart"}
)

// Status derives the lifecycle status of a pass at now.  A cancellation
// overrides any date based state.
func Status(p *model.Pass, now time.Time) model.PassStatus {
	if p.Cancellation != nil {
		return model.PassStatusCancelled
	}
	today := model.DateOf(now)
	switch {
	case model.DateOf(p.DateStart).After(today):
		return model.PassStatusFuture
	case !model.DateOf(p.DateExpiry).After(today):
		return model.PassStatusExpired
	}
	return model.PassStatusCurrent
}

// ExpiryFor is the expiry date of a pass starting on start with an option
// lasting duration days.
func ExpiryFor(start time.Time, duration int) time.Time {
	return model.DateOf(start).AddDate(0, 0, duration)
}

// PassNumber formats the public pass number for a pass id.
func PassNumber(id uint64) string { return fmt.Sprintf("PP%06d", id) }

// PrepareForSave recomputes the derived fields of a pass ahead of an
// insert or update: the expiry follows the selected option and the cached
// status follows the dates and cancellation.
func PrepareForSave(p *model.Pass, now time.Time) error {
	if p.Option == nil {
		return ErrOptionRequired
	}
	p.DateStart = model.DateOf(p.DateStart)
	p.DateExpiry = ExpiryFor(p.DateStart, p.Option.Duration)
	p.ProcessingStatus = Status(p, now)
	return nil
}

// CheckCancelRenewal rejects a renewal cancellation that is not allowed.
func CheckCancelRenewal(p *model.Pass, now time.Time) error {
	if !p.RenewAutomatically {
		return ErrNotRenewing
	}
	if !p.DateExpiry.After(now.Add(RenewalCutoff)) {
		return ErrRenewalTooLate
	}
	return nil
}

// ShouldNotify reports whether a saved pass warrants post-commit work
// (document generation and purchase/update email).
func ShouldNotify(p *model.Pass) bool {
	return p.Cancellation == nil && !p.InCart
}
