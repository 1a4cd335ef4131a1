// Package pricing resolves which price list applies to a pass type and
// computes the payable price, GST and pro-rata refund of a pass.  Every
// function here is pure: callers load the windows, options and relations
// and pass them in together with the instant to evaluate at.
package pricing

import (
	"sort"
	"time"

	"github.com/iliyamo/park-passes/internal/model"
)

var (
	// ErrNoDefaultWindow means a pass type has no open-ended pricing window.
	ErrNoDefaultWindow = &model.IntegrityError{Msg: "no default pricing window exists for pass type"}
	// ErrMultipleDefaultWindows means more than one open-ended window exists.
	ErrMultipleDefaultWindows = &model.IntegrityError{Msg: "more than one default pricing window exists for pass type"}

	ErrDuplicateDefaultWindow = &model.ValidationError{Msg: "there can only be one default pricing window for a pass type; default pricing windows are those that have no expiry date"}
	ErrDefaultWindowNotStarted = &model.ValidationError{Msg: "the default pricing window start date must be in the past"}
	ErrWindowStartAfterExpiry  = &model.ValidationError{Msg: "the start date must occur before the expiry date"}
	ErrWindowExpiryNotFuture   = &model.ValidationError{Msg: "the expiry date must be in the future"}
)

// Resolution is the outcome of ResolveCurrentWindow.
//
// Candidates counts the non-default windows that were valid at the
// evaluated instant.  More than one candidate is a data inconsistency that
// write-time validation should have prevented; the caller is expected to
// warn operators about it.  Mismatched lists the ids of windows that were
// in date range but skipped because their option set differs from the
// default window's.
type Resolution struct {
	Window     model.PricingWindow
	Candidates int
	Mismatched []uint64
}

// ResolveCurrentWindow picks the pricing window of a single pass type that
// applies at the given instant.  The windows must carry their options.
func ResolveCurrentWindow(windows []model.PricingWindow, at time.Time) (Resolution, error) {
	if len(windows) == 0 {
		return Resolution{}, ErrNoDefaultWindow
	}
	var defaults []model.PricingWindow
	for _, w := range windows {
		if w.IsDefault() {
			defaults = append(defaults, w)
		}
	}
	switch {
	case len(defaults) == 0:
		return Resolution{}, ErrNoDefaultWindow
	case len(defaults) > 1:
		return Resolution{}, ErrMultipleDefaultWindows
	}
	def := defaults[0]
	if len(windows) == 1 {
		return Resolution{Window: def}, nil
	}

	day := model.DateOf(at)
	var res Resolution
	var candidates []model.PricingWindow
	for _, w := range windows {
		if w.IsDefault() || !Contains(w, day) {
			continue
		}
		if !SameOptionShape(w.Options, def.Options) {
			res.Mismatched = append(res.Mismatched, w.ID)
			continue
		}
		candidates = append(candidates, w)
	}
	res.Candidates = len(candidates)
	if len(candidates) == 0 {
		res.Window = def
		return res, nil
	}
	// latest start wins; id breaks ties so the choice is stable
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].DateStart.Equal(candidates[j].DateStart) {
			return candidates[i].DateStart.Before(candidates[j].DateStart)
		}
		return candidates[i].ID < candidates[j].ID
	})
	res.Window = candidates[len(candidates)-1]
	return res, nil
}

// Contains reports whether day falls inside the half-open interval
// [DateStart, DateExpiry) of a non-default window.  Default windows
// contain every day on or after their start.
func Contains(w model.PricingWindow, day time.Time) bool {
	day = model.DateOf(day)
	if day.Before(model.DateOf(w.DateStart)) {
		return false
	}
	if w.DateExpiry == nil {
		return true
	}
	return day.Before(model.DateOf(*w.DateExpiry))
}

type optionShape struct {
	name     string
	duration int
}

// SameOptionShape reports whether two option sets offer the same menu:
// the multisets of (name, duration) pairs are equal.  Prices are ignored.
func SameOptionShape(a, b []model.PricingOption) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[optionShape]int, len(a))
	for _, o := range a {
		counts[optionShape{o.Name, o.Duration}]++
	}
	for _, o := range b {
		k := optionShape{o.Name, o.Duration}
		if counts[k] == 0 {
			return false
		}
		counts[k]--
	}
	return true
}

// IsValidVariant reports whether w can stand in for the default window.
// The default window itself (no expiry and carrying the configured default
// name) is always valid since it is the template the others follow.
func IsValidVariant(w, def model.PricingWindow, defaultName string) bool {
	if w.IsDefault() && w.Name == defaultName {
		return true
	}
	return SameOptionShape(w.Options, def.Options)
}

// SortedOptions returns a copy of the options ordered by ascending price.
func SortedOptions(opts []model.PricingOption) []model.PricingOption {
	out := make([]model.PricingOption, len(opts))
	copy(out, opts)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Price.Cmp(out[j].Price); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ValidateWindow enforces the write-time invariants of a pricing window.
// siblings are the other windows of the same pass type (the window itself
// may be among them when updating; it is skipped by id).
func ValidateWindow(w model.PricingWindow, siblings []model.PricingWindow, today time.Time) error {
	today = model.DateOf(today)
	if w.IsDefault() {
		for _, s := range siblings {
			if s.ID != w.ID && s.IsDefault() {
				return ErrDuplicateDefaultWindow
			}
		}
		if model.DateOf(w.DateStart).After(today) {
			return ErrDefaultWindowNotStarted
		}
		return nil
	}
	start, expiry := model.DateOf(w.DateStart), model.DateOf(*w.DateExpiry)
	if !start.Before(expiry) {
		return ErrWindowStartAfterExpiry
	}
	if !expiry.After(today) {
		return ErrWindowExpiryNotFuture
	}
	return nil
}

// WindowStatus labels a window relative to today.
func WindowStatus(w model.PricingWindow, today time.Time) string {
	if w.IsDefault() {
		return "Current"
	}
	today = model.DateOf(today)
	switch {
	case model.DateOf(w.DateStart).After(today):
		return "Future"
	case !model.DateOf(*w.DateExpiry).After(today):
		return "Expired"
	}
	return "Current"
}
