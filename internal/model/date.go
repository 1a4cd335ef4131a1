package model

import "time"

// DateOf truncates an instant to its calendar date in UTC.  Pass and
// pricing window dates are stored as DATE columns, so every comparison
// against "now" goes through DateOf first.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from a to b (both
// truncated to dates).  It is negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}
