package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefundPercentage(t *testing.T) {
	now := day("2026-10-19")
	tests := []struct {
		name  string
		start string
		want  int
	}{
		{"not started", "2026-10-25", 100},
		{"starts today", "2026-10-19", 100},
		{"half used", "2026-10-12", 50},
		{"one day used", "2026-10-18", 93},
		{"expires today", "2026-10-05", 0},
		{"long expired", "2026-01-01", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := passWithPrice("120.00")
			p.DateStart = day(tt.start)
			p.DateExpiry = p.DateStart.AddDate(0, 0, 14)
			assert.Equal(t, tt.want, RefundPercentage(p, now))
		})
	}
}

func TestRefundPercentage_RoundsHalfToEven(t *testing.T) {
	now := day("2026-10-19")
	tests := []struct {
		name  string
		start string
		want  int
	}{
		{"one of eight left", "2026-10-12", 12},  // 12.5
		{"three of eight left", "2026-10-14", 38}, // 37.5
		{"five of eight left", "2026-10-16", 62},  // 62.5
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := passWithPrice("80.00")
			p.Option.Duration = 8
			p.DateStart = day(tt.start)
			p.DateExpiry = p.DateStart.AddDate(0, 0, 8)
			assert.Equal(t, tt.want, RefundPercentage(p, now))
		})
	}
}

func TestRefundAmount(t *testing.T) {
	p := passWithPrice("120.00")
	p.DateStart = day("2026-10-12")
	p.DateExpiry = day("2026-10-26")
	assert.Equal(t, "60.00", RefundAmount(p, day("2026-10-19")).StringFixed(2))
}
