package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/park-passes/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time {
	t := day(s)
	return &t
}

func options(windowID uint64, prices ...string) []model.PricingOption {
	names := []string{"5 days", "14 days", "28 days", "12 months"}
	durations := []int{5, 14, 28, 365}
	out := make([]model.PricingOption, 0, len(prices))
	for i, p := range prices {
		out = append(out, model.PricingOption{
			ID:              windowID*10 + uint64(i),
			PricingWindowID: windowID,
			Name:            names[i],
			Duration:        durations[i],
			Price:           decimal.RequireFromString(p),
		})
	}
	return out
}

func defaultWindow() model.PricingWindow {
	return model.PricingWindow{ID: 1, Name: "Default", DateStart: day("2020-01-01"), Options: options(1, "50.00", "120.00")}
}

func TestResolveCurrentWindow_SingleDefault(t *testing.T) {
	res, err := ResolveCurrentWindow([]model.PricingWindow{defaultWindow()}, day("2026-10-19"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Window.ID)

	opts := SortedOptions(res.Window.Options)
	require.Len(t, opts, 2)
	assert.Equal(t, "50.00", opts[0].Price.StringFixed(2))
	assert.Equal(t, "120.00", opts[1].Price.StringFixed(2))
}

func TestResolveCurrentWindow_Errors(t *testing.T) {
	onlyDated := model.PricingWindow{ID: 2, DateStart: day("2026-01-01"), DateExpiry: dayPtr("2027-01-01")}
	secondDefault := defaultWindow()
	secondDefault.ID = 3

	tests := []struct {
		name    string
		windows []model.PricingWindow
		want    error
	}{
		{"no windows", nil, ErrNoDefaultWindow},
		{"single non-default", []model.PricingWindow{onlyDated}, ErrNoDefaultWindow},
		{"no default among many", []model.PricingWindow{onlyDated, onlyDated}, ErrNoDefaultWindow},
		{"two defaults", []model.PricingWindow{defaultWindow(), secondDefault}, ErrMultipleDefaultWindows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveCurrentWindow(tt.windows, day("2026-10-19"))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, errors.Is(err, model.ErrIntegrity))
		})
	}
}

func TestResolveCurrentWindow_HalfOpenInterval(t *testing.T) {
	summer := model.PricingWindow{ID: 2, Name: "Summer", DateStart: day("2026-12-01"), DateExpiry: dayPtr("2027-03-01"), Options: options(2, "60.00", "140.00")}
	windows := []model.PricingWindow{defaultWindow(), summer}

	tests := []struct {
		at   string
		want uint64
	}{
		{"2026-11-30", 1},
		{"2026-12-01", 2},
		{"2027-02-28", 2},
		{"2027-03-01", 1},
	}
	for _, tt := range tests {
		res, err := ResolveCurrentWindow(windows, day(tt.at))
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.Window.ID, tt.at)
	}
}

func TestResolveCurrentWindow_OverlapPicksLatestStart(t *testing.T) {
	a := model.PricingWindow{ID: 2, DateStart: day("2026-10-01"), DateExpiry: dayPtr("2026-12-01"), Options: options(2, "55.00", "125.00")}
	b := model.PricingWindow{ID: 3, DateStart: day("2026-10-10"), DateExpiry: dayPtr("2026-11-01"), Options: options(3, "45.00", "110.00")}

	res, err := ResolveCurrentWindow([]model.PricingWindow{b, defaultWindow(), a}, day("2026-10-19"))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.Window.ID)
	assert.Equal(t, 2, res.Candidates)
}

func TestResolveCurrentWindow_SkipsMismatchedOptions(t *testing.T) {
	odd := model.PricingWindow{ID: 4, DateStart: day("2026-10-01"), DateExpiry: dayPtr("2026-12-01"), Options: options(4, "10.00")}

	res, err := ResolveCurrentWindow([]model.PricingWindow{defaultWindow(), odd}, day("2026-10-19"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Window.ID)
	assert.Equal(t, []uint64{4}, res.Mismatched)
	assert.Zero(t, res.Candidates)
}

func TestSameOptionShape(t *testing.T) {
	a := options(1, "50.00", "120.00")
	b := options(2, "1.00", "2.00")
	assert.True(t, SameOptionShape(a, b))
	assert.True(t, SameOptionShape([]model.PricingOption{a[1], a[0]}, b))

	b[1].Duration = 15
	assert.False(t, SameOptionShape(a, b))
	assert.False(t, SameOptionShape(a, b[:1]))
}

func TestIsValidVariant(t *testing.T) {
	def := defaultWindow()
	assert.True(t, IsValidVariant(def, def, "Default"))

	variant := model.PricingWindow{ID: 5, DateStart: day("2026-01-01"), DateExpiry: dayPtr("2026-02-01"), Options: options(5, "1.00")}
	assert.False(t, IsValidVariant(variant, def, "Default"))
	variant.Options = options(5, "1.00", "2.00")
	assert.True(t, IsValidVariant(variant, def, "Default"))
}

func TestValidateWindow(t *testing.T) {
	today := day("2026-10-19")
	existing := []model.PricingWindow{defaultWindow()}

	tests := []struct {
		name string
		w    model.PricingWindow
		want error
	}{
		{"second default", model.PricingWindow{ID: 9, DateStart: day("2026-01-01")}, ErrDuplicateDefaultWindow},
		{"update of the default itself", model.PricingWindow{ID: 1, DateStart: day("2026-01-01")}, nil},
		{"start equals expiry", model.PricingWindow{ID: 9, DateStart: day("2026-11-01"), DateExpiry: dayPtr("2026-11-01")}, ErrWindowStartAfterExpiry},
		{"expiry today", model.PricingWindow{ID: 9, DateStart: day("2026-10-01"), DateExpiry: dayPtr("2026-10-19")}, ErrWindowExpiryNotFuture},
		{"valid seasonal", model.PricingWindow{ID: 9, DateStart: day("2026-12-01"), DateExpiry: dayPtr("2027-03-01")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWindow(tt.w, existing, today)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}

	future := model.PricingWindow{ID: 9, DateStart: day("2026-10-20")}
	assert.ErrorIs(t, ValidateWindow(future, nil, today), ErrDefaultWindowNotStarted)
}

func TestWindowStatus(t *testing.T) {
	today := day("2026-10-19")
	assert.Equal(t, "Current", WindowStatus(defaultWindow(), today))
	assert.Equal(t, "Future", WindowStatus(model.PricingWindow{DateStart: day("2026-11-01"), DateExpiry: dayPtr("2026-12-01")}, today))
	assert.Equal(t, "Expired", WindowStatus(model.PricingWindow{DateStart: day("2026-09-01"), DateExpiry: dayPtr("2026-10-19")}, today))
	assert.Equal(t, "Current", WindowStatus(model.PricingWindow{DateStart: day("2026-10-19"), DateExpiry: dayPtr("2026-10-20")}, today))
}
