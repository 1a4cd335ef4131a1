package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/park-passes/internal/config"
	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/pricing"
	"github.com/iliyamo/park-passes/internal/repository"
)

var testNow = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

func defaultWindow() model.PricingWindow {
	return model.PricingWindow{
		ID: 10, PassTypeID: 1, Name: "Default", DateStart: day("2025-01-01"),
		Options: []model.PricingOption{
			{ID: 12, PricingWindowID: 10, Name: "Year", Duration: 365, Price: dec("200.00")},
			{ID: 11, PricingWindowID: 10, Name: "Month", Duration: 30, Price: dec("50.00")},
		},
	}
}

func marchWindow() model.PricingWindow {
	return model.PricingWindow{
		ID: 20, PassTypeID: 1, Name: "Autumn sale", DateStart: day("2026-03-01"), DateExpiry: ptr(day("2026-04-01")),
		Options: []model.PricingOption{
			{ID: 21, PricingWindowID: 20, Name: "Month", Duration: 30, Price: dec("40.00")},
			{ID: 22, PricingWindowID: 20, Name: "Year", Duration: 365, Price: dec("180.00")},
		},
	}
}

func newCatalogue(windows ...model.PricingWindow) (*CatalogueService, *fakeWindows, *fakeCache) {
	ws := &fakeWindows{windows: windows}
	cache := &fakeCache{}
	s := &CatalogueService{
		PassTypes: &fakePassTypes{types: map[uint64]model.PassType{
			1: {ID: 1, Name: "annual", DisplayName: "Annual Pass", DisplayExternally: true, DisplayRetailer: true},
			2: {ID: 2, Name: "staff", DisplayName: "Staff Pass"},
		}},
		Windows:  ws,
		Options:  &fakeOptions{windows: ws},
		Tx:       &fakeTx{},
		Cache:    cache,
		Settings: config.DefaultSettings(),
		Now:      func() time.Time { return testNow },
	}
	return s, ws, cache
}

func optionIDs(opts []model.PricingOption) []uint64 {
	ids := make([]uint64, 0, len(opts))
	for _, o := range opts {
		ids = append(ids, o.ID)
	}
	return ids
}

func TestCurrentOptionsFallsBackToDefault(t *testing.T) {
	s, _, _ := newCatalogue(defaultWindow())

	opts, err := s.CurrentOptions(context.Background(), Actor{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{11, 12}, optionIDs(opts))
}

func TestCurrentOptionsPrefersWindowInForce(t *testing.T) {
	s, _, _ := newCatalogue(defaultWindow(), marchWindow())
	ctx := context.Background()

	opts, err := s.CurrentOptions(ctx, Actor{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{21, 22}, optionIDs(opts))

	_, _, err = s.currentOptionTx(ctx, nil, 11)
	assert.ErrorIs(t, err, ErrOptionNotOnSale)

	opt, w, err := s.currentOptionTx(ctx, nil, 21)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), w.ID)
	assert.Equal(t, "40.00", opt.Price.StringFixed(2))

	_, _, err = s.currentOptionTx(ctx, nil, 999)
	assert.ErrorIs(t, err, ErrOptionNotOnSale)
}

func TestCurrentOptionsWithoutDefaultWindow(t *testing.T) {
	s, _, _ := newCatalogue(marchWindow())

	_, err := s.CurrentOptions(context.Background(), Actor{}, 1)
	assert.ErrorIs(t, err, pricing.ErrNoDefaultWindow)
	assert.ErrorIs(t, err, model.ErrIntegrity)
}

func TestGetPassTypeHidesInternalTypes(t *testing.T) {
	s, _, _ := newCatalogue(defaultWindow())
	ctx := context.Background()

	_, err := s.GetPassType(ctx, Actor{}, 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	pt, err := s.GetPassType(ctx, Actor{UserID: 1, Role: model.RoleStaff}, 2)
	require.NoError(t, err)
	assert.Equal(t, "Staff Pass", pt.DisplayName)

	types, err := s.ListPassTypes(ctx, Actor{})
	require.NoError(t, err)
	assert.Len(t, types, 1)
}

func TestCreateWindow(t *testing.T) {
	ctx := context.Background()

	t.Run("second default window", func(t *testing.T) {
		s, _, cache := newCatalogue(defaultWindow())
		w := model.PricingWindow{PassTypeID: 1, DateStart: day("2026-01-01")}
		assert.ErrorIs(t, s.CreateWindow(ctx, &w), pricing.ErrDuplicateDefaultWindow)
		assert.Zero(t, cache.purged)
	})

	t.Run("concurrent default window trips the unique key", func(t *testing.T) {
		s, ws, _ := newCatalogue()
		ws.createErr = errDuplicate
		w := model.PricingWindow{PassTypeID: 1, DateStart: day("2026-01-01")}
		assert.ErrorIs(t, s.CreateWindow(ctx, &w), pricing.ErrDuplicateDefaultWindow)
	})

	t.Run("default window gets the default name", func(t *testing.T) {
		s, ws, cache := newCatalogue()
		w := model.PricingWindow{PassTypeID: 1, DateStart: day("2026-01-01")}
		require.NoError(t, s.CreateWindow(ctx, &w))
		assert.Equal(t, "Default", w.Name)
		assert.Len(t, ws.windows, 1)
		assert.Equal(t, 1, cache.purged)
	})

	t.Run("expiry in the past", func(t *testing.T) {
		s, _, _ := newCatalogue(defaultWindow())
		w := model.PricingWindow{PassTypeID: 1, Name: "Old", DateStart: day("2026-01-01"), DateExpiry: ptr(day("2026-02-01"))}
		assert.ErrorIs(t, s.CreateWindow(ctx, &w), pricing.ErrWindowExpiryNotFuture)
	})

	t.Run("invalid option", func(t *testing.T) {
		s, _, _ := newCatalogue(defaultWindow())
		w := model.PricingWindow{
			PassTypeID: 1, Name: "Winter", DateStart: day("2026-06-01"), DateExpiry: ptr(day("2026-09-01")),
			Options: []model.PricingOption{{Name: "Month", Duration: 0, Price: dec("10")}},
		}
		assert.ErrorIs(t, s.CreateWindow(ctx, &w), ErrOptionDurationInvalid)
	})

	t.Run("unknown pass type", func(t *testing.T) {
		s, _, _ := newCatalogue()
		w := model.PricingWindow{PassTypeID: 9, DateStart: day("2026-01-01")}
		assert.ErrorIs(t, s.CreateWindow(ctx, &w), repository.ErrNotFound)
	})
}

func TestCreateOptionRoundsPrice(t *testing.T) {
	s, ws, cache := newCatalogue(defaultWindow())
	o := model.PricingOption{PricingWindowID: 10, Name: "Week", Duration: 7, Price: dec("12.345")}

	require.NoError(t, s.CreateOption(context.Background(), &o))
	assert.Equal(t, "12.35", o.Price.StringFixed(2))
	assert.Len(t, ws.windows[0].Options, 3)
	assert.Equal(t, 1, cache.purged)

	bad := model.PricingOption{PricingWindowID: 10, Name: "Free", Duration: 7, Price: dec("-1")}
	assert.ErrorIs(t, s.CreateOption(context.Background(), &bad), ErrOptionPriceInvalid)
}

func TestListWindowsStatus(t *testing.T) {
	future := model.PricingWindow{ID: 30, PassTypeID: 1, Name: "Winter", DateStart: day("2026-06-01"), DateExpiry: ptr(day("2026-09-01"))}
	s, _, _ := newCatalogue(defaultWindow(), marchWindow(), future)

	views, err := s.ListWindows(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "Current", views[0].Status)
	assert.Equal(t, "Current", views[1].Status)
	assert.Equal(t, "Future", views[2].Status)
}
