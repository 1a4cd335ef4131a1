package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/repository"
)

func TestCreateDiscountCode(t *testing.T) {
	s := &AdminService{Codes: &fakeCodes{items: map[string]model.DiscountCode{}}}
	ctx := context.Background()
	valid := func() model.DiscountCode {
		return model.DiscountCode{Code: " summer ", DatetimeStart: day("2026-01-01"), DatetimeExpiry: day("2026-02-01")}
	}

	tests := []struct {
		name   string
		modify func(d *model.DiscountCode)
		want   error
	}{
		{"neither kind", func(d *model.DiscountCode) {}, ErrDiscountKind},
		{"both kinds", func(d *model.DiscountCode) {
			d.DiscountPercentage, d.DiscountAmount = ptr(dec("10")), ptr(dec("5"))
		}, ErrDiscountKind},
		{"percentage too large", func(d *model.DiscountCode) { d.DiscountPercentage = ptr(dec("101")) }, ErrPercentageRange},
		{"zero amount", func(d *model.DiscountCode) { d.DiscountAmount = ptr(dec("0")) }, ErrDiscountAmountNeg},
		{"backwards period", func(d *model.DiscountCode) {
			d.DiscountAmount = ptr(dec("5"))
			d.DatetimeStart, d.DatetimeExpiry = d.DatetimeExpiry, d.DatetimeStart
		}, ErrDiscountPeriod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.modify(&d)
			assert.ErrorIs(t, s.CreateDiscountCode(ctx, &d), tt.want)
		})
	}

	d := valid()
	d.DiscountPercentage = ptr(dec("15"))
	require.NoError(t, s.CreateDiscountCode(ctx, &d))
	assert.Equal(t, "SUMMER", d.Code)
}

func TestListReportsScope(t *testing.T) {
	reports := &fakeReports{}
	s := &AdminService{Reports: reports}
	ctx := context.Background()

	_, err := s.ListReports(ctx, customer)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	_, err = s.ListReports(ctx, retailer)
	assert.NoError(t, err)
	_, err = s.ListReports(ctx, staff)
	assert.NoError(t, err)
}

func TestCreateRetailerGroupCommission(t *testing.T) {
	s := &AdminService{Groups: &fakeGroups{}}

	g := model.RetailerGroup{Name: "Kiosk", CommissionPercentage: dec("120")}
	assert.ErrorIs(t, s.CreateRetailerGroup(context.Background(), &g), ErrPercentageRange)

	g.CommissionPercentage = dec("12.5")
	require.NoError(t, s.CreateRetailerGroup(context.Background(), &g))
	assert.NotZero(t, g.ID)
}
