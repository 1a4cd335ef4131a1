package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/park-passes/internal/config"
	"github.com/iliyamo/park-passes/internal/ledger"
	"github.com/iliyamo/park-passes/internal/lifecycle"
	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/repository"
)

var (
	staff    = Actor{UserID: 1, Role: model.RoleStaff}
	customer = Actor{UserID: 7, Role: model.RoleCustomer}
	retailer = Actor{UserID: 8, Role: model.RoleRetailer, RetailerGroupID: ptr(uint64(2))}
)

type passFixture struct {
	svc     *PassService
	passes  *fakePasses
	txns    *fakeVoucherTxns
	events  *fakeEvents
	windows *fakeWindows
}

func newPassFixture(ps ...model.Pass) passFixture {
	cat, ws, _ := newCatalogue(defaultWindow())
	f := passFixture{
		passes:  newFakePasses(ps...),
		txns:    &fakeVoucherTxns{},
		events:  &fakeEvents{},
		windows: ws,
	}
	f.svc = &PassService{
		Passes:    f.passes,
		Catalogue: cat,
		Concessions: &fakeConcessions{items: map[uint64]model.Concession{
			1: {ID: 1, ConcessionType: "Pensioner", DiscountPercentage: dec("50")},
		}},
		Codes: &fakeCodes{items: map[string]model.DiscountCode{
			"SAVE10": {ID: 1, Code: "SAVE10", DiscountAmount: ptr(dec("10.00")),
				DatetimeStart: day("2026-01-01"), DatetimeExpiry: day("2026-12-31")},
			"OLD": {ID: 2, Code: "OLD", DiscountPercentage: ptr(dec("20")),
				DatetimeStart: day("2025-01-01"), DatetimeExpiry: day("2025-12-31")},
		}},
		Vouchers: newFakeVouchers(model.Voucher{
			ID: 1, Code: "ABCDEFGH", Pin: "123456", Amount: dec("50.00"),
			Expiry: day("2027-01-01"), ProcessingStatus: model.VoucherStatusDelivered,
		}),
		VoucherTxns: f.txns,
		Groups: &fakeGroups{groups: []model.RetailerGroup{
			{ID: 1, Name: "Online", Active: true},
			{ID: 2, Name: "Visitor Centre", Active: true, CommissionPercentage: dec("10")},
		}},
		Tx:       &fakeTx{},
		Events:   f.events,
		Settings: config.DefaultSettings(),
		Now:      func() time.Time { return testNow },
	}
	return f
}

func yearOption() *model.PricingOption {
	o := defaultWindow().Options[0]
	return &o
}

func cartPass(id uint64) model.Pass {
	return model.Pass{
		ID: id, UserID: ptr(uint64(7)), OptionID: 12, Option: yearOption(), PassNumber: ptr(lifecycle.PassNumber(id)),
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		DateStart: day("2026-03-15"), DateExpiry: day("2027-03-15"),
		ProcessingStatus: model.PassStatusFuture, InCart: true, SoldVia: ptr(uint64(1)),
	}
}

func TestCreatePass(t *testing.T) {
	f := newPassFixture()

	d, err := f.svc.Create(context.Background(), customer, PassInput{
		OptionID:  12,
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Email:     "ADA@example.com",
		DateStart: time.Date(2026, 3, 15, 13, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "PP000001", *d.PassNumber)
	assert.Equal(t, "Ada", d.FirstName)
	assert.Equal(t, "ada@example.com", d.Email)
	assert.Equal(t, day("2027-03-15"), d.DateExpiry)
	assert.Equal(t, model.PassStatusFuture, d.ProcessingStatus)
	assert.True(t, d.InCart)
	assert.Equal(t, uint64(1), *d.SoldVia)
	assert.Equal(t, uint64(7), *d.UserID)
	assert.Equal(t, "200.00", d.Prices.Final.StringFixed(2))
	assert.Empty(t, f.events.passes)
}

func TestCreatePassSoldByRetailer(t *testing.T) {
	f := newPassFixture()

	d, err := f.svc.Create(context.Background(), retailer, PassInput{OptionID: 11, FirstName: "Bo", LastName: "Peep", DateStart: testNow})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), *d.SoldVia)
	assert.Nil(t, d.UserID)
	assert.Equal(t, model.PassStatusCurrent, d.ProcessingStatus)
}

func TestCreatePassOptionNotOnSale(t *testing.T) {
	f := newPassFixture()
	f.windows.windows = append(f.windows.windows, marchWindow())

	_, err := f.svc.Create(context.Background(), customer, PassInput{OptionID: 12, DateStart: testNow})
	assert.ErrorIs(t, err, ErrOptionNotOnSale)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Empty(t, f.passes.passes)
}

func TestGetPassAuthorization(t *testing.T) {
	f := newPassFixture(cartPass(1))
	ctx := context.Background()

	_, err := f.svc.Get(ctx, Actor{UserID: 99, Role: model.RoleCustomer}, 1)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	_, err = f.svc.Get(ctx, retailer, 1)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	_, err = f.svc.Get(ctx, Actor{}, 1)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	d, err := f.svc.Get(ctx, customer, 1)
	require.NoError(t, err)
	assert.Equal(t, "Future", d.StatusDisplay)
	assert.Equal(t, 100, d.RefundPercentage)

	_, err = f.svc.Get(ctx, staff, 1)
	assert.NoError(t, err)
}

func TestListPassesScopedByRole(t *testing.T) {
	mine := cartPass(1)
	other := cartPass(2)
	other.UserID = ptr(uint64(99))
	sold := cartPass(3)
	sold.UserID, sold.SoldVia = nil, ptr(uint64(2))
	f := newPassFixture(mine, other, sold)
	ctx := context.Background()

	got, err := f.svc.List(ctx, customer, repository.PassFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].ID)

	got, err = f.svc.List(ctx, retailer, repository.PassFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(3), got[0].ID)

	got, err = f.svc.List(ctx, staff, repository.PassFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = f.svc.List(ctx, Actor{}, repository.PassFilter{})
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestCheckoutAppliesDiscountStack(t *testing.T) {
	f := newPassFixture(cartPass(1))

	d, err := f.svc.Checkout(context.Background(), customer, 1, CheckoutInput{
		ConcessionID:         ptr(uint64(1)),
		ConcessionCardNumber: "PC-123",
		DiscountCode:         "SAVE10",
		VoucherCode:          "ABCDEFGH",
		VoucherPin:           "123456",
	})
	require.NoError(t, err)
	assert.False(t, d.InCart)
	assert.Equal(t, "200.00", d.Prices.Base.StringFixed(2))
	assert.Equal(t, "100.00", d.Prices.AfterConcession.StringFixed(2))
	assert.Equal(t, "90.00", d.Prices.AfterDiscountCode.StringFixed(2))
	assert.Equal(t, "40.00", d.Prices.Final.StringFixed(2))
	assert.Equal(t, "3.64", d.Prices.GST.StringFixed(2))

	require.Len(t, f.txns.txns, 1)
	assert.Equal(t, "50.00", f.txns.txns[0].Debit.StringFixed(2))
	assert.Equal(t, uint64(1), *f.txns.txns[0].PassID)
	assert.Equal(t, []uint64{1}, f.events.passes)
}

func TestCheckoutVoucherCoversWholePrice(t *testing.T) {
	p := cartPass(1)
	p.OptionID, p.Option = 11, &defaultWindow().Options[1]
	f := newPassFixture(p)

	d, err := f.svc.Checkout(context.Background(), customer, 1, CheckoutInput{VoucherCode: "ABCDEFGH", VoucherPin: "123456"})
	require.NoError(t, err)
	assert.True(t, d.Prices.Final.IsZero())

	remaining, err := ledger.RemainingBalance(model.Voucher{ID: 1, Amount: dec("50.00")}, f.txns.txns)
	require.NoError(t, err)
	assert.True(t, remaining.IsZero())
}

func TestCheckoutRejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		pass func() model.Pass
		in   CheckoutInput
		want error
	}{
		{"already checked out", func() model.Pass { p := cartPass(1); p.InCart = false; return p }, CheckoutInput{}, ErrPassNotInCart},
		{"cancelled", func() model.Pass {
			p := cartPass(1)
			p.Cancellation = &model.PassCancellation{PassID: 1}
			return p
		}, CheckoutInput{}, ErrPassCancelled},
		{"concession without card", cartPassFn, CheckoutInput{ConcessionID: ptr(uint64(1))}, ErrConcessionCardMissing},
		{"unknown discount code", cartPassFn, CheckoutInput{DiscountCode: "NOPE"}, ErrInvalidDiscountCode},
		{"expired discount code", cartPassFn, CheckoutInput{DiscountCode: "OLD"}, ErrInvalidDiscountCode},
		{"wrong voucher pin", cartPassFn, CheckoutInput{VoucherCode: "ABCDEFGH", VoucherPin: "000000"}, ErrInvalidVoucher},
		{"unknown voucher", cartPassFn, CheckoutInput{VoucherCode: "ZZZZZZZZ", VoucherPin: "123456"}, ErrInvalidVoucher},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPassFixture(tt.pass())
			_, err := f.svc.Checkout(ctx, customer, 1, tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.events.passes)
			assert.Empty(t, f.txns.txns)
		})
	}
}

func cartPassFn() model.Pass { return cartPass(1) }

func TestCheckoutSpentVoucher(t *testing.T) {
	f := newPassFixture(cartPass(1))
	f.txns.txns = []model.VoucherTransaction{{ID: 1, VoucherID: 1, Debit: dec("50.00"), Credit: dec("0")}}

	_, err := f.svc.Checkout(context.Background(), customer, 1, CheckoutInput{VoucherCode: "ABCDEFGH", VoucherPin: "123456"})
	assert.ErrorIs(t, err, ErrVoucherEmpty)
}

func TestUpdatePass(t *testing.T) {
	ctx := context.Background()

	t.Run("start date moves expiry while in cart", func(t *testing.T) {
		f := newPassFixture(cartPass(1))
		d, err := f.svc.Update(ctx, customer, 1, PassUpdate{DateStart: ptr(day("2026-04-01"))})
		require.NoError(t, err)
		assert.Equal(t, day("2027-04-01"), d.DateExpiry)
		assert.Empty(t, f.events.passes)
	})

	t.Run("start date frozen after checkout", func(t *testing.T) {
		p := cartPass(1)
		p.InCart = false
		f := newPassFixture(p)
		_, err := f.svc.Update(ctx, customer, 1, PassUpdate{DateStart: ptr(day("2026-04-01"))})
		assert.ErrorIs(t, err, lifecycle.ErrStartNotEditable)
	})

	t.Run("vehicle updates locked for customers", func(t *testing.T) {
		p := cartPass(1)
		p.InCart, p.PreventFurtherVehicleUpdates = false, true
		f := newPassFixture(p)
		_, err := f.svc.Update(ctx, customer, 1, PassUpdate{VehicleRegistration1: ptr("ABC123")})
		assert.ErrorIs(t, err, ErrVehicleUpdatesLocked)

		d, err := f.svc.Update(ctx, staff, 1, PassUpdate{VehicleRegistration1: ptr("ABC123")})
		require.NoError(t, err)
		assert.Equal(t, "ABC123", *d.VehicleRegistration1)
		assert.Equal(t, []uint64{1}, f.events.passes)
	})

	t.Run("empty string clears optional field", func(t *testing.T) {
		p := cartPass(1)
		p.Company = ptr("ACME")
		f := newPassFixture(p)
		d, err := f.svc.Update(ctx, customer, 1, PassUpdate{Company: ptr("")})
		require.NoError(t, err)
		assert.Nil(t, d.Company)
	})
}

func TestCancelRenewal(t *testing.T) {
	p := cartPass(1)
	p.InCart, p.RenewAutomatically = false, true
	f := newPassFixture(p)
	ctx := context.Background()

	d, err := f.svc.CancelRenewal(ctx, customer, 1)
	require.NoError(t, err)
	assert.False(t, d.RenewAutomatically)

	_, err = f.svc.CancelRenewal(ctx, customer, 1)
	assert.ErrorIs(t, err, lifecycle.ErrNotRenewing)
}

func TestCancelAndUncancel(t *testing.T) {
	p := cartPass(1)
	p.InCart = false
	f := newPassFixture(p)
	ctx := context.Background()

	d, err := f.svc.Cancel(ctx, 1, "moved interstate")
	require.NoError(t, err)
	assert.Equal(t, model.PassStatusCancelled, d.ProcessingStatus)
	assert.Equal(t, "moved interstate", d.Cancellation.CancellationReason)
	assert.Empty(t, f.events.passes)

	_, err = f.svc.Cancel(ctx, 1, "again")
	assert.ErrorIs(t, err, ErrPassAlreadyCancelled)

	d, err = f.svc.Uncancel(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, d.Cancellation)
	assert.Equal(t, model.PassStatusFuture, d.ProcessingStatus)
	assert.Equal(t, []uint64{1}, f.events.passes)

	_, err = f.svc.Uncancel(ctx, 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
