package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/park-passes/internal/config"
	"github.com/iliyamo/park-passes/internal/ledger"
	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/repository"
)

func newVoucherService(vs *fakeVouchers, txns *fakeVoucherTxns) (*VoucherService, *fakeEvents) {
	ev := &fakeEvents{}
	return &VoucherService{
		Vouchers:    vs,
		VoucherTxns: txns,
		Tx:          &fakeTx{},
		Events:      ev,
		Settings:    config.DefaultSettings(),
		Now:         func() time.Time { return testNow },
	}, ev
}

func deliveredVoucher() model.Voucher {
	return model.Voucher{
		ID: 1, PurchaserID: ptr(uint64(7)), RecipientEmail: "friend@example.com",
		Code: "ABCDEFGH", Pin: "123456", Amount: dec("100.00"), Expiry: day("2028-01-01"),
		ProcessingStatus: model.VoucherStatusDelivered,
	}
}

func TestCreateVoucher(t *testing.T) {
	vs := newFakeVouchers()
	s, _ := newVoucherService(vs, &fakeVoucherTxns{})

	d, err := s.Create(context.Background(), customer, VoucherInput{
		RecipientName:  "Grace",
		RecipientEmail: "Grace@Example.com ",
		Amount:         dec("75.555"),
	})
	require.NoError(t, err)
	assert.Equal(t, "V000001", *d.VoucherNumber)
	assert.Equal(t, "grace@example.com", d.RecipientEmail)
	assert.Equal(t, "75.56", d.Amount.StringFixed(2))
	assert.Equal(t, "75.56", d.RemainingBalance.StringFixed(2))
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{8}$`), d.Code)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), d.Pin)
	assert.Equal(t, testNow.AddDate(0, 0, 730), d.Expiry)
	assert.Equal(t, testNow, d.DatetimeToEmail)
	assert.Equal(t, uint64(7), *d.PurchaserID)
	assert.True(t, d.InCart)
	assert.Equal(t, "New", d.StatusDisplay)
}

func TestCreateVoucherRetriesCodeCollision(t *testing.T) {
	vs := newFakeVouchers()
	vs.insertErrs = []error{errDuplicate, errDuplicate}
	s, _ := newVoucherService(vs, &fakeVoucherTxns{})

	d, err := s.Create(context.Background(), customer, VoucherInput{RecipientName: "Grace", RecipientEmail: "g@example.com", Amount: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), d.ID)
	assert.Len(t, vs.vouchers, 1)
}

func TestCreateVoucherGivesUpAfterMaxAttempts(t *testing.T) {
	vs := newFakeVouchers()
	for i := 0; i < ledger.MaxCodeAttempts; i++ {
		vs.insertErrs = append(vs.insertErrs, errDuplicate)
	}
	s, _ := newVoucherService(vs, &fakeVoucherTxns{})

	_, err := s.Create(context.Background(), customer, VoucherInput{RecipientName: "Grace", RecipientEmail: "g@example.com", Amount: dec("10")})
	assert.True(t, repository.IsDuplicateKey(err))
	assert.Empty(t, vs.vouchers)
}

func TestCreateVoucherRejectsAmount(t *testing.T) {
	s, _ := newVoucherService(newFakeVouchers(), &fakeVoucherTxns{})

	_, err := s.Create(context.Background(), customer, VoucherInput{Amount: dec("0")})
	assert.ErrorIs(t, err, ErrVoucherAmountInvalid)
}

func TestVoucherCheckoutPublishes(t *testing.T) {
	v := deliveredVoucher()
	v.InCart, v.ProcessingStatus = true, model.VoucherStatusNew
	s, ev := newVoucherService(newFakeVouchers(v), &fakeVoucherTxns{})
	ctx := context.Background()

	_, err := s.Checkout(ctx, Actor{UserID: 99, Role: model.RoleCustomer}, 1)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	d, err := s.Checkout(ctx, customer, 1)
	require.NoError(t, err)
	assert.False(t, d.InCart)
	assert.Equal(t, []uint64{1}, ev.vouchers)

	_, err = s.Checkout(ctx, customer, 1)
	assert.ErrorIs(t, err, ErrVoucherNotInCart)
}

func TestVoucherUpdateBeforeDelivery(t *testing.T) {
	v := deliveredVoucher()
	v.ProcessingStatus = model.VoucherStatusNew
	vs := newFakeVouchers(v)
	s, _ := newVoucherService(vs, &fakeVoucherTxns{})
	ctx := context.Background()

	d, err := s.Update(ctx, customer, 1, VoucherUpdate{RecipientEmail: ptr(" New@Example.com")})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", d.RecipientEmail)

	require.NoError(t, vs.SetStatus(ctx, 1, model.VoucherStatusDelivered))
	_, err = s.Update(ctx, customer, 1, VoucherUpdate{RecipientName: ptr("Someone")})
	assert.ErrorIs(t, err, ErrVoucherDelivered)
}

func TestValidateVoucher(t *testing.T) {
	txns := &fakeVoucherTxns{txns: []model.VoucherTransaction{{ID: 1, VoucherID: 1, Debit: dec("30.00"), Credit: dec("0")}}}
	expired := deliveredVoucher()
	expired.ID, expired.Code, expired.Expiry = 2, "EXPIRED1", day("2026-01-01")
	s, _ := newVoucherService(newFakeVouchers(deliveredVoucher(), expired), txns)
	ctx := context.Background()

	res, err := s.Validate(ctx, "friend@example.com", "ABCDEFGH", "123456")
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Equal(t, "70.00", res.BalanceRemaining.StringFixed(2))

	res, err = s.Validate(ctx, "friend@example.com", "ABCDEFGH", "000000")
	require.NoError(t, err)
	assert.False(t, res.IsValid)

	// an expired voucher still validates; checkout refuses it
	res, err = s.Validate(ctx, "friend@example.com", "EXPIRED1", "123456")
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Equal(t, "100.00", res.BalanceRemaining.StringFixed(2))
}

func TestValidateVoucherCorruptLedger(t *testing.T) {
	txns := &fakeVoucherTxns{txns: []model.VoucherTransaction{{ID: 1, VoucherID: 1, Debit: dec("0"), Credit: dec("5.00")}}}
	s, _ := newVoucherService(newFakeVouchers(deliveredVoucher()), txns)

	_, err := s.Validate(context.Background(), "friend@example.com", "ABCDEFGH", "123456")
	assert.ErrorIs(t, err, ledger.ErrBalanceExceedsAmount)
	assert.ErrorIs(t, err, model.ErrIntegrity)
}

func TestAddTransaction(t *testing.T) {
	txns := &fakeVoucherTxns{}
	s, _ := newVoucherService(newFakeVouchers(deliveredVoucher()), txns)
	ctx := context.Background()

	got, err := s.AddTransaction(ctx, TransactionInput{VoucherID: 1, Debit: dec("60")})
	require.NoError(t, err)
	assert.Equal(t, testNow, got.DatetimeCreated)

	_, err = s.AddTransaction(ctx, TransactionInput{VoucherID: 1, Debit: dec("50")})
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	_, err = s.AddTransaction(ctx, TransactionInput{VoucherID: 1, Credit: dec("70")})
	assert.ErrorIs(t, err, ledger.ErrBalanceExceedsAmount)

	_, err = s.AddTransaction(ctx, TransactionInput{VoucherID: 1, Debit: dec("-1")})
	assert.ErrorIs(t, err, ledger.ErrNegativeEntry)

	_, err = s.AddTransaction(ctx, TransactionInput{VoucherID: 2, Debit: dec("1")})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	all, err := s.ListTransactions(ctx, ptr(uint64(1)))
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListVouchersScopedToPurchaser(t *testing.T) {
	other := deliveredVoucher()
	other.ID, other.Code, other.PurchaserID = 2, "OTHER123", ptr(uint64(99))
	s, _ := newVoucherService(newFakeVouchers(deliveredVoucher(), other), &fakeVoucherTxns{})
	ctx := context.Background()

	got, err := s.List(ctx, customer, repository.VoucherFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].ID)

	got, err = s.List(ctx, staff, repository.VoucherFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = s.List(ctx, Actor{}, repository.VoucherFilter{})
	assert.ErrorIs(t, err, repository.ErrForbidden)
}
