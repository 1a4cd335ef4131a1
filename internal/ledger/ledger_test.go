package ledger

import (
	"errors"
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/park-passes/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func txn(credit, debit string) model.VoucherTransaction {
	return model.VoucherTransaction{Credit: dec(credit), Debit: dec(debit)}
}

func TestRemainingBalance(t *testing.T) {
	v := model.Voucher{ID: 1, Amount: dec("100.00")}

	tests := []struct {
		name    string
		txns    []model.VoucherTransaction
		want    string
		wantErr error
	}{
		{"untouched", nil, "100.00", nil},
		{"debits and credits", []model.VoucherTransaction{txn("0", "40.00"), txn("15.00", "0"), txn("0", "25.50")}, "49.50", nil},
		{"fully spent", []model.VoucherTransaction{txn("0", "100.00")}, "0.00", nil},
		{"over credited", []model.VoucherTransaction{txn("0.01", "0")}, "100.01", ErrBalanceExceedsAmount},
		{"overdrawn", []model.VoucherTransaction{txn("0", "100.01")}, "-0.01", ErrBalanceBelowZero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RemainingBalance(v, tt.txns)
			assert.Equal(t, tt.want, got.StringFixed(2))
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, errors.Is(err, model.ErrIntegrity))
		})
	}
}

func TestDebitFor(t *testing.T) {
	assert.Equal(t, "30.00", DebitFor(dec("30.00"), dec("120.00")).StringFixed(2))
	assert.Equal(t, "25.00", DebitFor(dec("100.00"), dec("25.00")).StringFixed(2))
	assert.True(t, DebitFor(dec("100.00"), dec("-1")).IsZero())
}

func TestCheckEntry(t *testing.T) {
	v := model.Voucher{Amount: dec("50.00")}
	log := []model.VoucherTransaction{txn("0", "20.00")}

	after, err := CheckEntry(v, log, txn("0", "30.00"))
	require.NoError(t, err)
	assert.True(t, after.IsZero())

	_, err = CheckEntry(v, log, txn("0", "30.01"))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = CheckEntry(v, log, txn("20.01", "0"))
	assert.ErrorIs(t, err, ErrBalanceExceedsAmount)

	_, err = CheckEntry(v, log, txn("-1", "0"))
	assert.ErrorIs(t, err, ErrNegativeEntry)
}

var codePattern = regexp.MustCompile(`^[0-9A-F]{8}$`)

func TestGenerateUniqueCode_NoDuplicates(t *testing.T) {
	seen := make(map[string]bool)
	exists := func(code string) (bool, error) { return seen[code], nil }
	for i := 0; i < 1000; i++ {
		code, err := GenerateUniqueCode(exists)
		require.NoError(t, err)
		require.Regexp(t, codePattern, code)
		require.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
	assert.Len(t, seen, 1000)
}

func TestGenerateUniqueCode_DrawsUntilUnused(t *testing.T) {
	calls := 0
	code, err := GenerateUniqueCode(func(string) (bool, error) {
		calls++
		return calls <= 3*MaxCodeAttempts, nil
	})
	require.NoError(t, err)
	assert.Regexp(t, codePattern, code)
	assert.Equal(t, 3*MaxCodeAttempts+1, calls)

	boom := errors.New("db down")
	_, err = GenerateUniqueCode(func(string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}

func TestGeneratePIN(t *testing.T) {
	pinPattern := regexp.MustCompile(`^[0-9]{6}$`)
	for i := 0; i < 200; i++ {
		pin, err := GeneratePIN()
		require.NoError(t, err)
		assert.Regexp(t, pinPattern, pin)
	}
}

func TestVoucherNumber(t *testing.T) {
	assert.Equal(t, "V000012", VoucherNumber(12))
}
