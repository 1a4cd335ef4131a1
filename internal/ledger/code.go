package ledger

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// CodeLength is the number of characters in a voucher code.
	CodeLength = 8
	// MaxCodeAttempts bounds the inserts retried after a duplicate code.
	MaxCodeAttempts = 5
	// PinDigits is the number of digits in a voucher PIN.
	PinDigits = 6
)

var pinUpper = big.NewInt(1_000_000)

// GenerateCode draws a fresh candidate code: the first eight characters of
// a random UUID, upper-cased.
func GenerateCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(id[:CodeLength])
}

// GenerateUniqueCode draws codes until exists reports one as unused.  The
// check is advisory; the UNIQUE index on vouchers.code is what finally
// decides, so callers still retry on a duplicate key.
func GenerateUniqueCode(exists func(code string) (bool, error)) (string, error) {
	for {
		code := GenerateCode()
		taken, err := exists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
}

// GeneratePIN returns a six digit zero-padded PIN from a CSPRNG.
func GeneratePIN() (string, error) {
	n, err := rand.Int(rand.Reader, pinUpper)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", PinDigits, n.Int64()), nil
}

// VoucherNumber formats the public voucher number for a voucher id.
func VoucherNumber(id uint64) string { return fmt.Sprintf("V%06d", id) }
