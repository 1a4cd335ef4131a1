package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/park-passes/internal/config"
	"github.com/iliyamo/park-passes/internal/mail"
	"github.com/iliyamo/park-passes/internal/model"
)

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func strPtr(s string) *string { return &s }

func testPass() *model.Pass {
	return &model.Pass{
		ID:         1,
		PassNumber: strPtr("PP000001"),
		FirstName:  "Ada",
		Email:      "ada@example.org",
		DateStart:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		DateExpiry: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		PassType:   &model.PassType{DisplayName: "Annual Pass"},
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	cause := errors.New("connection refused")
	err := failed(KindPassExpiry, cause)

	assert.ErrorIs(t, err, ErrPassExpiryFailed)
	assert.NotErrorIs(t, err, ErrPassPurchasedFailed)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "pass_expiry")
	assert.NoError(t, failed(KindPassExpiry, nil))
}

func TestPassPurchased(t *testing.T) {
	m := &recordingMailer{}
	n := New(m, config.DefaultSettings())

	require.NoError(t, n.PassPurchased(context.Background(), testPass(), "https://example.org/p.png"))
	require.Len(t, m.sent, 1)
	assert.Equal(t, []string{"ada@example.org"}, m.sent[0].To)
	assert.Equal(t, "Your Annual Pass PP000001", m.sent[0].Subject)
	assert.Contains(t, m.sent[0].HTML, "valid from 01/01/2026 until 01/01/2027")
	assert.Contains(t, m.sent[0].HTML, "https://example.org/p.png")
	assert.Contains(t, m.sent[0].HTML, config.DefaultSettings().Organisation)
}

func TestSendFailureIsWrappedPerKind(t *testing.T) {
	cause := errors.New("smtp down")
	n := New(&recordingMailer{err: cause}, config.DefaultSettings())
	ctx := context.Background()

	assert.ErrorIs(t, n.PassUpdated(ctx, testPass(), ""), ErrPassUpdatedFailed)
	assert.ErrorIs(t, n.PassAutoRenew(ctx, testPass()), ErrPassAutoRenewFailed)
	assert.ErrorIs(t, n.PassExpired(ctx, testPass()), ErrPassExpiredFailed)

	err := n.PassExpiry(ctx, testPass())
	var ne *Error
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, KindPassExpiry, ne.Kind)
	assert.ErrorIs(t, err, cause)
}

func TestVoucherEmails(t *testing.T) {
	m := &recordingMailer{}
	n := New(m, config.DefaultSettings())
	v := &model.Voucher{
		VoucherNumber:   strPtr("V000004"),
		RecipientName:   "Grace",
		RecipientEmail:  "grace@example.org",
		PersonalMessage: "Enjoy the parks",
		Amount:          decimal.RequireFromString("50"),
		Code:            "AB12CD34",
		Pin:             "004211",
		Expiry:          time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	ctx := context.Background()

	require.NoError(t, n.VoucherRecipient(ctx, v))
	assert.Contains(t, m.sent[0].HTML, "AB12CD34")
	assert.Contains(t, m.sent[0].HTML, "004211")
	assert.Contains(t, m.sent[0].HTML, "$50.00")

	require.NoError(t, n.VoucherPurchaser(ctx, v, "buyer@example.org"))
	assert.Equal(t, []string{"buyer@example.org"}, m.sent[1].To)

	assert.ErrorIs(t, n.VoucherReceipt(ctx, v, ""), ErrVoucherReceiptFailed)
}
