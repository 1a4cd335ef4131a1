package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/park-passes/internal/config"
	"github.com/iliyamo/park-passes/internal/lifecycle"
	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/queue"
	"github.com/iliyamo/park-passes/internal/repository"
)

// Notifier sends the customer emails.
type Notifier interface {
	PassPurchased(ctx context.Context, p *model.Pass, documentURL string) error
	PassUpdated(ctx context.Context, p *model.Pass, documentURL string) error
	PassAutoRenew(ctx context.Context, p *model.Pass) error
	PassExpiry(ctx context.Context, p *model.Pass) error
	PassExpired(ctx context.Context, p *model.Pass) error
	VoucherRecipient(ctx context.Context, v *model.Voucher) error
	VoucherPurchaser(ctx context.Context, v *model.Voucher, purchaserEmail string) error
	VoucherReceipt(ctx context.Context, v *model.Voucher, purchaserEmail string) error
}

// Worker handles the events published after commit.
type Worker struct {
	Passes    PassStore
	Vouchers  VoucherStore
	Users     UserLookup
	Documents *DocumentService
	Notifier  Notifier
	Settings  config.Settings
}

func (w *Worker) documentURL(p *model.Pass) string {
	if p.DocumentKey == nil {
		return ""
	}
	return fmt.Sprintf("%s/v1/passes/%d/document", w.Settings.SiteURL, p.ID)
}

// HandlePassSaved regenerates the pass document and emails the holder:
// the purchase confirmation the first time, an update notice after that.
func (w *Worker) HandlePassSaved(ctx context.Context, body []byte) error {
	var ev queue.PassSavedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	p, err := w.Passes.GetByID(ctx, ev.PassID)
	if errors.Is(err, repository.ErrNotFound) {
		log.WithField("pass_id", ev.PassID).Warn("pass saved event for a missing pass")
		return nil
	}
	if err != nil {
		return err
	}
	if !lifecycle.ShouldNotify(&p) {
		return nil
	}
	entry := log.WithFields(log.Fields{"pass_id": p.ID, "pass_number": p.PassNumber})
	if _, err := w.Documents.GeneratePassDocument(ctx, &p); err != nil {
		return err
	}
	if !p.PurchaseEmailSent {
		if err := w.Notifier.PassPurchased(ctx, &p, w.documentURL(&p)); err != nil {
			return err
		}
		if err := w.Passes.MarkPurchaseEmailSent(ctx, p.ID); err != nil {
			return err
		}
		entry.Info("pass purchased notification sent")
		return nil
	}
	if err := w.Notifier.PassUpdated(ctx, &p, w.documentURL(&p)); err != nil {
		return err
	}
	entry.Info("pass updated notification sent")
	return nil
}

// HandleVoucherPurchased sends the purchaser a receipt.
func (w *Worker) HandleVoucherPurchased(ctx context.Context, body []byte) error {
	var ev queue.VoucherPurchasedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	v, err := w.Vouchers.GetByIDTx(ctx, nil, ev.VoucherID)
	if errors.Is(err, repository.ErrNotFound) {
		log.WithField("voucher_id", ev.VoucherID).Warn("voucher purchased event for a missing voucher")
		return nil
	}
	if err != nil {
		return err
	}
	entry := log.WithFields(log.Fields{"voucher_id": v.ID, "amount": v.Amount.StringFixed(2)})
	entry.Info("voucher purchased")
	if v.PurchaserID == nil {
		return nil
	}
	u, err := w.Users.GetByID(ctx, *v.PurchaserID)
	if err != nil {
		return err
	}
	if err := w.Notifier.VoucherReceipt(ctx, &v, u.Email); err != nil {
		return err
	}
	entry.Info("voucher receipt sent")
	return nil
}
