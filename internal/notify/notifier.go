package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"time"

	"github.com/iliyamo/park-passes/internal/config"
	"github.com/iliyamo/park-passes/internal/mail"
	"github.com/iliyamo/park-passes/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var emails = template.Must(template.New("").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format("02/01/2006") },
}).ParseFS(templateFS, "templates/*.html"))

var errNoRecipient = errors.New("no recipient email address")

// Notifier renders the notification emails and hands them to a mailer.
type Notifier struct {
	mailer   mail.Mailer
	settings config.Settings
}

func New(m mail.Mailer, s config.Settings) *Notifier {
	return &Notifier{mailer: m, settings: s}
}

type passView struct {
	Organisation string
	SiteURL      string
	Pass         *model.Pass
	PassNumber   string
	PassType     string
	DocumentURL  string
}

type voucherView struct {
	Organisation  string
	SiteURL       string
	Voucher       *model.Voucher
	VoucherNumber string
}

func (n *Notifier) passView(p *model.Pass, documentURL string) passView {
	v := passView{
		Organisation: n.settings.Organisation,
		SiteURL:      n.settings.SiteURL,
		Pass:         p,
		PassType:     "park pass",
		DocumentURL:  documentURL,
	}
	if p.PassNumber != nil {
		v.PassNumber = *p.PassNumber
	}
	if p.PassType != nil {
		v.PassType = p.PassType.DisplayName
	}
	return v
}

func (n *Notifier) voucherView(v *model.Voucher) voucherView {
	vv := voucherView{Organisation: n.settings.Organisation, SiteURL: n.settings.SiteURL, Voucher: v}
	if v.VoucherNumber != nil {
		vv.VoucherNumber = *v.VoucherNumber
	}
	return vv
}

func (n *Notifier) send(ctx context.Context, kind Kind, to, subject, tmpl string, data any) error {
	if to == "" {
		return failed(kind, errNoRecipient)
	}
	var body bytes.Buffer
	if err := emails.ExecuteTemplate(&body, tmpl, data); err != nil {
		return failed(kind, err)
	}
	return failed(kind, n.mailer.Send(ctx, mail.Message{To: []string{to}, Subject: subject, HTML: body.String()}))
}

// PassPurchased confirms a new pass to its holder.
func (n *Notifier) PassPurchased(ctx context.Context, p *model.Pass, documentURL string) error {
	v := n.passView(p, documentURL)
	return n.send(ctx, KindPassPurchased, p.Email, "Your "+v.PassType+" "+v.PassNumber, "pass_purchased.html", v)
}

// PassUpdated tells the holder that the pass details changed.
func (n *Notifier) PassUpdated(ctx context.Context, p *model.Pass, documentURL string) error {
	v := n.passView(p, documentURL)
	return n.send(ctx, KindPassUpdated, p.Email, "Your "+v.PassType+" "+v.PassNumber+" has been updated", "pass_updated.html", v)
}

// PassAutoRenew warns that the pass is about to renew automatically.
func (n *Notifier) PassAutoRenew(ctx context.Context, p *model.Pass) error {
	v := n.passView(p, "")
	return n.send(ctx, KindPassAutoRenew, p.Email, "Your "+v.PassType+" will renew soon", "pass_autorenew.html", v)
}

// PassExpiry warns that the pass is about to expire.
func (n *Notifier) PassExpiry(ctx context.Context, p *model.Pass) error {
	v := n.passView(p, "")
	return n.send(ctx, KindPassExpiry, p.Email, "Your "+v.PassType+" expires soon", "pass_expiry.html", v)
}

// PassExpired tells the holder that the pass has expired.
func (n *Notifier) PassExpired(ctx context.Context, p *model.Pass) error {
	v := n.passView(p, "")
	return n.send(ctx, KindPassExpired, p.Email, "Your "+v.PassType+" has expired", "pass_expired.html", v)
}

// VoucherRecipient delivers the voucher code and pin to the recipient.
func (n *Notifier) VoucherRecipient(ctx context.Context, v *model.Voucher) error {
	return n.send(ctx, KindVoucherRecipient, v.RecipientEmail, "You have received a park pass gift voucher",
		"voucher_recipient.html", n.voucherView(v))
}

// VoucherPurchaser tells the purchaser that the voucher was delivered.
func (n *Notifier) VoucherPurchaser(ctx context.Context, v *model.Voucher, purchaserEmail string) error {
	return n.send(ctx, KindVoucherPurchaser, purchaserEmail, "Your gift voucher has been sent",
		"voucher_purchaser.html", n.voucherView(v))
}

// VoucherReceipt confirms a voucher purchase to the purchaser.
func (n *Notifier) VoucherReceipt(ctx context.Context, v *model.Voucher, purchaserEmail string) error {
	return n.send(ctx, KindVoucherReceipt, purchaserEmail, "Your gift voucher purchase",
		"voucher_receipt.html", n.voucherView(v))
}
