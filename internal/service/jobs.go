package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/park-passes/internal/config"
	"github.com/iliyamo/park-passes/internal/document"
	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/pricing"
	"github.com/iliyamo/park-passes/internal/storage"
)

// JobReport summarises one run of a scheduled job.
type JobReport struct {
	Found  int
	Done   int
	Errors []string
}

func (r *JobReport) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Errors = append(r.Errors, msg)
	log.Error(msg)
}

// VoucherNotificationJob delivers the vouchers that are due today.
type VoucherNotificationJob struct {
	Vouchers VoucherStore
	Users    UserLookup
	Notifier Notifier
	Now      func() time.Time
}

// Run emails every voucher due today that is still new or failed before.
// A delivered recipient email marks the voucher delivered; a failure marks
// it not delivered so the next run retries it.  dryRun only counts.
func (j *VoucherNotificationJob) Run(ctx context.Context, dryRun bool) (JobReport, error) {
	now := utcNow()
	if j.Now != nil {
		now = j.Now()
	}
	vouchers, err := j.Vouchers.ListDueForEmail(ctx, now)
	if err != nil {
		return JobReport{}, err
	}
	rep := JobReport{Found: len(vouchers)}
	for i := range vouchers {
		v := &vouchers[i]
		entry := log.WithField("voucher_id", v.ID)
		if dryRun {
			entry.Info("dry run: would send voucher recipient and purchaser emails")
			continue
		}
		if err := j.Notifier.VoucherRecipient(ctx, v); err != nil {
			rep.fail("voucher %d: %v", v.ID, err)
			if err := j.Vouchers.SetStatus(ctx, v.ID, model.VoucherStatusNotDelivered); err != nil {
				rep.fail("voucher %d: set status: %v", v.ID, err)
			}
			continue
		}
		if err := j.Vouchers.SetStatus(ctx, v.ID, model.VoucherStatusDelivered); err != nil {
			rep.fail("voucher %d: set status: %v", v.ID, err)
			continue
		}
		rep.Done++
		entry.Info("voucher delivered to recipient")

		if v.PurchaserID == nil {
			continue
		}
		u, err := j.Users.GetByID(ctx, *v.PurchaserID)
		if err != nil {
			rep.fail("voucher %d: load purchaser: %v", v.ID, err)
			continue
		}
		if err := j.Notifier.VoucherPurchaser(ctx, v, u.Email); err != nil {
			rep.fail("voucher %d: %v", v.ID, err)
		}
	}
	return rep, nil
}

// ExpiryNoticeJob warns holders about passes that are about to expire
// and tells them when a pass has expired.
type ExpiryNoticeJob struct {
	Passes   PassStore
	Notifier Notifier
	Now      func() time.Time
}

// Run sends the autorenew or expiry notice for passes expiring in days
// days, and the expired notice for passes that expired yesterday.
func (j *ExpiryNoticeJob) Run(ctx context.Context, days int) (JobReport, error) {
	now := utcNow()
	if j.Now != nil {
		now = j.Now()
	}
	today := model.DateOf(now)
	var rep JobReport

	soon, err := j.Passes.ListExpiringOn(ctx, today.AddDate(0, 0, days))
	if err != nil {
		return rep, err
	}
	rep.Found += len(soon)
	for i := range soon {
		p := &soon[i]
		send := j.Notifier.PassExpiry
		if p.RenewAutomatically {
			send = j.Notifier.PassAutoRenew
		}
		if err := send(ctx, p); err != nil {
			rep.fail("pass %d: %v", p.ID, err)
			continue
		}
		rep.Done++
	}

	expired, err := j.Passes.ListExpiringOn(ctx, today.AddDate(0, 0, -1))
	if err != nil {
		return rep, err
	}
	for i := range expired {
		p := &expired[i]
		if p.RenewAutomatically {
			continue
		}
		rep.Found++
		if err := j.Notifier.PassExpired(ctx, p); err != nil {
			rep.fail("pass %d: %v", p.ID, err)
			continue
		}
		rep.Done++
	}
	return rep, nil
}

// InvoiceJob produces the monthly invoice and sales report of every
// retailer group.
type InvoiceJob struct {
	Groups   RetailerGroupStore
	Passes   PassStore
	Reports  ReportStore
	Store    storage.Store
	Settings config.Settings
	Now      func() time.Time
}

// InvoicePeriod returns [start, end) of the month to invoice: the previous
// month, or the current month when current is set.
func InvoicePeriod(now time.Time, current bool) (start, end time.Time) {
	y, m, _ := now.UTC().Date()
	thisMonth := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	if current {
		return thisMonth, thisMonth.AddDate(0, 1, 0)
	}
	return thisMonth.AddDate(0, -1, 0), thisMonth
}

// BuildInvoice totals the passes a group sold in a period.  Sales are the
// prices after concession; commission is the group's percentage of sales.
func BuildInvoice(g model.RetailerGroup, passes []model.Pass, start, end, generated time.Time, organisation string) document.Invoice {
	inv := document.Invoice{
		Organisation:         organisation,
		Group:                g,
		PeriodStart:          start,
		PeriodEnd:            end.AddDate(0, 0, -1),
		Generated:            generated,
		TotalSales:           decimal.Zero,
		CommissionPercentage: g.CommissionPercentage,
	}
	byType := map[string]int{}
	for i := range passes {
		p := &passes[i]
		price := pricing.PriceAfterConcession(p).Round(2)
		inv.TotalSales = inv.TotalSales.Add(price)

		line := document.InvoiceLine{Holder: p.FullName(), Sold: p.CreatedAt, Price: price}
		if p.PassNumber != nil {
			line.PassNumber = *p.PassNumber
		}
		if p.PassType != nil {
			line.PassType = p.PassType.DisplayName
		}
		inv.Lines = append(inv.Lines, line)

		idx, ok := byType[line.PassType]
		if !ok {
			idx = len(inv.ByPassType)
			byType[line.PassType] = idx
			inv.ByPassType = append(inv.ByPassType, document.PassTypeTotal{PassType: line.PassType, Sales: decimal.Zero})
		}
		inv.ByPassType[idx].Count++
		inv.ByPassType[idx].Sales = inv.ByPassType[idx].Sales.Add(p.Price())
	}
	inv.TotalSales = inv.TotalSales.Round(2)
	inv.CommissionAmount = inv.TotalSales.Mul(g.CommissionPercentage).Div(decimal.NewFromInt(100)).Round(2)
	inv.TotalPayable = inv.TotalSales.Sub(inv.CommissionAmount).Round(2)
	return inv
}

// Run invoices every active retailer group other than the online sales
// group.  Groups without sales in the period are skipped.  Re-running for
// the same month replaces the stored documents.
func (j *InvoiceJob) Run(ctx context.Context, currentMonth bool) (JobReport, error) {
	now := utcNow()
	if j.Now != nil {
		now = j.Now()
	}
	start, end := InvoicePeriod(now, currentMonth)
	groups, err := j.Groups.ListInvoiceable(ctx, j.Settings.DefaultSoldVia)
	if err != nil {
		return JobReport{}, err
	}
	log.WithFields(log.Fields{"from": start.Format("2006-01-02"), "to": end.Format("2006-01-02"), "groups": len(groups)}).
		Info("generating retailer invoices")

	var rep JobReport
	for _, g := range groups {
		passes, err := j.Passes.ListSoldViaBetween(ctx, g.ID, start, end)
		if err != nil {
			rep.fail("retailer group %d: %v", g.ID, err)
			continue
		}
		if len(passes) == 0 {
			continue
		}
		rep.Found++
		inv := BuildInvoice(g, passes, start, end, now, j.Settings.Organisation)
		inv.UUID = uuid.NewString()
		if err := j.store(ctx, inv, start); err != nil {
			rep.fail("retailer group %d: %v", g.ID, err)
			continue
		}
		rep.Done++
	}
	return rep, nil
}

func (j *InvoiceJob) store(ctx context.Context, inv document.Invoice, start time.Time) error {
	invoiceHTML, err := document.RenderInvoice(inv)
	if err != nil {
		return err
	}
	reportHTML, err := document.RenderReport(inv)
	if err != nil {
		return err
	}
	invoiceKey, reportKey := document.InvoiceKeys(inv.Group.ID, start.Year(), int(start.Month()))
	if err := j.Store.Put(ctx, invoiceKey, "text/html; charset=utf-8", invoiceHTML); err != nil {
		return err
	}
	if err := j.Store.Put(ctx, reportKey, "text/html; charset=utf-8", reportHTML); err != nil {
		return err
	}
	r := model.Report{
		UUID:            inv.UUID,
		RetailerGroupID: inv.Group.ID,
		PeriodYear:      start.Year(),
		PeriodMonth:     int(start.Month()),
		InvoiceKey:      invoiceKey,
		ReportKey:       reportKey,
	}
	if err := j.Reports.Upsert(ctx, &r); err != nil {
		return err
	}
	log.WithFields(log.Fields{"retailer_group_id": inv.Group.ID, "report_id": r.ID, "total_payable": inv.TotalPayable.StringFixed(2)}).
		Info("retailer invoice stored")
	return nil
}
