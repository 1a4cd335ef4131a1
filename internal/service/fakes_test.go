package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/queue"
	"github.com/iliyamo/park-passes/internal/repository"
	"github.com/iliyamo/park-passes/internal/storage"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

var errDuplicate = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

type fakeTx struct{ calls int }

func (f *fakeTx) WithinTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	f.calls++
	return fn(nil)
}

type fakeCache struct{ purged int }

func (f *fakeCache) Purge(context.Context) { f.purged++ }

type fakeEvents struct {
	mu       sync.Mutex
	passes   []uint64
	vouchers []uint64
}

func (f *fakeEvents) PassSaved(_ context.Context, ev queue.PassSavedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passes = append(f.passes, ev.PassID)
	return nil
}

func (f *fakeEvents) VoucherPurchased(_ context.Context, ev queue.VoucherPurchasedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vouchers = append(f.vouchers, ev.VoucherID)
	return nil
}

// catalogue

type fakePassTypes struct{ types map[uint64]model.PassType }

func (f *fakePassTypes) List(_ context.Context, vis repository.PassTypeVisibility) ([]model.PassType, error) {
	var out []model.PassType
	for _, t := range f.types {
		if vis == repository.VisibleExternally && !t.DisplayExternally {
			continue
		}
		if vis == repository.VisibleToRetailers && !t.DisplayRetailer {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePassTypes) GetByID(_ context.Context, id uint64) (model.PassType, error) {
	t, ok := f.types[id]
	if !ok {
		return t, repository.ErrNotFound
	}
	return t, nil
}

func (f *fakePassTypes) Create(_ context.Context, t *model.PassType) error {
	t.ID = uint64(len(f.types) + 1)
	f.types[t.ID] = *t
	return nil
}

func (f *fakePassTypes) Update(_ context.Context, t *model.PassType) error {
	if _, ok := f.types[t.ID]; !ok {
		return repository.ErrNotFound
	}
	f.types[t.ID] = *t
	return nil
}

type fakeWindows struct {
	windows   []model.PricingWindow
	createErr error
}

func (f *fakeWindows) List(_ context.Context, passTypeID *uint64) ([]model.PricingWindow, error) {
	var out []model.PricingWindow
	for _, w := range f.windows {
		if passTypeID == nil || w.PassTypeID == *passTypeID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWindows) ListByPassTypeTx(ctx context.Context, _ *sql.Tx, passTypeID uint64) ([]model.PricingWindow, error) {
	return f.List(ctx, &passTypeID)
}

func (f *fakeWindows) GetByID(_ context.Context, id uint64) (model.PricingWindow, error) {
	for _, w := range f.windows {
		if w.ID == id {
			return w, nil
		}
	}
	return model.PricingWindow{}, repository.ErrNotFound
}

func (f *fakeWindows) CreateTx(_ context.Context, _ *sql.Tx, w *model.PricingWindow) error {
	if f.createErr != nil {
		return f.createErr
	}
	w.ID = uint64(len(f.windows) + 100)
	f.windows = append(f.windows, *w)
	return nil
}

func (f *fakeWindows) Delete(_ context.Context, id uint64) error {
	for i, w := range f.windows {
		if w.ID == id {
			f.windows = append(f.windows[:i], f.windows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// fakeOptions reads options out of the windows they belong to.
type fakeOptions struct{ windows *fakeWindows }

func (f *fakeOptions) List(_ context.Context, windowID *uint64) ([]model.PricingOption, error) {
	var out []model.PricingOption
	for _, w := range f.windows.windows {
		if windowID == nil || w.ID == *windowID {
			out = append(out, w.Options...)
		}
	}
	return out, nil
}

func (f *fakeOptions) GetByIDTx(_ context.Context, _ *sql.Tx, id uint64) (model.PricingOption, error) {
	for _, w := range f.windows.windows {
		for _, o := range w.Options {
			if o.ID == id {
				return o, nil
			}
		}
	}
	return model.PricingOption{}, repository.ErrNotFound
}

func (f *fakeOptions) Create(_ context.Context, o *model.PricingOption) error {
	for i := range f.windows.windows {
		w := &f.windows.windows[i]
		if w.ID == o.PricingWindowID {
			o.ID = uint64(1000 + len(w.Options))
			w.Options = append(w.Options, *o)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeOptions) Delete(context.Context, uint64) error { return repository.ErrProtected }

// passes

type fakePasses struct {
	passes  map[uint64]model.Pass
	nextID  uint64
	emailed []uint64
	docKeys map[uint64]string
}

func newFakePasses(ps ...model.Pass) *fakePasses {
	f := &fakePasses{passes: map[uint64]model.Pass{}, nextID: 1, docKeys: map[uint64]string{}}
	for _, p := range ps {
		f.passes[p.ID] = p
		if p.ID >= f.nextID {
			f.nextID = p.ID + 1
		}
	}
	return f
}

func (f *fakePasses) GetByIDTx(_ context.Context, _ *sql.Tx, id uint64) (model.Pass, error) {
	p, ok := f.passes[id]
	if !ok {
		return p, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakePasses) GetByID(ctx context.Context, id uint64) (model.Pass, error) {
	return f.GetByIDTx(ctx, nil, id)
}

func (f *fakePasses) sorted(keep func(model.Pass) bool) []model.Pass {
	var out []model.Pass
	for _, p := range f.passes {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakePasses) List(_ context.Context, flt repository.PassFilter) ([]model.Pass, error) {
	return f.sorted(func(p model.Pass) bool {
		if flt.UserID != nil && (p.UserID == nil || *p.UserID != *flt.UserID) {
			return false
		}
		if flt.SoldVia != nil && (p.SoldVia == nil || *p.SoldVia != *flt.SoldVia) {
			return false
		}
		return true
	}), nil
}

func (f *fakePasses) ListExpiringOn(_ context.Context, d time.Time) ([]model.Pass, error) {
	return f.sorted(func(p model.Pass) bool {
		return !p.InCart && p.Cancellation == nil && p.DateExpiry.Equal(model.DateOf(d))
	}), nil
}

func (f *fakePasses) ListSoldViaBetween(_ context.Context, groupID uint64, from, to time.Time) ([]model.Pass, error) {
	return f.sorted(func(p model.Pass) bool {
		return !p.InCart && p.SoldVia != nil && *p.SoldVia == groupID &&
			!p.CreatedAt.Before(from) && p.CreatedAt.Before(to)
	}), nil
}

func (f *fakePasses) InsertTx(_ context.Context, _ *sql.Tx, p *model.Pass) error {
	p.ID = f.nextID
	f.nextID++
	f.passes[p.ID] = *p
	return nil
}

func (f *fakePasses) SetPassNumberTx(_ context.Context, _ *sql.Tx, id uint64, number string) error {
	p := f.passes[id]
	p.PassNumber = &number
	f.passes[id] = p
	return nil
}

func (f *fakePasses) UpdateTx(_ context.Context, _ *sql.Tx, p *model.Pass) error {
	if _, ok := f.passes[p.ID]; !ok {
		return repository.ErrNotFound
	}
	f.passes[p.ID] = *p
	return nil
}

func (f *fakePasses) SetStatusTx(_ context.Context, _ *sql.Tx, id uint64, status model.PassStatus) error {
	p := f.passes[id]
	p.ProcessingStatus = status
	f.passes[id] = p
	return nil
}

func (f *fakePasses) MarkPurchaseEmailSent(_ context.Context, id uint64) error {
	p := f.passes[id]
	p.PurchaseEmailSent = true
	f.passes[id] = p
	f.emailed = append(f.emailed, id)
	return nil
}

func (f *fakePasses) SetDocumentKey(_ context.Context, id uint64, key string) error {
	p := f.passes[id]
	p.DocumentKey = &key
	f.passes[id] = p
	f.docKeys[id] = key
	return nil
}

func (f *fakePasses) CreateCancellationTx(_ context.Context, _ *sql.Tx, c *model.PassCancellation) error {
	p := f.passes[c.PassID]
	if p.Cancellation != nil {
		return errDuplicate
	}
	p.Cancellation = c
	f.passes[c.PassID] = p
	return nil
}

func (f *fakePasses) DeleteCancellationTx(_ context.Context, _ *sql.Tx, passID uint64) error {
	p := f.passes[passID]
	if p.Cancellation == nil {
		return repository.ErrNotFound
	}
	p.Cancellation = nil
	f.passes[passID] = p
	return nil
}

func (f *fakePasses) AttachConcessionTx(_ context.Context, _ *sql.Tx, u *model.ConcessionUsage) error {
	u.ID = u.PassID
	return nil
}

func (f *fakePasses) AttachDiscountCodeTx(_ context.Context, _ *sql.Tx, u *model.DiscountCodeUsage) error {
	u.ID = u.PassID
	return nil
}

type fakeConcessions struct{ items map[uint64]model.Concession }

func (f *fakeConcessions) List(context.Context) ([]model.Concession, error) { return nil, nil }

func (f *fakeConcessions) GetByIDTx(_ context.Context, _ *sql.Tx, id uint64) (model.Concession, error) {
	c, ok := f.items[id]
	if !ok {
		return c, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeConcessions) Create(context.Context, *model.Concession) error { return nil }

type fakeCodes struct{ items map[string]model.DiscountCode }

func (f *fakeCodes) List(context.Context) ([]model.DiscountCode, error) { return nil, nil }

func (f *fakeCodes) GetByCodeTx(_ context.Context, _ *sql.Tx, code string) (model.DiscountCode, error) {
	d, ok := f.items[code]
	if !ok {
		return d, repository.ErrNotFound
	}
	return d, nil
}

func (f *fakeCodes) Create(context.Context, *model.DiscountCode) error { return nil }

// vouchers

// fakeVouchers returns insertErrs from successive InsertTx calls before
// inserts start succeeding.
type fakeVouchers struct {
	vouchers   map[uint64]model.Voucher
	nextID     uint64
	insertErrs []error
	statuses   map[uint64]model.VoucherStatus
}

func newFakeVouchers(vs ...model.Voucher) *fakeVouchers {
	f := &fakeVouchers{vouchers: map[uint64]model.Voucher{}, nextID: 1, statuses: map[uint64]model.VoucherStatus{}}
	for _, v := range vs {
		f.vouchers[v.ID] = v
		if v.ID >= f.nextID {
			f.nextID = v.ID + 1
		}
	}
	return f
}

func (f *fakeVouchers) InsertTx(_ context.Context, _ *sql.Tx, v *model.Voucher) error {
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		return err
	}
	v.ID = f.nextID
	f.nextID++
	f.vouchers[v.ID] = *v
	return nil
}

func (f *fakeVouchers) SetVoucherNumberTx(_ context.Context, _ *sql.Tx, id uint64, number string) error {
	v := f.vouchers[id]
	v.VoucherNumber = &number
	f.vouchers[id] = v
	return nil
}

func (f *fakeVouchers) CodeExists(_ context.Context, code string) (bool, error) {
	for _, v := range f.vouchers {
		if v.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeVouchers) GetByIDTx(_ context.Context, _ *sql.Tx, id uint64) (model.Voucher, error) {
	v, ok := f.vouchers[id]
	if !ok {
		return v, repository.ErrNotFound
	}
	return v, nil
}

func (f *fakeVouchers) GetByCodeTx(_ context.Context, _ *sql.Tx, code string) (model.Voucher, error) {
	for _, v := range f.vouchers {
		if v.Code == code {
			return v, nil
		}
	}
	return model.Voucher{}, repository.ErrNotFound
}

func (f *fakeVouchers) FindRedeemable(_ context.Context, email, code, pin string) (model.Voucher, error) {
	for _, v := range f.vouchers {
		if v.RecipientEmail == email && v.Code == code && v.Pin == pin &&
			!v.InCart && v.ProcessingStatus == model.VoucherStatusDelivered {
			return v, nil
		}
	}
	return model.Voucher{}, repository.ErrNotFound
}

func (f *fakeVouchers) List(_ context.Context, flt repository.VoucherFilter) ([]model.Voucher, error) {
	var out []model.Voucher
	for _, v := range f.vouchers {
		if flt.PurchaserID != nil && (v.PurchaserID == nil || *v.PurchaserID != *flt.PurchaserID) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeVouchers) ListDueForEmail(_ context.Context, d time.Time) ([]model.Voucher, error) {
	var out []model.Voucher
	for _, v := range f.vouchers {
		if !v.InCart && v.ProcessingStatus != model.VoucherStatusDelivered &&
			model.DateOf(v.DatetimeToEmail).Equal(model.DateOf(d)) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeVouchers) UpdateTx(_ context.Context, _ *sql.Tx, v *model.Voucher) error {
	f.vouchers[v.ID] = *v
	return nil
}

func (f *fakeVouchers) SetStatus(_ context.Context, id uint64, status model.VoucherStatus) error {
	v := f.vouchers[id]
	v.ProcessingStatus = status
	f.vouchers[id] = v
	f.statuses[id] = status
	return nil
}

type fakeVoucherTxns struct {
	txns []model.VoucherTransaction
}

func (f *fakeVoucherTxns) ListByVoucherTx(_ context.Context, _ *sql.Tx, voucherID uint64) ([]model.VoucherTransaction, error) {
	var out []model.VoucherTransaction
	for _, t := range f.txns {
		if t.VoucherID == voucherID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeVoucherTxns) List(ctx context.Context, voucherID *uint64) ([]model.VoucherTransaction, error) {
	if voucherID == nil {
		return f.txns, nil
	}
	return f.ListByVoucherTx(ctx, nil, *voucherID)
}

func (f *fakeVoucherTxns) InsertTx(_ context.Context, _ *sql.Tx, t *model.VoucherTransaction) error {
	t.ID = uint64(len(f.txns) + 1)
	f.txns = append(f.txns, *t)
	return nil
}

// retailers, reports and users

type fakeGroups struct{ groups []model.RetailerGroup }

func (f *fakeGroups) List(context.Context) ([]model.RetailerGroup, error) { return f.groups, nil }

func (f *fakeGroups) ListInvoiceable(_ context.Context, exclude string) ([]model.RetailerGroup, error) {
	var out []model.RetailerGroup
	for _, g := range f.groups {
		if g.Active && g.Name != exclude {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGroups) GetByName(_ context.Context, name string) (model.RetailerGroup, error) {
	for _, g := range f.groups {
		if g.Name == name {
			return g, nil
		}
	}
	return model.RetailerGroup{}, repository.ErrNotFound
}

func (f *fakeGroups) Create(_ context.Context, g *model.RetailerGroup) error {
	g.ID = uint64(len(f.groups) + 1)
	f.groups = append(f.groups, *g)
	return nil
}

type fakeReports struct{ reports []model.Report }

func (f *fakeReports) Upsert(_ context.Context, r *model.Report) error {
	for i, old := range f.reports {
		if old.RetailerGroupID == r.RetailerGroupID && old.PeriodYear == r.PeriodYear && old.PeriodMonth == r.PeriodMonth {
			r.ID = old.ID
			f.reports[i] = *r
			return nil
		}
	}
	r.ID = uint64(len(f.reports) + 1)
	f.reports = append(f.reports, *r)
	return nil
}

func (f *fakeReports) List(context.Context, *uint64) ([]model.Report, error) { return f.reports, nil }

type fakeTemplates struct{ templates []model.PassTemplate }

func (f *fakeTemplates) Latest(context.Context) (model.PassTemplate, error) {
	if len(f.templates) == 0 {
		return model.PassTemplate{}, repository.ErrNotFound
	}
	return f.templates[len(f.templates)-1], nil
}

func (f *fakeTemplates) List(context.Context) ([]model.PassTemplate, error) { return f.templates, nil }

func (f *fakeTemplates) Create(_ context.Context, t *model.PassTemplate) error {
	t.ID = uint64(len(f.templates) + 1)
	t.Version = len(f.templates) + 1
	f.templates = append(f.templates, *t)
	return nil
}

type fakeUsers map[uint64]model.User

func (f fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f[id]
	if !ok {
		return u, repository.ErrNotFound
	}
	return u, nil
}

type memStore struct{ objects map[string][]byte }

func (m *memStore) Put(_ context.Context, key, _ string, body []byte) error {
	m.objects[key] = body
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	b, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return b, nil
}

// fakeNotifier records the emails it was asked to send.  Kinds listed in
// fail return an error.
type fakeNotifier struct {
	sent []string
	fail map[string]bool
}

func (f *fakeNotifier) record(kind string) error {
	if f.fail[kind] {
		return errors.New(kind + " failed")
	}
	f.sent = append(f.sent, kind)
	return nil
}

func (f *fakeNotifier) PassPurchased(_ context.Context, p *model.Pass, _ string) error {
	return f.record(fmt.Sprintf("purchased:%d", p.ID))
}

func (f *fakeNotifier) PassUpdated(_ context.Context, p *model.Pass, _ string) error {
	return f.record(fmt.Sprintf("updated:%d", p.ID))
}

func (f *fakeNotifier) PassAutoRenew(_ context.Context, p *model.Pass) error {
	return f.record(fmt.Sprintf("autorenew:%d", p.ID))
}

func (f *fakeNotifier) PassExpiry(_ context.Context, p *model.Pass) error {
	return f.record(fmt.Sprintf("expiry:%d", p.ID))
}

func (f *fakeNotifier) PassExpired(_ context.Context, p *model.Pass) error {
	return f.record(fmt.Sprintf("expired:%d", p.ID))
}

func (f *fakeNotifier) VoucherRecipient(_ context.Context, v *model.Voucher) error {
	return f.record(fmt.Sprintf("recipient:%d", v.ID))
}

func (f *fakeNotifier) VoucherPurchaser(_ context.Context, v *model.Voucher, email string) error {
	return f.record(fmt.Sprintf("purchaser:%d:%s", v.ID, email))
}

func (f *fakeNotifier) VoucherReceipt(_ context.Context, v *model.Voucher, email string) error {
	return f.record(fmt.Sprintf("receipt:%d:%s", v.ID, email))
}
