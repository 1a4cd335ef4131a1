package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/park-passes/internal/config"
	"github.com/iliyamo/park-passes/internal/ledger"
	"github.com/iliyamo/park-passes/internal/lifecycle"
	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/pricing"
	"github.com/iliyamo/park-passes/internal/queue"
	"github.com/iliyamo/park-passes/internal/repository"
)

// PassService runs the pass use cases.  Every save recomputes the expiry
// and cached status; post-commit work is handed to the event publisher.
type PassService struct {
	Passes      PassStore
	Catalogue   *CatalogueService
	Concessions ConcessionStore
	Codes       DiscountCodeStore
	Vouchers    VoucherStore
	VoucherTxns VoucherTransactionStore
	Groups      RetailerGroupStore
	Tx          Transactor
	Events      EventPublisher
	Settings    config.Settings
	Now         func() time.Time
}

func (s *PassService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return utcNow()
}

// PassInput carries the holder details of a new or edited pass.
type PassInput struct {
	OptionID                     uint64
	FirstName                    string
	LastName                     string
	Email                        string
	Mobile                       string
	Company                      *string
	AddressLine1                 *string
	AddressLine2                 *string
	Suburb                       *string
	State                        *string
	Postcode                     *string
	RacMemberNumber              *string
	VehicleRegistration1         *string
	VehicleRegistration2         *string
	DriversLicenceNumber         *string
	DateStart                    time.Time
	RenewAutomatically           bool
	PreventFurtherVehicleUpdates bool
}

// PassUpdate carries the editable fields of an existing pass.  Nil fields
// are left untouched.
type PassUpdate struct {
	FirstName            *string
	LastName             *string
	Email                *string
	Mobile               *string
	Company              *string
	AddressLine1         *string
	AddressLine2         *string
	Suburb               *string
	State                *string
	Postcode             *string
	VehicleRegistration1 *string
	VehicleRegistration2 *string
	DateStart            *time.Time
	RenewAutomatically   *bool
}

// CheckoutInput lists the reductions applied when a pass leaves the cart.
type CheckoutInput struct {
	ConcessionID         *uint64
	ConcessionCardNumber string
	DiscountCode         string
	VoucherCode          string
	VoucherPin           string
}

// PassDetails is a pass with its priced breakdown and refund position.
type PassDetails struct {
	model.Pass
	StatusDisplay    string            `json:"status_display"`
	Prices           pricing.Breakdown `json:"prices"`
	RefundPercentage int               `json:"pro_rata_refund_percentage"`
	RefundAmount     decimal.Decimal   `json:"pro_rata_refund_amount"`
}

// Details prices a loaded pass.
func (s *PassService) Details(p model.Pass) PassDetails {
	now := s.now()
	status := lifecycle.Status(&p, now)
	return PassDetails{
		Pass:             p,
		StatusDisplay:    status.Display(),
		Prices:           pricing.Compute(&p, s.Settings.GSTRate),
		RefundPercentage: pricing.RefundPercentage(&p, now),
		RefundAmount:     pricing.RefundAmount(&p, now),
	}
}

// authorize reports whether a may read or change p.
func authorize(a Actor, p *model.Pass) error {
	switch {
	case a.IsStaff():
		return nil
	case a.IsRetailer():
		if p.SoldVia != nil && *p.SoldVia == *a.RetailerGroupID {
			return nil
		}
	case a.UserID != 0:
		if p.UserID != nil && *p.UserID == a.UserID {
			return nil
		}
	}
	return repository.ErrForbidden
}

// Get loads a pass visible to a.
func (s *PassService) Get(ctx context.Context, a Actor, id uint64) (PassDetails, error) {
	p, err := s.Passes.GetByID(ctx, id)
	if err != nil {
		return PassDetails{}, err
	}
	if err := authorize(a, &p); err != nil {
		return PassDetails{}, err
	}
	return s.Details(p), nil
}

// List returns the passes a may see: staff see everything, retailers the
// passes their group sold, customers their own.
func (s *PassService) List(ctx context.Context, a Actor, f repository.PassFilter) ([]PassDetails, error) {
	switch {
	case a.IsStaff():
	case a.IsRetailer():
		f.SoldVia = a.RetailerGroupID
	case a.UserID != 0:
		uid := a.UserID
		f.UserID = &uid
	default:
		return nil, repository.ErrForbidden
	}
	passes, err := s.Passes.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]PassDetails, 0, len(passes))
	for _, p := range passes {
		out = append(out, s.Details(p))
	}
	return out, nil
}

// soldVia is the retailer group recorded as seller: the retailer's own
// group, or the online sales group for everyone else.
func (s *PassService) soldVia(ctx context.Context, a Actor) (*uint64, error) {
	if a.IsRetailer() {
		id := *a.RetailerGroupID
		return &id, nil
	}
	if s.Groups == nil || s.Settings.DefaultSoldVia == "" {
		return nil, nil
	}
	g, err := s.Groups.GetByName(ctx, s.Settings.DefaultSoldVia)
	if errors.Is(err, repository.ErrNotFound) {
		log.WithField("group", s.Settings.DefaultSoldVia).Warn("default sold via retailer group does not exist")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g.ID, nil
}

// Create puts a new pass in the cart.  The option must be on sale now.
func (s *PassService) Create(ctx context.Context, a Actor, in PassInput) (PassDetails, error) {
	soldVia, err := s.soldVia(ctx, a)
	if err != nil {
		return PassDetails{}, err
	}
	p := model.Pass{
		OptionID:                     in.OptionID,
		FirstName:                    strings.TrimSpace(in.FirstName),
		LastName:                     strings.TrimSpace(in.LastName),
		Email:                        strings.ToLower(strings.TrimSpace(in.Email)),
		Mobile:                       in.Mobile,
		Company:                      in.Company,
		AddressLine1:                 in.AddressLine1,
		AddressLine2:                 in.AddressLine2,
		Suburb:                       in.Suburb,
		State:                        in.State,
		Postcode:                     in.Postcode,
		RacMemberNumber:              in.RacMemberNumber,
		VehicleRegistration1:         in.VehicleRegistration1,
		VehicleRegistration2:         in.VehicleRegistration2,
		DriversLicenceNumber:         in.DriversLicenceNumber,
		SoldVia:                      soldVia,
		DateStart:                    in.DateStart,
		RenewAutomatically:           in.RenewAutomatically,
		PreventFurtherVehicleUpdates: in.PreventFurtherVehicleUpdates,
		InCart:                       true,
	}
	if a.UserID != 0 && !a.IsRetailer() && !a.IsStaff() {
		uid := a.UserID
		p.UserID = &uid
	}

	err = s.Tx.WithinTx(ctx, func(tx *sql.Tx) error {
		opt, w, err := s.Catalogue.currentOptionTx(ctx, tx, in.OptionID)
		if err != nil {
			return err
		}
		p.Option, p.PricingWindow = &opt, &w
		if err := lifecycle.PrepareForSave(&p, s.now()); err != nil {
			return err
		}
		if err := s.Passes.InsertTx(ctx, tx, &p); err != nil {
			return err
		}
		number := lifecycle.PassNumber(p.ID)
		if err := s.Passes.SetPassNumberTx(ctx, tx, p.ID, number); err != nil {
			return err
		}
		p.PassNumber = &number
		return nil
	})
	if err != nil {
		return PassDetails{}, err
	}
	log.WithFields(log.Fields{"pass_id": p.ID, "pass_number": *p.PassNumber}).Info("pass created")
	return s.reload(ctx, p.ID)
}

func (s *PassService) reload(ctx context.Context, id uint64) (PassDetails, error) {
	p, err := s.Passes.GetByID(ctx, id)
	if err != nil {
		return PassDetails{}, err
	}
	return s.Details(p), nil
}

// saved runs the post-commit hook of a pass save.
func (s *PassService) saved(ctx context.Context, p *model.Pass) {
	if !lifecycle.ShouldNotify(p) || s.Events == nil {
		return
	}
	ev := queue.PassSavedEvent{PassID: p.ID, SavedAt: s.now()}
	if err := s.Events.PassSaved(ctx, ev); err != nil {
		log.WithError(err).WithField("pass_id", p.ID).Error("publish pass saved event failed")
	}
}

// mutate loads p under lock, applies fn, recomputes derived fields and
// writes the pass back.  The post-commit hook runs on success.
func (s *PassService) mutate(ctx context.Context, a Actor, id uint64, fn func(tx *sql.Tx, p *model.Pass) error) (PassDetails, error) {
	var p model.Pass
	err := s.Tx.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		if p, err = s.Passes.GetByIDTx(ctx, tx, id); err != nil {
			return err
		}
		if err := authorize(a, &p); err != nil {
			return err
		}
		if err := fn(tx, &p); err != nil {
			return err
		}
		if err := lifecycle.PrepareForSave(&p, s.now()); err != nil {
			return err
		}
		return s.Passes.UpdateTx(ctx, tx, &p)
	})
	if err != nil {
		logIntegrity(err, log.Fields{"pass_id": id})
		return PassDetails{}, err
	}
	s.saved(ctx, &p)
	return s.reload(ctx, id)
}

// Update edits the holder details of a pass.  The start date can only be
// moved while the pass is in the cart and vehicle details are frozen once
// the pass says so.
func (s *PassService) Update(ctx context.Context, a Actor, id uint64, u PassUpdate) (PassDetails, error) {
	return s.mutate(ctx, a, id, func(_ *sql.Tx, p *model.Pass) error {
		if p.Cancellation != nil {
			return ErrPassCancelled
		}
		if u.DateStart != nil && !model.DateOf(*u.DateStart).Equal(model.DateOf(p.DateStart)) {
			if !p.InCart {
				return lifecycle.ErrStartNotEditable
			}
			p.DateStart = *u.DateStart
		}
		if u.VehicleRegistration1 != nil || u.VehicleRegistration2 != nil {
			if p.PreventFurtherVehicleUpdates && !a.IsStaff() {
				return ErrVehicleUpdatesLocked
			}
			setIf(&p.VehicleRegistration1, u.VehicleRegistration1)
			setIf(&p.VehicleRegistration2, u.VehicleRegistration2)
		}
		if u.FirstName != nil {
			p.FirstName = strings.TrimSpace(*u.FirstName)
		}
		if u.LastName != nil {
			p.LastName = strings.TrimSpace(*u.LastName)
		}
		if u.Email != nil {
			p.Email = strings.ToLower(strings.TrimSpace(*u.Email))
		}
		if u.Mobile != nil {
			p.Mobile = *u.Mobile
		}
		setIf(&p.Company, u.Company)
		setIf(&p.AddressLine1, u.AddressLine1)
		setIf(&p.AddressLine2, u.AddressLine2)
		setIf(&p.Suburb, u.Suburb)
		setIf(&p.State, u.State)
		setIf(&p.Postcode, u.Postcode)
		if u.RenewAutomatically != nil {
			p.RenewAutomatically = *u.RenewAutomatically
		}
		return nil
	})
}

func setIf(dst **string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		*dst = nil
		return
	}
	s := *v
	*dst = &s
}

// Checkout applies the concession, discount code and voucher of in and
// takes the pass out of the cart.  The voucher debit is checked against
// the voucher ledger in the same transaction.
func (s *PassService) Checkout(ctx context.Context, a Actor, id uint64, in CheckoutInput) (PassDetails, error) {
	return s.mutate(ctx, a, id, func(tx *sql.Tx, p *model.Pass) error {
		if !p.InCart {
			return ErrPassNotInCart
		}
		if p.Cancellation != nil {
			return ErrPassCancelled
		}
		if err := s.applyConcession(ctx, tx, p, in); err != nil {
			return err
		}
		if err := s.applyDiscountCode(ctx, tx, p, in.DiscountCode); err != nil {
			return err
		}
		if err := s.applyVoucher(ctx, tx, p, in); err != nil {
			return err
		}
		p.InCart = false
		return nil
	})
}

func (s *PassService) applyConcession(ctx context.Context, tx *sql.Tx, p *model.Pass, in CheckoutInput) error {
	if in.ConcessionID == nil {
		return nil
	}
	card := strings.TrimSpace(in.ConcessionCardNumber)
	if card == "" {
		return ErrConcessionCardMissing
	}
	c, err := s.Concessions.GetByIDTx(ctx, tx, *in.ConcessionID)
	if err != nil {
		return err
	}
	u := model.ConcessionUsage{PassID: p.ID, ConcessionID: c.ID, ConcessionCardNo: card, Concession: c}
	if err := s.Passes.AttachConcessionTx(ctx, tx, &u); err != nil {
		return err
	}
	p.ConcessionUsage = &u
	return nil
}

func (s *PassService) applyDiscountCode(ctx context.Context, tx *sql.Tx, p *model.Pass, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	d, err := s.Codes.GetByCodeTx(ctx, tx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidDiscountCode
	}
	if err != nil {
		return err
	}
	if !d.IsRedeemableAt(s.now()) {
		return ErrInvalidDiscountCode
	}
	u := model.DiscountCodeUsage{PassID: p.ID, DiscountCodeID: d.ID, DiscountCode: d}
	if err := s.Passes.AttachDiscountCodeTx(ctx, tx, &u); err != nil {
		return err
	}
	p.DiscountCodeUsage = &u
	return nil
}

func (s *PassService) applyVoucher(ctx context.Context, tx *sql.Tx, p *model.Pass, in CheckoutInput) error {
	code := strings.TrimSpace(in.VoucherCode)
	if code == "" {
		return nil
	}
	v, err := s.Vouchers.GetByCodeTx(ctx, tx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidVoucher
	}
	if err != nil {
		return err
	}
	if v.Pin != strings.TrimSpace(in.VoucherPin) || v.InCart {
		return ErrInvalidVoucher
	}
	if v.HasExpired(s.now()) {
		return ErrVoucherExpired
	}
	txns, err := s.VoucherTxns.ListByVoucherTx(ctx, tx, v.ID)
	if err != nil {
		return err
	}
	remaining, err := ledger.RemainingBalance(v, txns)
	if err != nil {
		return err
	}
	debit := ledger.DebitFor(remaining, pricing.PriceAfterDiscountCode(p))
	if !debit.IsPositive() {
		return ErrVoucherEmpty
	}
	passID := p.ID
	t := model.VoucherTransaction{VoucherID: v.ID, PassID: &passID, Credit: decimal.Zero, Debit: debit}
	if _, err := ledger.CheckEntry(v, txns, t); err != nil {
		return err
	}
	if err := s.VoucherTxns.InsertTx(ctx, tx, &t); err != nil {
		return err
	}
	p.VoucherTransaction = &t
	return nil
}

// CancelRenewal switches off automatic renewal.
func (s *PassService) CancelRenewal(ctx context.Context, a Actor, id uint64) (PassDetails, error) {
	d, err := s.mutate(ctx, a, id, func(_ *sql.Tx, p *model.Pass) error {
		if err := lifecycle.CheckCancelRenewal(p, s.now()); err != nil {
			return err
		}
		p.RenewAutomatically = false
		return nil
	})
	if err == nil {
		log.WithField("pass_id", id).Info("automatic renewal cancelled")
	}
	return d, err
}

// Cancel attaches a cancellation and caches the cancelled status.
func (s *PassService) Cancel(ctx context.Context, id uint64, reason string) (PassDetails, error) {
	err := s.Tx.WithinTx(ctx, func(tx *sql.Tx) error {
		p, err := s.Passes.GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.Cancellation != nil {
			return ErrPassAlreadyCancelled
		}
		c := model.PassCancellation{PassID: id, CancellationReason: reason, DatetimeCancelled: s.now()}
		if err := s.Passes.CreateCancellationTx(ctx, tx, &c); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrPassAlreadyCancelled
			}
			return err
		}
		p.Cancellation = &c
		return s.Passes.SetStatusTx(ctx, tx, id, lifecycle.Status(&p, s.now()))
	})
	if err != nil {
		return PassDetails{}, err
	}
	log.WithField("pass_id", id).Info("pass cancelled")
	return s.reload(ctx, id)
}

// Uncancel deletes the cancellation, recomputes the status and treats the
// pass as saved again.
func (s *PassService) Uncancel(ctx context.Context, id uint64) (PassDetails, error) {
	var p model.Pass
	err := s.Tx.WithinTx(ctx, func(tx *sql.Tx) error {
		var err error
		if p, err = s.Passes.GetByIDTx(ctx, tx, id); err != nil {
			return err
		}
		if err := s.Passes.DeleteCancellationTx(ctx, tx, id); err != nil {
			return err
		}
		p.Cancellation = nil
		p.ProcessingStatus = lifecycle.Status(&p, s.now())
		return s.Passes.SetStatusTx(ctx, tx, id, p.ProcessingStatus)
	})
	if err != nil {
		return PassDetails{}, err
	}
	s.saved(ctx, &p)
	return s.reload(ctx, id)
}
