package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/park-passes/internal/config"
	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/pricing"
	"github.com/iliyamo/park-passes/internal/repository"
)

var (
	ErrOptionDurationInvalid = &model.ValidationError{Msg: "the option duration must be a positive number of days"}
	ErrOptionPriceInvalid    = &model.ValidationError{Msg: "the option price must not be negative"}
)

// CatalogueService manages pass types, pricing windows and their options,
// and answers which options are on sale right now.
type CatalogueService struct {
	PassTypes PassTypeStore
	Windows   WindowStore
	Options   OptionStore
	Tx        Transactor
	Cache     CachePurger
	Settings  config.Settings
	Now       func() time.Time
}

func (s *CatalogueService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return utcNow()
}

func (s *CatalogueService) purge(ctx context.Context) {
	if s.Cache != nil {
		s.Cache.Purge(ctx)
	}
}

func visibilityFor(a Actor) repository.PassTypeVisibility {
	switch {
	case a.IsStaff():
		return repository.VisibleToAll
	case a.Role == model.RoleRetailer:
		return repository.VisibleToRetailers
	}
	return repository.VisibleExternally
}

func canSee(a Actor, t model.PassType) bool {
	switch visibilityFor(a) {
	case repository.VisibleToRetailers:
		return t.DisplayRetailer
	case repository.VisibleExternally:
		return t.DisplayExternally
	}
	return true
}

// ListPassTypes returns the pass types visible to a.
func (s *CatalogueService) ListPassTypes(ctx context.Context, a Actor) ([]model.PassType, error) {
	return s.PassTypes.List(ctx, visibilityFor(a))
}

// GetPassType returns one pass type; a hidden one is reported as not found.
func (s *CatalogueService) GetPassType(ctx context.Context, a Actor, id uint64) (model.PassType, error) {
	t, err := s.PassTypes.GetByID(ctx, id)
	if err != nil {
		return t, err
	}
	if !canSee(a, t) {
		return model.PassType{}, repository.ErrNotFound
	}
	return t, nil
}

func (s *CatalogueService) CreatePassType(ctx context.Context, t *model.PassType) error {
	if err := s.PassTypes.Create(ctx, t); err != nil {
		return err
	}
	s.purge(ctx)
	return nil
}

func (s *CatalogueService) UpdatePassType(ctx context.Context, t *model.PassType) error {
	if err := s.PassTypes.Update(ctx, t); err != nil {
		return err
	}
	s.purge(ctx)
	return nil
}

// resolve picks the window of a pass type in force at the current time.
// Integrity failures are logged at critical severity and returned.
func (s *CatalogueService) resolve(windows []model.PricingWindow, passTypeID uint64) (pricing.Resolution, error) {
	res, err := pricing.ResolveCurrentWindow(windows, s.now())
	if err != nil {
		logIntegrity(err, log.Fields{"pass_type_id": passTypeID})
		return res, err
	}
	if res.Candidates > 1 {
		log.WithFields(log.Fields{"pass_type_id": passTypeID, "window_id": res.Window.ID, "candidates": res.Candidates}).
			Warn("more than one pricing window is currently valid; using the latest to start")
	}
	if len(res.Mismatched) > 0 {
		log.WithFields(log.Fields{"pass_type_id": passTypeID, "window_ids": res.Mismatched}).
			Warn("ignoring pricing windows whose options differ from the default window")
	}
	return res, nil
}

// CurrentOptions returns the options on sale for a pass type, cheapest
// first.
func (s *CatalogueService) CurrentOptions(ctx context.Context, a Actor, passTypeID uint64) ([]model.PricingOption, error) {
	if _, err := s.GetPassType(ctx, a, passTypeID); err != nil {
		return nil, err
	}
	windows, err := s.Windows.List(ctx, &passTypeID)
	if err != nil {
		return nil, err
	}
	res, err := s.resolve(windows, passTypeID)
	if err != nil {
		return nil, err
	}
	return pricing.SortedOptions(res.Window.Options), nil
}

// currentOptionTx checks, inside tx, that optionID belongs to the window
// currently in force for its pass type and returns it.
func (s *CatalogueService) currentOptionTx(ctx context.Context, tx *sql.Tx, optionID uint64) (model.PricingOption, model.PricingWindow, error) {
	opt, err := s.Options.GetByIDTx(ctx, tx, optionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return opt, model.PricingWindow{}, ErrOptionNotOnSale
		}
		return opt, model.PricingWindow{}, err
	}
	w, err := s.Windows.GetByID(ctx, opt.PricingWindowID)
	if err != nil {
		return opt, w, err
	}
	windows, err := s.Windows.List(ctx, &w.PassTypeID)
	if err != nil {
		return opt, w, err
	}
	res, err := s.resolve(windows, w.PassTypeID)
	if err != nil {
		return opt, w, err
	}
	if res.Window.ID != opt.PricingWindowID {
		return opt, w, ErrOptionNotOnSale
	}
	return opt, w, nil
}

// WindowView is a pricing window with its status.
type WindowView struct {
	model.PricingWindow
	Status string `json:"status"`
}

// ListWindows returns windows, optionally of one pass type.
func (s *CatalogueService) ListWindows(ctx context.Context, passTypeID *uint64) ([]WindowView, error) {
	ws, err := s.Windows.List(ctx, passTypeID)
	if err != nil {
		return nil, err
	}
	today := s.now()
	out := make([]WindowView, 0, len(ws))
	for _, w := range ws {
		out = append(out, WindowView{PricingWindow: w, Status: pricing.WindowStatus(w, today)})
	}
	return out, nil
}

func (s *CatalogueService) GetWindow(ctx context.Context, id uint64) (WindowView, error) {
	w, err := s.Windows.GetByID(ctx, id)
	if err != nil {
		return WindowView{}, err
	}
	return WindowView{PricingWindow: w, Status: pricing.WindowStatus(w, s.now())}, nil
}

// CreateWindow validates w against the other windows of its pass type and
// stores it with its options.  The sibling rows are locked for the
// duration of the check; a concurrent second default window still trips
// the unique default key and is rejected the same way.
func (s *CatalogueService) CreateWindow(ctx context.Context, w *model.PricingWindow) error {
	if _, err := s.PassTypes.GetByID(ctx, w.PassTypeID); err != nil {
		return err
	}
	if w.IsDefault() && w.Name == "" {
		w.Name = s.Settings.DefaultWindowName
	}
	for _, o := range w.Options {
		if err := validateOption(o); err != nil {
			return err
		}
	}
	err := s.Tx.WithinTx(ctx, func(tx *sql.Tx) error {
		siblings, err := s.Windows.ListByPassTypeTx(ctx, tx, w.PassTypeID)
		if err != nil {
			return err
		}
		if err := pricing.ValidateWindow(*w, siblings, s.now()); err != nil {
			return err
		}
		if !w.IsDefault() {
			for _, sib := range siblings {
				if sib.IsDefault() && !pricing.IsValidVariant(*w, sib, s.Settings.DefaultWindowName) {
					log.WithFields(log.Fields{"pass_type_id": w.PassTypeID, "window": w.Name}).
						Warn("pricing window options differ from the default window; it will not be used until they match")
				}
			}
		}
		if err := s.Windows.CreateTx(ctx, tx, w); err != nil {
			if repository.IsDuplicateKey(err) && w.IsDefault() {
				return pricing.ErrDuplicateDefaultWindow
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.purge(ctx)
	return nil
}

// DeleteWindow removes a window and its options.  It is refused while
// passes reference any of the options.
func (s *CatalogueService) DeleteWindow(ctx context.Context, id uint64) error {
	if err := s.Windows.Delete(ctx, id); err != nil {
		return err
	}
	s.purge(ctx)
	return nil
}

func validateOption(o model.PricingOption) error {
	if o.Duration <= 0 {
		return ErrOptionDurationInvalid
	}
	if o.Price.IsNegative() {
		return ErrOptionPriceInvalid
	}
	return nil
}

func (s *CatalogueService) ListOptions(ctx context.Context, windowID *uint64) ([]model.PricingOption, error) {
	return s.Options.List(ctx, windowID)
}

// CreateOption adds an option to an existing window.
func (s *CatalogueService) CreateOption(ctx context.Context, o *model.PricingOption) error {
	if err := validateOption(*o); err != nil {
		return err
	}
	if _, err := s.Windows.GetByID(ctx, o.PricingWindowID); err != nil {
		return err
	}
	o.Price = o.Price.Round(2)
	if err := s.Options.Create(ctx, o); err != nil {
		return err
	}
	s.purge(ctx)
	return nil
}

// DeleteOption removes an option; options bought by a pass are protected.
func (s *CatalogueService) DeleteOption(ctx context.Context, id uint64) error {
	if err := s.Options.Delete(ctx, id); err != nil {
		return err
	}
	s.purge(ctx)
	return nil
}
