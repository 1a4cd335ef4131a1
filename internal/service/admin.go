package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/repository"
)

var (
	ErrPercentageRange   = &model.ValidationError{Msg: "the percentage must be between 0 and 100"}
	ErrDiscountKind      = &model.ValidationError{Msg: "a discount code takes either a percentage or an amount, not both"}
	ErrDiscountPeriod    = &model.ValidationError{Msg: "the discount code must start before it expires"}
	ErrDiscountAmountNeg = &model.ValidationError{Msg: "the discount amount must be positive"}
)

var hundred = decimal.NewFromInt(100)

// AdminService manages the reference data staff maintain by hand.
type AdminService struct {
	Concessions ConcessionStore
	Codes       DiscountCodeStore
	Groups      RetailerGroupStore
	Reports     ReportStore
}

func percentageOK(p decimal.Decimal) bool {
	return !p.IsNegative() && !p.GreaterThan(hundred)
}

func (s *AdminService) ListConcessions(ctx context.Context) ([]model.Concession, error) {
	return s.Concessions.List(ctx)
}

func (s *AdminService) CreateConcession(ctx context.Context, c *model.Concession) error {
	if !percentageOK(c.DiscountPercentage) {
		return ErrPercentageRange
	}
	c.ConcessionType = strings.TrimSpace(c.ConcessionType)
	return s.Concessions.Create(ctx, c)
}

func (s *AdminService) ListDiscountCodes(ctx context.Context) ([]model.DiscountCode, error) {
	return s.Codes.List(ctx)
}

// CreateDiscountCode stores a code that takes exactly one of a percentage
// or a fixed amount off.
func (s *AdminService) CreateDiscountCode(ctx context.Context, d *model.DiscountCode) error {
	if (d.DiscountPercentage == nil) == (d.DiscountAmount == nil) {
		return ErrDiscountKind
	}
	if d.DiscountPercentage != nil && !percentageOK(*d.DiscountPercentage) {
		return ErrPercentageRange
	}
	if d.DiscountAmount != nil && !d.DiscountAmount.IsPositive() {
		return ErrDiscountAmountNeg
	}
	if !d.DatetimeStart.Before(d.DatetimeExpiry) {
		return ErrDiscountPeriod
	}
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	if err := s.Codes.Create(ctx, d); err != nil {
		if repository.IsDuplicateKey(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *AdminService) ListRetailerGroups(ctx context.Context) ([]model.RetailerGroup, error) {
	return s.Groups.List(ctx)
}

func (s *AdminService) CreateRetailerGroup(ctx context.Context, g *model.RetailerGroup) error {
	if !percentageOK(g.CommissionPercentage) {
		return ErrPercentageRange
	}
	g.Name = strings.TrimSpace(g.Name)
	if err := s.Groups.Create(ctx, g); err != nil {
		if repository.IsDuplicateKey(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// ListReports returns the invoices staff may see, or a retailer's own.
func (s *AdminService) ListReports(ctx context.Context, a Actor) ([]model.Report, error) {
	switch {
	case a.IsStaff():
		return s.Reports.List(ctx, nil)
	case a.IsRetailer():
		return s.Reports.List(ctx, a.RetailerGroupID)
	}
	return nil, repository.ErrForbidden
}
