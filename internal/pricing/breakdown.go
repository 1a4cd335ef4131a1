package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/park-passes/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Breakdown lists every stage of the discount stack applied to a pass.
// Stages apply in a fixed order: concession, then discount code, then
// voucher.  A missing relation leaves the running price unchanged.
type Breakdown struct {
	Base              decimal.Decimal `json:"price"`
	AfterConcession   decimal.Decimal `json:"price_after_concession_applied"`
	AfterDiscountCode decimal.Decimal `json:"price_after_discount_code_applied"`
	AfterVoucher      decimal.Decimal `json:"price_after_voucher_applied"`
	Final             decimal.Decimal `json:"price_including_gst"`
	GST               decimal.Decimal `json:"gst"`
}

// PriceAfterConcession is the option price less the concession discount.
func PriceAfterConcession(p *model.Pass) decimal.Decimal {
	price := p.Price()
	if p.ConcessionUsage != nil {
		price = price.Sub(p.ConcessionUsage.Concession.DiscountAsAmount(price))
	}
	return price
}

// PriceAfterDiscountCode applies the discount code to the post-concession price.
func PriceAfterDiscountCode(p *model.Pass) decimal.Decimal {
	price := PriceAfterConcession(p)
	if p.DiscountCodeUsage != nil {
		price = price.Sub(p.DiscountCodeUsage.DiscountCode.DiscountAsAmount(price))
	}
	return price
}

// PriceAfterVoucher adds the signed balance of the voucher transaction
// attached to the pass.  A debit paying for the pass lowers the price.
func PriceAfterVoucher(p *model.Pass) decimal.Decimal {
	price := PriceAfterDiscountCode(p)
	if p.VoucherTransaction != nil {
		price = price.Add(p.VoucherTransaction.Balance())
	}
	return price
}

// FinalPrice is the payable price rounded half-up to cents.
func FinalPrice(p *model.Pass) decimal.Decimal {
	return PriceAfterVoucher(p).Round(2)
}

// GST extracts the goods and services tax contained in a GST-inclusive
// price: price − price × 100/(100+rate), rounded half to even to the cent.
func GST(price, rate decimal.Decimal) decimal.Decimal {
	exclusive := price.Mul(hundred).Div(hundred.Add(rate))
	return price.Sub(exclusive).RoundBank(2)
}

// Compute returns the full discount stack of a pass.
func Compute(p *model.Pass, gstRate decimal.Decimal) Breakdown {
	final := FinalPrice(p)
	return Breakdown{
		Base:              p.Price(),
		AfterConcession:   PriceAfterConcession(p),
		AfterDiscountCode: PriceAfterDiscountCode(p),
		AfterVoucher:      PriceAfterVoucher(p),
		Final:             final,
		GST:               GST(final, gstRate),
	}
}
