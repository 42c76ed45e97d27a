package product

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// EffectiveUnitPrice returns the amount payable for one unit of p at the
// given instant. The product's own discount and an active flash-sale
// discount stack multiplicatively, so the aggregate discount stays below
// 100% even when both are large:
//
//	base × (1 − productPct/100) × (1 − salePct/100)
//
// The result is rounded half-up to the smallest currency unit. A product
// with no discounts prices at its base price unchanged.
func EffectiveUnitPrice(p Product, now time.Time) int64 {
	price := decimal.NewFromInt(p.BasePrice)

	if p.DiscountPct.IsPositive() {
		price = price.Mul(hundred.Sub(p.DiscountPct)).Div(hundred)
	}
	if s := p.FlashSale; s != nil && s.ActiveAt(now) && s.DiscountPct.IsPositive() {
		price = price.Mul(hundred.Sub(s.DiscountPct)).Div(hundred)
	}

	return price.Round(0).IntPart()
}
