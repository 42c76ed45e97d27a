package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DiscountType names a discount variant on the wire and in storage.
type DiscountType string

const (
	// TypePercentage takes a percentage off the subtotal.
	TypePercentage DiscountType = "percentage"
	// TypeFixed takes a flat amount off the subtotal.
	TypeFixed DiscountType = "fixed"
)

// Discount is the discriminated discount variant of a coupon. Exactly two
// implementations exist, Percentage and Fixed; the unexported method keeps
// the set closed so a type switch over both is exhaustive.
type Discount interface {
	Type() DiscountType
	// amount returns the raw discount before the subtotal clamp.
	amount(subtotal int64) int64
}

// Percentage discounts the subtotal by Value percent, optionally capped.
type Percentage struct {
	Value       decimal.Decimal
	MaxDiscount int64 // 0 means uncapped
}

// Type reports TypePercentage.
func (p Percentage) Type() DiscountType { return TypePercentage }

func (p Percentage) amount(subtotal int64) int64 {
	raw := decimal.NewFromInt(subtotal).Mul(p.Value).Div(hundred).Round(0).IntPart()
	if p.MaxDiscount > 0 && raw > p.MaxDiscount {
		return p.MaxDiscount
	}
	return raw
}

// Fixed discounts the subtotal by a flat Value in the smallest currency unit.
type Fixed struct {
	Value int64
}

// Type reports TypeFixed.
func (f Fixed) Type() DiscountType { return TypeFixed }

func (f Fixed) amount(int64) int64 { return f.Value }

// Compute returns the discount d grants on subtotal, clamped to
// [0, subtotal] so a coupon can never push an order total negative.
func Compute(d Discount, subtotal int64) int64 {
	a := d.amount(subtotal)
	if a < 0 {
		return 0
	}
	if a > subtotal {
		return subtotal
	}
	return a
}
