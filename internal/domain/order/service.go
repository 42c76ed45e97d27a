package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/storeops/pricing-engine/internal/domain/coupon"
	"github.com/storeops/pricing-engine/internal/domain/product"
)

// LineRequest is one requested cart line.
type LineRequest struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID     string
	Lines      []LineRequest
	CouponCode string
	Shipping   Shipping
}

// Service aggregates line totals into a final payable amount and persists
// the result. Prices are always evaluated at checkout time from current
// catalog state; a coupon pre-check is never trusted across a checkout
// attempt.
type Service struct {
	products product.Repository
	coupons  *coupon.Validator
	orders   Repository
	now      func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(products product.Repository, coupons *coupon.Validator, orders Repository) *Service {
	return &Service{
		products: products,
		coupons:  coupons,
		orders:   orders,
		now:      time.Now,
	}
}

// PriceCart resolves effective unit prices for the given lines and returns
// their subtotal. Used by the coupon apply endpoint when the client sends
// cart contents instead of a precomputed total.
func (s *Service) PriceCart(ctx context.Context, lines []LineRequest) (int64, error) {
	if len(lines) == 0 {
		return 0, ErrEmptyLines
	}

	byID, err := s.fetchProducts(ctx, lines)
	if err != nil {
		return 0, err
	}

	_, subtotal := priceLines(lines, byID, s.now())
	return subtotal, nil
}

// PlaceOrder prices every line from current product and flash-sale state,
// re-validates any coupon against the fresh subtotal, and persists order,
// lines, and usage record as one unit. A commit conflict on the coupon is
// retried once with everything re-evaluated; a second conflict surfaces as
// the usage limit being reached.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}

	byID, err := s.fetchProducts(ctx, req.Lines)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		now := s.now()
		lines, subtotal := priceLines(req.Lines, byID, now)

		var (
			c        *coupon.Coupon
			u        *coupon.Usage
			discount int64
		)
		if req.CouponCode != "" {
			c, err = s.coupons.Validate(ctx, req.CouponCode, subtotal, req.UserID, now)
			if err != nil {
				return nil, err
			}
			discount = coupon.Compute(c.Discount, subtotal)
		}

		total := subtotal - discount
		if total < 0 {
			total = 0
		}

		o := &Order{
			ID:             uuid.New(),
			UserID:         req.UserID,
			Lines:          lines,
			Subtotal:       subtotal,
			CouponCode:     req.CouponCode,
			CouponDiscount: discount,
			Total:          total,
			Shipping:       req.Shipping,
			CreatedAt:      now,
		}
		if c != nil {
			u = &coupon.Usage{
				ID:             uuid.New(),
				CouponID:       c.ID,
				UserID:         req.UserID,
				OrderID:        uuid.NullUUID{UUID: o.ID, Valid: true},
				DiscountAmount: discount,
				OrderTotal:     total,
				UsedAt:         now,
			}
		}

		switch err := s.orders.Create(ctx, o, c, u); {
		case err == nil:
			return o, nil
		case errors.Is(err, coupon.ErrConflict) && attempt == 0:
			continue
		case errors.Is(err, coupon.ErrConflict):
			return nil, coupon.ErrGlobalLimit
		case errors.Is(err, coupon.ErrGlobalLimit),
			errors.Is(err, coupon.ErrPerUserLimit):
			return nil, err
		default:
			return nil, errors.Wrap(err, "create order")
		}
	}
}

// fetchProducts batch-loads every referenced product and verifies quantities.
func (s *Service) fetchProducts(ctx context.Context, lines []LineRequest) (map[uuid.UUID]product.Product, error) {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		if l.Quantity < 1 {
			return nil, &InvalidQuantityError{ProductID: l.ProductID}
		}
		ids[i] = l.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	byID := make(map[uuid.UUID]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}
	for _, l := range lines {
		if _, ok := byID[l.ProductID]; !ok {
			return nil, &ProductNotFoundError{ProductID: l.ProductID}
		}
	}
	return byID, nil
}

func priceLines(reqs []LineRequest, byID map[uuid.UUID]product.Product, now time.Time) ([]Line, int64) {
	lines := make([]Line, len(reqs))
	var subtotal int64
	for i, l := range reqs {
		unit := product.EffectiveUnitPrice(byID[l.ProductID], now)
		lineTotal := unit * int64(l.Quantity)
		lines[i] = Line{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: unit,
			LineTotal: lineTotal,
		}
		subtotal += lineTotal
	}
	return lines, subtotal
}
