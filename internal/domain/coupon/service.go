package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Quote is the outcome of pricing a coupon against a subtotal.
type Quote struct {
	Coupon         *Coupon
	Subtotal       int64
	DiscountAmount int64
	FinalTotal     int64
}

// Service exposes the two coupon operations the storefront calls directly:
// a read-only check and a transactional redemption.
type Service struct {
	validator *Validator
	ledger    Ledger
	now       func() time.Time
}

// NewService creates a coupon Service backed by the given repository and
// ledger.
func NewService(coupons Repository, ledger Ledger) *Service {
	return &Service{
		validator: NewValidator(coupons, ledger),
		ledger:    ledger,
		now:       time.Now,
	}
}

// Check previews what the coupon would grant on the given subtotal. It is
// advisory: no usage slot is reserved, and calling it any number of times
// leaves the ledger untouched.
func (s *Service) Check(ctx context.Context, code string, subtotal int64, userID string) (*Quote, error) {
	return s.quote(ctx, code, subtotal, userID, s.now())
}

func (s *Service) quote(ctx context.Context, code string, subtotal int64, userID string, now time.Time) (*Quote, error) {
	c, err := s.validator.Validate(ctx, code, subtotal, userID, now)
	if err != nil {
		return nil, err
	}

	discount := Compute(c.Discount, subtotal)
	return &Quote{
		Coupon:         c,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		FinalTotal:     subtotal - discount,
	}, nil
}

// Redeem validates the coupon against fresh state and appends a usage
// record, consuming one slot. A ledger conflict is retried exactly once
// with re-validation; a second conflict is reported as the usage limit
// being reached, since that is what sustained contention on the coupon row
// means in practice.
func (s *Service) Redeem(ctx context.Context, code string, subtotal int64, userID string) (*Quote, *Usage, error) {
	for attempt := 0; ; attempt++ {
		now := s.now()

		q, err := s.quote(ctx, code, subtotal, userID, now)
		if err != nil {
			return nil, nil, err
		}

		u := &Usage{
			ID:             uuid.New(),
			CouponID:       q.Coupon.ID,
			UserID:         userID,
			DiscountAmount: q.DiscountAmount,
			OrderTotal:     q.FinalTotal,
			UsedAt:         now,
		}

		switch err := s.ledger.Append(ctx, q.Coupon, u); {
		case err == nil:
			return q, u, nil
		case errors.Is(err, ErrConflict) && attempt == 0:
			continue
		case errors.Is(err, ErrConflict):
			return nil, nil, ErrGlobalLimit
		default:
			return nil, nil, err
		}
	}
}
