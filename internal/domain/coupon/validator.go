package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Validator decides whether a coupon is redeemable for a given subtotal and
// user at a given instant. It is read-only: usage counts come from the
// Ledger but no slot is reserved.
type Validator struct {
	coupons Repository
	ledger  Ledger
}

// NewValidator creates a Validator backed by the given repository and ledger.
func NewValidator(coupons Repository, ledger Ledger) *Validator {
	return &Validator{coupons: coupons, ledger: ledger}
}

// Validate looks up the coupon by exact code and runs every eligibility
// check. The check order only fixes which reason is surfaced when several
// fail at once. An empty userID skips nothing: per-user counts are keyed by
// the identifier as given.
func (v *Validator) Validate(ctx context.Context, code string, subtotal int64, userID string, now time.Time) (*Coupon, error) {
	if subtotal < 0 {
		return nil, ErrInvalidSubtotal
	}

	c, err := v.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !c.Active {
		return nil, ErrInactive
	}
	if now.Before(c.StartsAt) {
		return nil, ErrNotStarted
	}
	if now.After(c.EndsAt) {
		return nil, ErrExpired
	}
	if subtotal < c.MinimumPurchase {
		return nil, ErrBelowMinimum
	}

	if c.UsageLimit > 0 {
		n, err := v.ledger.GlobalCount(ctx, c.ID)
		if err != nil {
			return nil, errors.Wrap(err, "global usage count")
		}
		if n >= c.UsageLimit {
			return nil, ErrGlobalLimit
		}
	}
	if c.UsageLimitPerUser > 0 {
		n, err := v.ledger.UserCount(ctx, c.ID, userID)
		if err != nil {
			return nil, errors.Wrap(err, "user usage count")
		}
		if n >= c.UsageLimitPerUser {
			return nil, ErrPerUserLimit
		}
	}

	return c, nil
}
