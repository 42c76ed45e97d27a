package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Validation failure reasons. Every check in Validate surfaces exactly one
// of these; all checks must hold for a coupon to be usable.
var (
	// ErrNotFound is returned when no coupon carries the given code.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when the coupon has been switched off.
	ErrInactive = errors.New("coupon is inactive")
	// ErrNotStarted is returned before the validity window opens.
	ErrNotStarted = errors.New("coupon is not active yet")
	// ErrExpired is returned after the validity window closes.
	ErrExpired = errors.New("coupon expired")
	// ErrBelowMinimum is returned when the subtotal does not reach the
	// coupon's minimum purchase amount.
	ErrBelowMinimum = errors.New("subtotal below minimum purchase")
	// ErrGlobalLimit is returned when the coupon has been redeemed
	// usage_limit times across all users.
	ErrGlobalLimit = errors.New("coupon usage limit reached")
	// ErrPerUserLimit is returned when this user has exhausted their
	// personal redemption allowance.
	ErrPerUserLimit = errors.New("per-user coupon usage limit reached")
	// ErrInvalidSubtotal is returned for a negative candidate subtotal.
	ErrInvalidSubtotal = errors.New("subtotal must not be negative")

	// ErrConflict is returned by the ledger when a concurrent redemption
	// invalidated the state this one was computed from. Callers retry once
	// against fresh state before giving up.
	ErrConflict = errors.New("conflicting coupon redemption")
)

// Coupon is an admin-authored discount rule. The engine treats it as
// immutable; only the usage ledger grows.
type Coupon struct {
	ID              uuid.UUID
	Code            string // unique, matched case-sensitively
	Discount        Discount
	MinimumPurchase int64

	// UsageLimit caps redemptions across all users; 0 means unlimited.
	UsageLimit int
	// UsageLimitPerUser caps redemptions per user; 0 means unlimited.
	// Storage defaults new coupons to 1.
	UsageLimitPerUser int

	StartsAt time.Time
	EndsAt   time.Time
	Active   bool
}

// Usage is one successful redemption. Rows are append-only: the engine
// never updates or deletes them, and both usage counts derive from them.
type Usage struct {
	ID             uuid.UUID
	CouponID       uuid.UUID
	UserID         string
	OrderID        uuid.NullUUID // unset for a standalone apply
	DiscountAmount int64
	OrderTotal     int64
	UsedAt         time.Time
}

// Repository provides coupon lookup by code.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}

// Ledger is the single component that touches redemption state. The two
// reads feed the Validator; Append is the only write. Append must lock the
// coupon, re-check both limits under the lock, and insert the usage record
// in one transaction, so concurrent redemptions can never overshoot a
// limit. It returns ErrGlobalLimit, ErrPerUserLimit, or ErrConflict.
type Ledger interface {
	GlobalCount(ctx context.Context, couponID uuid.UUID) (int, error)
	UserCount(ctx context.Context, couponID uuid.UUID, userID string) (int, error)
	Append(ctx context.Context, c *Coupon, u *Usage) error
}
