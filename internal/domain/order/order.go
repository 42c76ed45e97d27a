package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/storeops/pricing-engine/internal/domain/coupon"
)

// ErrEmptyLines is returned when an order is placed with no line items.
var ErrEmptyLines = errors.New("order lines required")

// InvalidQuantityError indicates a line item with a quantity below 1.
type InvalidQuantityError struct {
	ProductID uuid.UUID
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for product %s", e.ProductID)
}

// ProductNotFoundError indicates a referenced product no longer exists.
type ProductNotFoundError struct {
	ProductID uuid.UUID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// Line is one priced order line. UnitPrice snapshots the effective unit
// price at checkout time.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice int64
	LineTotal int64
}

// Shipping carries the delivery fields the storefront collects. The engine
// stores them opaquely alongside the order.
type Shipping struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// Order is a completed checkout. Its financial fields are immutable once
// created.
type Order struct {
	ID             uuid.UUID
	UserID         string
	Lines          []Line
	Subtotal       int64
	CouponCode     string
	CouponDiscount int64
	Total          int64
	Shipping       Shipping
	CreatedAt      time.Time
}

// Repository persists orders. Create must write the order, its lines, and
// the usage record (when u is non-nil) in a single transaction, re-checking
// the coupon's limits under a row lock; on any failure nothing is written.
// It returns coupon.ErrGlobalLimit, coupon.ErrPerUserLimit, or
// coupon.ErrConflict when the redemption loses to a concurrent one.
type Repository interface {
	Create(ctx context.Context, o *Order, c *coupon.Coupon, u *coupon.Usage) error
}
