package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// FlashSale is a time-boxed percentage discount a product may reference.
type FlashSale struct {
	ID          uuid.UUID
	Name        string
	DiscountPct decimal.Decimal
	StartsAt    time.Time
	EndsAt      time.Time
}

// ActiveAt reports whether the sale window contains the given instant.
// Both bounds are inclusive.
func (s FlashSale) ActiveAt(now time.Time) bool {
	return !now.Before(s.StartsAt) && !now.After(s.EndsAt)
}

// Product is a catalog snapshot as seen by the pricing engine. The engine
// only reads products; catalog management mutates them elsewhere.
type Product struct {
	ID          uuid.UUID
	Name        string
	BasePrice   int64 // smallest currency unit
	DiscountPct decimal.Decimal
	FlashSale   *FlashSale // nil when the product is not in a sale
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
}
