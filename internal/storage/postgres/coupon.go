package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/storeops/pricing-engine/internal/domain/coupon"
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by exact, case-sensitive code.
// Returns coupon.ErrNotFound when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, code, discount_type, value, minimum_purchase, maximum_discount,
		       usage_limit, usage_limit_per_user, starts_at, ends_at, is_active
		FROM coupons
		WHERE code = $1`, code)

	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find coupon by code %q", code)
	}
	return c, nil
}

// Insert stores a new coupon. Used by the seed and ingest CLIs; the serving
// path never creates coupons.
func (r *CouponRepository) Insert(ctx context.Context, c *coupon.Coupon) error {
	discountType, value, maxDiscount := encodeDiscount(c.Discount)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO coupons (id, code, discount_type, value, minimum_purchase, maximum_discount,
		                     usage_limit, usage_limit_per_user, starts_at, ends_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID.String(), c.Code, string(discountType), value,
		c.MinimumPurchase, maxDiscount,
		nullableLimit(c.UsageLimit), c.UsageLimitPerUser,
		c.StartsAt, c.EndsAt, c.Active,
	)
	if err != nil {
		return errors.Wrapf(err, "insert coupon %q", c.Code)
	}
	return nil
}

// BulkInsert copies a batch of coupons in one round trip.
func (r *CouponRepository) BulkInsert(ctx context.Context, coupons []*coupon.Coupon) (int64, error) {
	rows := make([][]any, len(coupons))
	for i, c := range coupons {
		discountType, value, maxDiscount := encodeDiscount(c.Discount)
		rows[i] = []any{
			c.ID.String(), c.Code, string(discountType), value,
			c.MinimumPurchase, maxDiscount,
			nullableLimit(c.UsageLimit), c.UsageLimitPerUser,
			c.StartsAt, c.EndsAt, c.Active,
		}
	}

	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"coupons"},
		[]string{
			"id", "code", "discount_type", "value", "minimum_purchase", "maximum_discount",
			"usage_limit", "usage_limit_per_user", "starts_at", "ends_at", "is_active",
		},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return n, errors.Wrap(err, "bulk insert coupons")
	}
	return n, nil
}

func scanCoupon(row pgx.Row) (*coupon.Coupon, error) {
	var (
		c coupon.Coupon

		discountType string
		value        decimal.Decimal
		maxDiscount  *int64
		usageLimit   *int32
	)

	err := row.Scan(
		&c.ID, &c.Code, &discountType, &value, &c.MinimumPurchase, &maxDiscount,
		&usageLimit, &c.UsageLimitPerUser, &c.StartsAt, &c.EndsAt, &c.Active,
	)
	if err != nil {
		return nil, err
	}

	c.Discount, err = decodeDiscount(discountType, value, maxDiscount)
	if err != nil {
		return nil, err
	}
	if usageLimit != nil {
		c.UsageLimit = int(*usageLimit)
	}
	return &c, nil
}

func decodeDiscount(discountType string, value decimal.Decimal, maxDiscount *int64) (coupon.Discount, error) {
	switch coupon.DiscountType(discountType) {
	case coupon.TypePercentage:
		p := coupon.Percentage{Value: value}
		if maxDiscount != nil {
			p.MaxDiscount = *maxDiscount
		}
		return p, nil
	case coupon.TypeFixed:
		return coupon.Fixed{Value: value.IntPart()}, nil
	default:
		return nil, errors.Errorf("unsupported discount type %q", discountType)
	}
}

func encodeDiscount(d coupon.Discount) (coupon.DiscountType, decimal.Decimal, *int64) {
	switch d := d.(type) {
	case coupon.Percentage:
		var maxDiscount *int64
		if d.MaxDiscount > 0 {
			maxDiscount = &d.MaxDiscount
		}
		return coupon.TypePercentage, d.Value, maxDiscount
	case coupon.Fixed:
		return coupon.TypeFixed, decimal.NewFromInt(d.Value), nil
	default:
		// The Discount interface is sealed; this is unreachable.
		panic(errors.Errorf("unsupported discount %T", d))
	}
}

func nullableLimit(limit int) *int32 {
	if limit <= 0 {
		return nil
	}
	v := int32(limit)
	return &v
}
