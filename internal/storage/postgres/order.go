package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storeops/pricing-engine/internal/domain/coupon"
	"github.com/storeops/pricing-engine/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order, its lines, and the coupon usage record in a
// single transaction. The coupon row lock taken by the usage append is what
// serializes concurrent redemptions; everything commits or nothing does.
//
// The usage row references the order, so the order is inserted first even
// though the coupon re-check is the part that can fail.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, c *coupon.Coupon, u *coupon.Usage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := insertOrder(ctx, tx, o, c); err != nil {
		return err
	}

	if u != nil {
		if err := appendUsage(ctx, tx, c, u); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return translateCommitErr(errors.Wrap(err, "commit order"))
	}
	return nil
}

func insertOrder(ctx context.Context, tx pgx.Tx, o *order.Order, c *coupon.Coupon) error {
	shipping, err := json.Marshal(o.Shipping)
	if err != nil {
		return errors.Wrap(err, "marshal shipping")
	}

	var couponID *string
	if c != nil {
		s := c.ID.String()
		couponID = &s
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, subtotal, coupon_id, coupon_code, coupon_discount, total, shipping, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID.String(), o.UserID, o.Subtotal, couponID, o.CouponCode,
		o.CouponDiscount, o.Total, shipping, o.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}

	rows := make([][]any, len(o.Lines))
	for i, l := range o.Lines {
		rows[i] = []any{uuid.NewString(), o.ID.String(), l.ProductID.String(), l.Quantity, l.UnitPrice, l.LineTotal}
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"order_lines"},
		[]string{"id", "order_id", "product_id", "quantity", "unit_price", "line_total"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return errors.Wrap(err, "insert order lines")
	}
	return nil
}
