package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storeops/pricing-engine/internal/domain/coupon"
)

var _ coupon.Ledger = (*UsageLedger)(nil)

// UsageLedger implements coupon.Ledger backed by the append-only
// coupon_usages table. Counts are derived, never stored.
type UsageLedger struct {
	pool *pgxpool.Pool
}

// NewUsageLedger returns a UsageLedger that uses the given pool.
func NewUsageLedger(pool *pgxpool.Pool) *UsageLedger {
	return &UsageLedger{pool: pool}
}

// GlobalCount returns how many times the coupon has been redeemed across
// all users.
func (l *UsageLedger) GlobalCount(ctx context.Context, couponID uuid.UUID) (int, error) {
	var n int
	err := l.pool.QueryRow(ctx,
		`SELECT count(*) FROM coupon_usages WHERE coupon_id = $1`,
		couponID.String(),
	).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "global usage count")
	}
	return n, nil
}

// UserCount returns how many times the given user has redeemed the coupon.
func (l *UsageLedger) UserCount(ctx context.Context, couponID uuid.UUID, userID string) (int, error) {
	var n int
	err := l.pool.QueryRow(ctx,
		`SELECT count(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2`,
		couponID.String(), userID,
	).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "user usage count")
	}
	return n, nil
}

// Append records a standalone redemption (no order attached) in its own
// transaction, re-checking both limits under the coupon row lock.
func (l *UsageLedger) Append(ctx context.Context, c *coupon.Coupon, u *coupon.Usage) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := appendUsage(ctx, tx, c, u); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return translateCommitErr(errors.Wrap(err, "commit usage"))
	}
	return nil
}

// appendUsage is the single write path for redemptions, shared by the
// standalone ledger Append and the order-creation transaction.
//
// It serializes concurrent redemptions by locking the coupon row, then
// re-counts both limits under the lock before inserting. Validation outside
// the transaction reads unlocked counts and may race; this re-check is what
// guarantees limits are never overshot.
func appendUsage(ctx context.Context, tx pgx.Tx, c *coupon.Coupon, u *coupon.Usage) error {
	var locked uuid.UUID
	err := tx.QueryRow(ctx,
		`SELECT id FROM coupons WHERE id = $1 FOR UPDATE`,
		c.ID.String(),
	).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.ErrNotFound
		}
		return translateCommitErr(errors.Wrap(err, "lock coupon"))
	}

	if c.UsageLimit > 0 {
		var n int
		err := tx.QueryRow(ctx,
			`SELECT count(*) FROM coupon_usages WHERE coupon_id = $1`,
			c.ID.String(),
		).Scan(&n)
		if err != nil {
			return errors.Wrap(err, "recount global usage")
		}
		if n >= c.UsageLimit {
			return coupon.ErrGlobalLimit
		}
	}
	if c.UsageLimitPerUser > 0 {
		var n int
		err := tx.QueryRow(ctx,
			`SELECT count(*) FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2`,
			c.ID.String(), u.UserID,
		).Scan(&n)
		if err != nil {
			return errors.Wrap(err, "recount user usage")
		}
		if n >= c.UsageLimitPerUser {
			return coupon.ErrPerUserLimit
		}
	}

	var orderID *string
	if u.OrderID.Valid {
		s := u.OrderID.UUID.String()
		orderID = &s
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO coupon_usages (id, coupon_id, user_id, order_id, discount_amount, order_total, used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID.String(), u.CouponID.String(), u.UserID, orderID,
		u.DiscountAmount, u.OrderTotal, u.UsedAt,
	)
	if err != nil {
		return translateCommitErr(errors.Wrap(err, "insert usage"))
	}
	return nil
}
