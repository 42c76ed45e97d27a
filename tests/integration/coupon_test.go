//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/storeops/pricing-engine/internal/domain/coupon"
	"github.com/storeops/pricing-engine/internal/storage/postgres"
)

func seedCoupon(t *testing.T, repo *postgres.CouponRepository, c *coupon.Coupon) {
	t.Helper()
	require.NoError(t, repo.Insert(context.Background(), c))
}

func TestCouponRoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewCouponRepository(pool)
	now := time.Now().UTC().Truncate(time.Second)

	want := &coupon.Coupon{
		ID:   uuid.New(),
		Code: "DISCOUNT10",
		Discount: coupon.Percentage{
			Value:       decimal.NewFromInt(10),
			MaxDiscount: 50_000,
		},
		MinimumPurchase:   5_000,
		UsageLimit:        100,
		UsageLimitPerUser: 1,
		StartsAt:          now.Add(-time.Hour),
		EndsAt:            now.Add(24 * time.Hour),
		Active:            true,
	}
	seedCoupon(t, repo, want)

	got, err := repo.FindByCode(context.Background(), "DISCOUNT10")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, coupon.TypePercentage, got.Discount.Type())
	assert.Equal(t, int64(50_000), got.Discount.(coupon.Percentage).MaxDiscount)
	assert.Equal(t, want.UsageLimit, got.UsageLimit)
	assert.Equal(t, want.UsageLimitPerUser, got.UsageLimitPerUser)

	// Codes are matched case-sensitively.
	_, err = repo.FindByCode(context.Background(), "discount10")
	require.ErrorIs(t, err, coupon.ErrNotFound)
}

func TestServiceCheckDoesNotConsume(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewCouponRepository(pool)
	ledger := postgres.NewUsageLedger(pool)
	now := time.Now()

	c := &coupon.Coupon{
		ID:                uuid.New(),
		Code:              "SAVE20K",
		Discount:          coupon.Fixed{Value: 20_000},
		MinimumPurchase:   100_000,
		UsageLimit:        1,
		UsageLimitPerUser: 1,
		StartsAt:          now.Add(-time.Hour),
		EndsAt:            now.Add(time.Hour),
		Active:            true,
	}
	seedCoupon(t, repo, c)

	svc := coupon.NewService(repo, ledger)
	for range 5 {
		q, err := svc.Check(context.Background(), "SAVE20K", 150_000, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(20_000), q.DiscountAmount)
	}

	n, err := ledger.GlobalCount(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "check must not write usage rows")
}

func TestRedeemEnforcesPerUserLimit(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewCouponRepository(pool)
	ledger := postgres.NewUsageLedger(pool)
	now := time.Now()

	c := &coupon.Coupon{
		ID:                uuid.New(),
		Code:              "DISCOUNT10",
		Discount:          coupon.Percentage{Value: decimal.NewFromInt(10)},
		UsageLimitPerUser: 1,
		StartsAt:          now.Add(-time.Hour),
		EndsAt:            now.Add(time.Hour),
		Active:            true,
	}
	seedCoupon(t, repo, c)

	svc := coupon.NewService(repo, ledger)

	_, u, err := svc.Redeem(context.Background(), "DISCOUNT10", 100_000, "u1")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, u.ID)

	_, _, err = svc.Redeem(context.Background(), "DISCOUNT10", 100_000, "u1")
	require.ErrorIs(t, err, coupon.ErrPerUserLimit)

	// A different user still has their own allowance.
	_, _, err = svc.Redeem(context.Background(), "DISCOUNT10", 100_000, "u2")
	require.NoError(t, err)
}

// TestConcurrentRedemptions hammers a single-use coupon from many goroutines
// and verifies exactly one redemption lands.
func TestConcurrentRedemptions(t *testing.T) {
	pool := setupTestDB(t)
	repo := postgres.NewCouponRepository(pool)
	ledger := postgres.NewUsageLedger(pool)
	now := time.Now()

	c := &coupon.Coupon{
		ID:                uuid.New(),
		Code:              "ONESHOT",
		Discount:          coupon.Fixed{Value: 10_000},
		UsageLimit:        1,
		UsageLimitPerUser: 1,
		StartsAt:          now.Add(-time.Hour),
		EndsAt:            now.Add(time.Hour),
		Active:            true,
	}
	seedCoupon(t, repo, c)

	const workers = 16
	svc := coupon.NewService(repo, ledger)

	var g errgroup.Group
	results := make([]error, workers)
	for i := range workers {
		g.Go(func() error {
			_, _, err := svc.Redeem(context.Background(), "ONESHOT", 100_000, uuid.NewString())
			results[i] = err
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var won, limited int
	for _, err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, coupon.ErrGlobalLimit):
			limited++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won, "exactly one redemption wins")
	assert.Equal(t, workers-1, limited)

	n, err := ledger.GlobalCount(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "ledger holds exactly one usage row")
}
