// Command seed-db provisions a database with demo catalog data, a pair of
// coupons, and an API key for local development.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storeops/pricing-engine/internal/domain/auth"
	"github.com/storeops/pricing-engine/internal/domain/coupon"
	"github.com/storeops/pricing-engine/internal/domain/product"
	"github.com/storeops/pricing-engine/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PRICING_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PRICING_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PRICING_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or PRICING_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PRICING_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, postgres.NewProductRepository(pool)); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedCoupons(ctx, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

func seedCatalog(ctx context.Context, repo *postgres.ProductRepository) error {
	slog.Info("seeding catalog")

	now := time.Now()
	sale := &product.FlashSale{
		ID:          uuid.New(),
		Name:        "Weekend flash sale",
		DiscountPct: decimal.NewFromInt(20),
		StartsAt:    now.Add(-time.Hour),
		EndsAt:      now.Add(48 * time.Hour),
	}
	if err := repo.InsertFlashSale(ctx, sale); err != nil {
		return err
	}

	products := []*product.Product{
		{
			ID:          uuid.New(),
			Name:        "Wireless headphones",
			BasePrice:   100_000,
			DiscountPct: decimal.NewFromInt(10),
			FlashSale:   sale,
		},
		{
			ID:        uuid.New(),
			Name:      "Mechanical keyboard",
			BasePrice: 250_000,
			FlashSale: sale,
		},
		{
			ID:          uuid.New(),
			Name:        "USB-C dock",
			BasePrice:   180_000,
			DiscountPct: decimal.NewFromInt(5),
		},
		{
			ID:        uuid.New(),
			Name:      "Laptop stand",
			BasePrice: 75_000,
		},
	}
	for _, p := range products {
		if err := repo.Insert(ctx, p); err != nil {
			return err
		}
		slog.Info("inserted product", slog.String("name", p.Name))
	}
	return nil
}

func seedCoupons(ctx context.Context, repo *postgres.CouponRepository) error {
	slog.Info("seeding coupons")

	now := time.Now()
	coupons := []*coupon.Coupon{
		{
			ID:   uuid.New(),
			Code: "DISCOUNT10",
			Discount: coupon.Percentage{
				Value:       decimal.NewFromInt(10),
				MaxDiscount: 50_000,
			},
			UsageLimitPerUser: 1,
			StartsAt:          now.Add(-time.Hour),
			EndsAt:            now.AddDate(0, 1, 0),
			Active:            true,
		},
		{
			ID:                uuid.New(),
			Code:              "SAVE20K",
			Discount:          coupon.Fixed{Value: 20_000},
			MinimumPurchase:   100_000,
			UsageLimit:        100,
			UsageLimitPerUser: 2,
			StartsAt:          now.Add(-time.Hour),
			EndsAt:            now.AddDate(0, 1, 0),
			Active:            true,
		},
	}
	for _, c := range coupons {
		if err := repo.Insert(ctx, c); err != nil {
			return err
		}
		slog.Info("inserted coupon", slog.String("code", c.Code))
	}
	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	return repo.InsertKey(ctx, &auth.APIKey{
		ID:      uuid.NewString(),
		KeyHash: auth.HashKey(apiKey, []byte(pepper)),
		UserID:  "seed-user",
		Name:    "Default development key",
	})
}
