// Command coupon-ingest bulk-loads coupon definitions from gzipped CSV
// files into the database.
//
// Each input row is:
//
//	code,type,value,minimum_purchase,maximum_discount,usage_limit,usage_limit_per_user,starts_at,ends_at,active
//
// with RFC 3339 timestamps and monetary columns in the smallest currency
// unit. Files are parsed concurrently; a bloom filter plus an exact set
// drops duplicate codes across files, first occurrence wins.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/storeops/pricing-engine/internal/domain/coupon"
	"github.com/storeops/pricing-engine/internal/storage/postgres"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	batchSize     = 5_000
)

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if flag.NArg() == 0 {
		slog.Error("usage: coupon-ingest [flags] file.csv.gz ...")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, flag.Args()); err != nil {
		slog.Error("coupon ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon ingest completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	repo := postgres.NewCouponRepository(pool)
	dedupe := newDeduper()

	coupons := make(chan *coupon.Coupon, batchSize)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writeBatches(ctx, repo, coupons)
	})

	parsers, parseCtx := errgroup.WithContext(ctx)
	for _, path := range files {
		parsers.Go(func() error {
			return parseFile(parseCtx, path, dedupe, coupons)
		})
	}
	err = parsers.Wait()
	close(coupons)

	if werr := g.Wait(); werr != nil {
		return werr
	}
	return err
}

// deduper tracks seen codes. The bloom filter answers "definitely new"
// cheaply; only possible repeats hit the exact set, so memory stays
// proportional to actual duplicates plus false positives.
type deduper struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	seen   map[string]struct{}
}

func newDeduper() *deduper {
	return &deduper{
		filter: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		seen:   make(map[string]struct{}),
	}
}

// claim reports whether code is new and marks it seen.
func (d *deduper) claim(code string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.filter.TestString(code) {
		if _, dup := d.seen[code]; dup {
			return false
		}
	}
	d.filter.AddString(code)
	d.seen[code] = struct{}{}
	return true
}

func parseFile(ctx context.Context, path string, dedupe *deduper, out chan<- *coupon.Coupon) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = 10
	r.ReuseRecord = true

	var total, kept int
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		total++
		c, err := parseRow(rec)
		if err != nil {
			return errors.Wrapf(err, "%s row %d", path, total)
		}
		if !dedupe.claim(c.Code) {
			continue
		}

		kept++
		select {
		case out <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	slog.Info("file parsed",
		slog.String("file", path),
		slog.Int("rows", total),
		slog.Int("kept", kept),
	)
	return nil
}

func parseRow(rec []string) (*coupon.Coupon, error) {
	value, err := decimal.NewFromString(rec[2])
	if err != nil {
		return nil, errors.Wrap(err, "parse value")
	}
	minPurchase, err := strconv.ParseInt(rec[3], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "parse minimum_purchase")
	}

	var discount coupon.Discount
	switch coupon.DiscountType(rec[1]) {
	case coupon.TypePercentage:
		p := coupon.Percentage{Value: value}
		if rec[4] != "" {
			p.MaxDiscount, err = strconv.ParseInt(rec[4], 10, 64)
			if err != nil {
				return nil, errors.Wrap(err, "parse maximum_discount")
			}
		}
		discount = p
	case coupon.TypeFixed:
		discount = coupon.Fixed{Value: value.IntPart()}
	default:
		return nil, errors.Errorf("unknown discount type %q", rec[1])
	}

	var usageLimit int
	if rec[5] != "" {
		usageLimit, err = strconv.Atoi(rec[5])
		if err != nil {
			return nil, errors.Wrap(err, "parse usage_limit")
		}
	}
	perUser, err := strconv.Atoi(rec[6])
	if err != nil {
		return nil, errors.Wrap(err, "parse usage_limit_per_user")
	}
	startsAt, err := time.Parse(time.RFC3339, rec[7])
	if err != nil {
		return nil, errors.Wrap(err, "parse starts_at")
	}
	endsAt, err := time.Parse(time.RFC3339, rec[8])
	if err != nil {
		return nil, errors.Wrap(err, "parse ends_at")
	}
	active, err := strconv.ParseBool(rec[9])
	if err != nil {
		return nil, errors.Wrap(err, "parse active")
	}

	return &coupon.Coupon{
		ID:                uuid.New(),
		Code:              rec[0],
		Discount:          discount,
		MinimumPurchase:   minPurchase,
		UsageLimit:        usageLimit,
		UsageLimitPerUser: perUser,
		StartsAt:          startsAt,
		EndsAt:            endsAt,
		Active:            active,
	}, nil
}

func writeBatches(ctx context.Context, repo *postgres.CouponRepository, in <-chan *coupon.Coupon) error {
	batch := make([]*coupon.Coupon, 0, batchSize)
	var written int64

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := repo.BulkInsert(ctx, batch)
		if err != nil {
			return errors.Wrap(err, "bulk insert")
		}
		written += n
		slog.Info("write progress", slog.Int64("written", written))
		batch = batch[:0]
		return nil
	}

	for c := range in {
		batch = append(batch, c)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}
