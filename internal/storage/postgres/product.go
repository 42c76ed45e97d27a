package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/storeops/pricing-engine/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

const productColumns = `
	p.id, p.name, p.base_price, p.discount_pct,
	s.id, s.name, s.discount_pct, s.starts_at, s.ends_at`

const productFrom = `
	FROM products p
	LEFT JOIN flash_sales s ON s.id = p.flash_sale_id`

// ProductRepository implements product.Repository backed by PostgreSQL.
// Flash sales are joined in so the resolver always sees the current window.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns every product ordered by name.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+productFrom+` ORDER BY p.name`)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer rows.Close()

	return collectProducts(rows)
}

// GetByID returns a single product, or product.ErrNotFound.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id = $1`, id.String())

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	return &p, nil
}

// GetByIDs batch-fetches products. Missing IDs are simply absent from the
// result; callers decide whether that is an error.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]product.Product, error) {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+productFrom+` WHERE p.id = ANY($1::uuid[])`, strIDs)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	defer rows.Close()

	return collectProducts(rows)
}

// Insert stores a product. Used by the seed CLI.
func (r *ProductRepository) Insert(ctx context.Context, p *product.Product) error {
	var saleID *string
	if p.FlashSale != nil {
		s := p.FlashSale.ID.String()
		saleID = &s
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, base_price, discount_pct, flash_sale_id)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID.String(), p.Name, p.BasePrice, p.DiscountPct, saleID,
	)
	if err != nil {
		return errors.Wrapf(err, "insert product %q", p.Name)
	}
	return nil
}

// InsertFlashSale stores a flash sale window. Used by the seed CLI.
func (r *ProductRepository) InsertFlashSale(ctx context.Context, s *product.FlashSale) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO flash_sales (id, name, discount_pct, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5)`,
		s.ID.String(), s.Name, s.DiscountPct, s.StartsAt, s.EndsAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert flash sale %q", s.Name)
	}
	return nil
}

func collectProducts(rows pgx.Rows) ([]product.Product, error) {
	var products []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (product.Product, error) {
	var (
		p product.Product

		saleID    *uuid.UUID
		saleName  *string
		salePct   *decimal.Decimal
		saleStart *time.Time
		saleEnd   *time.Time
	)

	err := row.Scan(
		&p.ID, &p.Name, &p.BasePrice, &p.DiscountPct,
		&saleID, &saleName, &salePct, &saleStart, &saleEnd,
	)
	if err != nil {
		return product.Product{}, err
	}

	if saleID != nil {
		p.FlashSale = &product.FlashSale{
			ID:          *saleID,
			Name:        *saleName,
			DiscountPct: *salePct,
			StartsAt:    *saleStart,
			EndsAt:      *saleEnd,
		}
	}
	return p, nil
}
