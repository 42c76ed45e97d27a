// Package handler exposes the pricing engine over HTTP.
package handler

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storeops/pricing-engine/internal/domain/auth"
	"github.com/storeops/pricing-engine/internal/domain/coupon"
	"github.com/storeops/pricing-engine/internal/domain/order"
	"github.com/storeops/pricing-engine/internal/domain/product"
)

// CouponService is the coupon surface the handlers call.
type CouponService interface {
	Check(ctx context.Context, code string, subtotal int64, userID string) (*coupon.Quote, error)
	Redeem(ctx context.Context, code string, subtotal int64, userID string) (*coupon.Quote, *coupon.Usage, error)
}

// OrderService is the order surface the handlers call.
type OrderService interface {
	PriceCart(ctx context.Context, lines []order.LineRequest) (int64, error)
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error)
}

// ProductLister reads the catalog.
type ProductLister interface {
	List(ctx context.Context) ([]product.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error)
}

// Handler wires the domain services to chi routes.
type Handler struct {
	coupons  CouponService
	orders   OrderService
	products ProductLister
	keys     auth.Repository
	pepper   []byte
	now      func() time.Time
}

// New creates a Handler. The pepper is the server-side HMAC secret used to
// hash presented API keys before lookup.
func New(coupons CouponService, orders OrderService, products ProductLister, keys auth.Repository, pepper []byte) *Handler {
	return &Handler{
		coupons:  coupons,
		orders:   orders,
		products: products,
		keys:     keys,
		pepper:   pepper,
		now:      time.Now,
	}
}

// Routes mounts the API routes onto the router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)

	// The check endpoint accepts anonymous callers; per-user limits are
	// only enforced against an identity when one is presented.
	r.With(h.OptionalAuth).Get("/coupons/check/{code}", h.checkCoupon)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Post("/coupons/apply", h.applyCoupon)
		r.Post("/orders", h.placeOrder)
	})
}
