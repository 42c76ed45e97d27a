package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storeops/pricing-engine/internal/domain/product"
)

type flashSaleResponse struct {
	Name        string    `json:"name"`
	DiscountPct string    `json:"discount_pct"`
	EndsAt      time.Time `json:"ends_at"`
}

type productResponse struct {
	ID             uuid.UUID          `json:"id"`
	Name           string             `json:"name"`
	BasePrice      int64              `json:"base_price"`
	DiscountPct    string             `json:"discount_pct,omitempty"`
	EffectivePrice int64              `json:"effective_price"`
	FlashSale      *flashSaleResponse `json:"flash_sale,omitempty"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	now := h.now()
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p, now)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid product id")
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*p, h.now()))
}

func toProductResponse(p product.Product, now time.Time) productResponse {
	resp := productResponse{
		ID:             p.ID,
		Name:           p.Name,
		BasePrice:      p.BasePrice,
		EffectivePrice: product.EffectiveUnitPrice(p, now),
	}
	if !p.DiscountPct.IsZero() {
		resp.DiscountPct = p.DiscountPct.StringFixed(2)
	}
	// Only an active sale is surfaced; a scheduled one is not public yet.
	if p.FlashSale != nil && p.FlashSale.ActiveAt(now) {
		resp.FlashSale = &flashSaleResponse{
			Name:        p.FlashSale.Name,
			DiscountPct: p.FlashSale.DiscountPct.StringFixed(2),
			EndsAt:      p.FlashSale.EndsAt,
		}
	}
	return resp
}
