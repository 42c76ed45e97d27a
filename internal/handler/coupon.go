package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/storeops/pricing-engine/internal/domain/coupon"
	"github.com/storeops/pricing-engine/internal/domain/order"
)

type checkCouponResponse struct {
	Code            string      `json:"code"`
	Type            string      `json:"type"`
	Value           json.Number `json:"value"`
	MinimumPurchase int64       `json:"minimum_purchase"`
	MaximumDiscount *int64      `json:"maximum_discount,omitempty"`
	DiscountAmount  int64       `json:"discount_amount"`
	FinalTotal      int64       `json:"final_total"`
}

// checkCoupon previews a coupon against a total without consuming a usage
// slot.
func (h *Handler) checkCoupon(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	total, err := strconv.ParseInt(r.URL.Query().Get("total_price"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "total_price must be an integer")
		return
	}

	q, err := h.coupons.Check(r.Context(), code, total, userID(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := checkCouponResponse{
		Code:            q.Coupon.Code,
		Type:            string(q.Coupon.Discount.Type()),
		MinimumPurchase: q.Coupon.MinimumPurchase,
		DiscountAmount:  q.DiscountAmount,
		FinalTotal:      q.FinalTotal,
	}
	switch d := q.Coupon.Discount.(type) {
	case coupon.Percentage:
		resp.Value = json.Number(d.Value.StringFixed(2))
		if d.MaxDiscount > 0 {
			capped := d.MaxDiscount
			resp.MaximumDiscount = &capped
		}
	case coupon.Fixed:
		resp.Value = json.Number(strconv.FormatInt(d.Value, 10))
	}

	writeJSON(w, http.StatusOK, resp)
}

type applyCouponRequest struct {
	CouponCode string `json:"coupon_code"`
	TotalPrice *int64 `json:"total_price,omitempty"`
	CartItems  []struct {
		ProductID uuid.UUID `json:"product_id"`
		Quantity  int       `json:"quantity"`
	} `json:"cart_items,omitempty"`
}

type applyCouponResponse struct {
	CouponID       uuid.UUID `json:"coupon_id"`
	CouponCode     string    `json:"coupon_code"`
	DiscountAmount int64     `json:"discount_amount"`
	OriginalTotal  int64     `json:"original_total"`
	FinalTotal     int64     `json:"final_total"`
	UsageID        uuid.UUID `json:"usage_id"`
}

// applyCoupon redeems a coupon, consuming one usage slot. The total can be
// supplied directly or derived server-side from cart contents; when both are
// present the priced cart wins, since client totals are advisory.
func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}
	if req.CouponCode == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "coupon_code is required")
		return
	}

	var total int64
	switch {
	case len(req.CartItems) > 0:
		lines := make([]order.LineRequest, len(req.CartItems))
		for i, it := range req.CartItems {
			lines[i] = order.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity}
		}
		subtotal, err := h.orders.PriceCart(r.Context(), lines)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		total = subtotal
	case req.TotalPrice != nil:
		total = *req.TotalPrice
	default:
		writeError(w, http.StatusBadRequest, "validation_failed", "total_price or cart_items is required")
		return
	}

	q, u, err := h.coupons.Redeem(r.Context(), req.CouponCode, total, userID(r.Context()))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, applyCouponResponse{
		CouponID:       q.Coupon.ID,
		CouponCode:     q.Coupon.Code,
		DiscountAmount: q.DiscountAmount,
		OriginalTotal:  q.Subtotal,
		FinalTotal:     q.FinalTotal,
		UsageID:        u.ID,
	})
}
