package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/storeops/pricing-engine/internal/domain/order"
)

type placeOrderRequest struct {
	CartItems []struct {
		ProductID uuid.UUID `json:"product_id"`
		Quantity  int       `json:"quantity"`
	} `json:"cart_items"`
	CouponCode string         `json:"coupon_code,omitempty"`
	Shipping   order.Shipping `json:"shipping"`
}

type orderLineResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unit_price"`
	LineTotal int64     `json:"line_total"`
}

type orderResponse struct {
	ID             uuid.UUID           `json:"id"`
	Lines          []orderLineResponse `json:"lines"`
	Subtotal       int64               `json:"subtotal"`
	CouponCode     string              `json:"coupon_code,omitempty"`
	CouponDiscount int64               `json:"coupon_discount"`
	Total          int64               `json:"total"`
	CreatedAt      time.Time           `json:"created_at"`
}

// placeOrder prices the cart from current catalog state, applies the coupon
// if one is given, and persists the order.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}

	lines := make([]order.LineRequest, len(req.CartItems))
	for i, it := range req.CartItems {
		lines[i] = order.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID:     userID(r.Context()),
		Lines:      lines,
		CouponCode: req.CouponCode,
		Shipping:   req.Shipping,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := orderResponse{
		ID:             o.ID,
		Lines:          make([]orderLineResponse, len(o.Lines)),
		Subtotal:       o.Subtotal,
		CouponCode:     o.CouponCode,
		CouponDiscount: o.CouponDiscount,
		Total:          o.Total,
		CreatedAt:      o.CreatedAt,
	}
	for i, l := range o.Lines {
		resp.Lines[i] = orderLineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}
