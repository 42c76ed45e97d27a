package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/storeops/pricing-engine/internal/domain/coupon"
	"github.com/storeops/pricing-engine/internal/domain/order"
	"github.com/storeops/pricing-engine/internal/domain/product"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// writeDomainError maps domain sentinel errors onto the HTTP error envelope.
// Coupon ineligibility is a 422 with a machine-readable reason so clients can
// tell "expired" from "below minimum" without parsing prose.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		badQty     *order.InvalidQuantityError
		notFoundID *order.ProductNotFoundError
	)

	switch {
	case errors.Is(err, coupon.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "coupon not found")
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "product not found")
	case errors.As(err, &notFoundID):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, coupon.ErrInvalidSubtotal):
		writeError(w, http.StatusBadRequest, "validation_failed", "subtotal must not be negative")
	case errors.Is(err, order.ErrEmptyLines):
		writeError(w, http.StatusBadRequest, "validation_failed", "order must contain at least one line")
	case errors.As(err, &badQty):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, coupon.ErrInactive):
		writeIneligible(w, "inactive", "coupon is not active")
	case errors.Is(err, coupon.ErrNotStarted):
		writeIneligible(w, "not_started", "coupon is not yet valid")
	case errors.Is(err, coupon.ErrExpired):
		writeIneligible(w, "expired", "coupon has expired")
	case errors.Is(err, coupon.ErrBelowMinimum):
		writeIneligible(w, "below_minimum", "order total is below the coupon minimum")
	case errors.Is(err, coupon.ErrGlobalLimit):
		writeError(w, http.StatusConflict, "limit_exceeded", "coupon usage limit reached")
	case errors.Is(err, coupon.ErrPerUserLimit):
		writeError(w, http.StatusConflict, "limit_exceeded", "coupon already used the maximum number of times")
	case errors.Is(err, coupon.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "concurrent update, retry the request")
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeIneligible(w http.ResponseWriter, reason, message string) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Code:    "coupon_ineligible",
		Message: message,
		Reason:  reason,
	})
}
