package handler

import (
	"context"
	"crypto/hmac"
	"net/http"

	"github.com/storeops/pricing-engine/internal/domain/auth"
)

type userIDKey struct{}

// userID returns the authenticated user identity, or "" for anonymous
// callers on routes that allow them.
func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

const apiKeyHeader = "api_key"

func (h *Handler) authenticate(r *http.Request) (string, bool) {
	key := r.Header.Get(apiKeyHeader)
	if key == "" {
		return "", false
	}

	hash := auth.HashKey(key, h.pepper)
	k, err := h.keys.FindByHash(r.Context(), hash)
	if err != nil || k == nil {
		return "", false
	}
	// The lookup is by hash already; the explicit compare guards against a
	// store that matches more loosely than exact equality.
	if !hmac.Equal([]byte(k.KeyHash), []byte(hash)) {
		return "", false
	}
	return k.UserID, true
}

// RequireAuth rejects requests without a valid API key.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.authenticate(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid API key")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, id)))
	})
}

// OptionalAuth attaches an identity when a valid key is presented and lets
// anonymous requests through otherwise. An invalid key is still rejected so
// callers notice broken credentials instead of silently losing their
// per-user state.
func (h *Handler) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(apiKeyHeader) == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, ok := h.authenticate(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid API key")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, id)))
	})
}
