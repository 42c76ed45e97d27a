package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// APIKey holds the identity attached to a validated API key. UserID is the
// opaque user identifier the external auth layer assigned; the pricing
// engine never interprets it.
type APIKey struct {
	ID      string
	KeyHash string
	UserID  string
	Name    string
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
}

// HashKey computes the hex-encoded HMAC-SHA256 of a raw API key. The pepper
// keeps leaked table contents useless without the server secret.
func HashKey(key string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
