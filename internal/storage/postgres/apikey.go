package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storeops/pricing-engine/internal/domain/auth"
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository implements auth.Repository backed by PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash looks up an API key by its HMAC hash. A nil key with nil error
// means no such key exists.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKey, error) {
	var k auth.APIKey
	err := r.pool.QueryRow(ctx,
		`SELECT id, key_hash, user_id, name FROM api_keys WHERE key_hash = $1`,
		hash,
	).Scan(&k.ID, &k.KeyHash, &k.UserID, &k.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find api key")
	}
	return &k, nil
}

// InsertKey stores a hashed API key. Used by the seed CLI.
func (r *APIKeyRepository) InsertKey(ctx context.Context, k *auth.APIKey) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO api_keys (id, key_hash, user_id, name) VALUES ($1, $2, $3, $4)`,
		k.ID, k.KeyHash, k.UserID, k.Name,
	)
	if err != nil {
		return errors.Wrap(err, "insert api key")
	}
	return nil
}
