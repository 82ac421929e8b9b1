package refreshtokens

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

const DefaultKeyPrefix = "refresh_token"

// RedisRepository keeps one key per token holding the account id. Keys
// carry a TTL equal to the remaining token lifetime, so expired records
// disappear without a sweep. A per-account set indexes the tokens for
// revocation; it may hold members whose keys already expired.
type RedisRepository struct {
	rdb    redis.Cmdable
	prefix string
	now    func() time.Time
}

func NewRedisRepository(rdb redis.Cmdable, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisRepository{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *RedisRepository) key(token string) string {
	return r.prefix + ":" + token
}

func (r *RedisRepository) accountKey(accountID string) string {
	return r.prefix + ":account:" + accountID
}

func (r *RedisRepository) Exists(ctx context.Context, token string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

// Create skips tokens that are already expired.
func (r *RedisRepository) Create(ctx context.Context, token string, accountID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}

	// All refresh tokens share one lifetime, so the newest token always
	// outlives the index it extends.
	idx := r.accountKey(accountID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(token), accountID, ttl)
		pipe.SAdd(ctx, idx, token)
		pipe.Expire(ctx, idx, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, token string) error {
	if err := r.rdb.Del(ctx, r.key(token)).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) DeleteBatch(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = r.key(t)
	}

	n, err := r.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return n, nil
}

func (r *RedisRepository) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	idx := r.accountKey(accountID)

	tokens, err := r.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}

	n, err := r.DeleteBatch(ctx, tokens)
	if err != nil {
		return 0, err
	}

	if err := r.rdb.Del(ctx, idx).Err(); err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return n, nil
}

func (r *RedisRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (r *RedisRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.RefreshTokenRecord, error) {
	return nil, nil
}
