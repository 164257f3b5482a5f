package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// LockRepository hands out redis-backed claim locks. Without a client every
// acquire succeeds, which is correct for a single instance.
type LockRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewLockRepository constructs a LockRepository.
func NewLockRepository(client *redis.Client, keyPrefix string) *LockRepository {
	return &LockRepository{client: client, keyPrefix: keyPrefix}
}

// Acquire claims key for ttl. It returns ErrLockNotAcquired when another holder
// owns it. The returned release only deletes the key if we still own it.
func (r *LockRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if r.client == nil {
		return func(context.Context) error { return nil }, nil
	}

	fullKey := r.keyPrefix + key
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", fullKey, err)
	}
	if !ok {
		return nil, appErrors.ErrLockNotAcquired
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{fullKey}, token).Err(); err != nil {
			return fmt.Errorf("release lock %s: %w", fullKey, err)
		}
		return nil
	}, nil
}
