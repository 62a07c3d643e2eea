package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"roost/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultCacheTTL  = 30 * time.Second
	managerKeyPrefix = "roost:manager:"
	cacheOpTimeout   = 500 * time.Millisecond
)

// StateCache holds manager states keyed by token digest.
type StateCache interface {
	Get(ctx context.Context, key string) (domain.ManagerState, bool, error)
	Set(ctx context.Context, key string, state domain.ManagerState) error
	Delete(ctx context.Context, key string) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (domain.ManagerState, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, managerKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.ManagerUnknown, false, nil
	}
	if err != nil {
		return domain.ManagerUnknown, false, err
	}

	value, err := strconv.ParseUint(raw, 10, 8)
	if err != nil {
		return domain.ManagerUnknown, false, nil
	}
	return domain.ParseManagerState(uint8(value)), true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, state domain.ManagerState) error {
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()

	return c.client.Set(ctx, managerKeyPrefix+key, strconv.Itoa(int(state)), c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()

	return c.client.Del(ctx, managerKeyPrefix+key).Err()
}
