package bin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const activeBinsKey = "bins:active"

// Cache holds a snapshot of the active bin set.
type Cache interface {
	GetActive(ctx context.Context) ([]*Bin, bool, error)
	SetActive(ctx context.Context, bins []*Bin) error
	Invalidate(ctx context.Context) error
}

// RedisCache stores the active bin snapshot as JSON in Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) GetActive(ctx context.Context) ([]*Bin, bool, error) {
	raw, err := c.client.Get(ctx, activeBinsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get active bins: %w", err)
	}

	var bins []*Bin
	if err := json.Unmarshal(raw, &bins); err != nil {
		return nil, false, fmt.Errorf("decode active bins: %w", err)
	}
	return bins, true, nil
}

func (c *RedisCache) SetActive(ctx context.Context, bins []*Bin) error {
	raw, err := json.Marshal(bins)
	if err != nil {
		return fmt.Errorf("encode active bins: %w", err)
	}
	if err := c.client.Set(ctx, activeBinsKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set active bins: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, activeBinsKey).Err(); err != nil {
		return fmt.Errorf("invalidate active bins: %w", err)
	}
	return nil
}
