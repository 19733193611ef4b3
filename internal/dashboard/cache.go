package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gymmanager/internal/lifecycle"
	"gymmanager/internal/member"
)

const (
	cacheKeyPrefix = "gymmanager:dashboard"
	CacheTTL       = 60 * time.Second
)

// Cache stores per-gym stats for the current day.
type Cache interface {
	Get(ctx context.Context, gymID int) (*member.Stats, bool, error)
	Set(ctx context.Context, gymID int, stats *member.Stats) error
	Invalidate(ctx context.Context, gymID int) error
}

type redisCache struct {
	redis *redis.Client
	ttl   time.Duration
	now   lifecycle.Clock
}

func NewRedisCache(rdb *redis.Client, clock lifecycle.Clock) Cache {
	if clock == nil {
		clock = lifecycle.SystemClock
	}
	return &redisCache{redis: rdb, ttl: CacheTTL, now: clock}
}

// CacheKey includes the date so counts never leak across midnight.
func CacheKey(gymID int, day lifecycle.Date) string {
	return fmt.Sprintf("%s:%d:%s", cacheKeyPrefix, gymID, day)
}

func (c *redisCache) key(gymID int) string {
	return CacheKey(gymID, lifecycle.Today(c.now()))
}

func (c *redisCache) Get(ctx context.Context, gymID int) (*member.Stats, bool, error) {
	data, err := c.redis.Get(ctx, c.key(gymID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read stats cache: %w", err)
	}

	var stats member.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, false, fmt.Errorf("decode stats cache: %w", err)
	}
	return &stats, true, nil
}

func (c *redisCache) Set(ctx context.Context, gymID int, stats *member.Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	if err := c.redis.Set(ctx, c.key(gymID), string(data), c.ttl).Err(); err != nil {
		return fmt.Errorf("write stats cache: %w", err)
	}
	return nil
}

func (c *redisCache) Invalidate(ctx context.Context, gymID int) error {
	if err := c.redis.Del(ctx, c.key(gymID)).Err(); err != nil {
		return fmt.Errorf("invalidate stats cache: %w", err)
	}
	return nil
}
