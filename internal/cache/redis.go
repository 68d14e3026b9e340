package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"herbmanager/backend/internal/domain"
)

const statisticsKeyPrefix = "herbmanager:stats:"

type RedisStatisticsCache struct {
	client *redis.Client
}

func NewRedisStatisticsCache(addr string, password string, db int) *RedisStatisticsCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisStatisticsCache{client: client}
}

func (c *RedisStatisticsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStatisticsCache) Close() error {
	return c.client.Close()
}

func (c *RedisStatisticsCache) Get(ctx context.Context, key string) (*domain.Statistics, bool, error) {
	val, err := c.client.Get(ctx, statisticsKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var stats domain.Statistics
	if err := json.Unmarshal(val, &stats); err != nil {
		return nil, false, err
	}
	return &stats, true, nil
}

func (c *RedisStatisticsCache) Set(ctx context.Context, key string, value *domain.Statistics, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statisticsKeyPrefix+key, payload, ttl).Err()
}

func (c *RedisStatisticsCache) Invalidate(ctx context.Context) error {
	keys := make([]string, 0, 16)
	iter := c.client.Scan(ctx, 0, statisticsKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
