package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"zooops/backend/internal/domain"
)

type RedisRevenueCache struct {
	client *redis.Client
}

func NewRedisRevenueCache(addr string, password string, db int) *RedisRevenueCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisRevenueCache{client: client}
}

func (c *RedisRevenueCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisRevenueCache) Close() error {
	return c.client.Close()
}

func (c *RedisRevenueCache) Get(ctx context.Context, key string) (*domain.RevenueReport, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var report domain.RevenueReport
	if err := json.Unmarshal([]byte(val), &report); err != nil {
		return nil, false, err
	}
	return &report, true, nil
}

func (c *RedisRevenueCache) Set(ctx context.Context, key string, report *domain.RevenueReport, ttl time.Duration) error {
	if report == nil {
		return nil
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
