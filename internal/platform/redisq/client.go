package redisq

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/inkwell-ai/inkwell-api/internal/config"
)

// NewClient creates a Redis client from the provided configuration and
// verifies connectivity with a ping before returning it.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return client, nil
}
