package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mhlabs/tokenvault/pkg/common/config"
	"github.com/mhlabs/tokenvault/pkg/common/logger"
	"github.com/redis/go-redis/v9"
)

// NewRedis builds a client for the caller to own; see NewPostgres for the
// injection rationale.
func NewRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Log.Info("Connected to Redis")
	return client, nil
}
