package config

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a Redis client for the configured address, or nil when
// Redis is not configured or unreachable. Callers fall back to in-memory state.
func ConnectRedis(cfg *Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ Redis unavailable at %s, using in-memory rate limiting: %v", cfg.Redis.Addr, err)
		_ = client.Close()
		return nil
	}

	log.Printf("✅ Redis connected [%s]", cfg.Redis.Addr)
	return client
}
