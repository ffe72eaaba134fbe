package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/acp-registry/apiserver/config"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the document under a single Redis key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, key string) (*RedisStore, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("redis url is required")
	}
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("redis key is required")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client, key: key}, nil
}

func (r *RedisStore) Read(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAbsent
		}
		return nil, err
	}
	return data, nil
}

func (r *RedisStore) Write(ctx context.Context, data []byte) error {
	return r.client.Set(ctx, r.key, data, 0).Err()
}

func (r *RedisStore) Name() string {
	return "redis:" + r.key
}

// Close closes the Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
