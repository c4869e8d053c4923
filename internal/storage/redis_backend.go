package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quotaflow-go/internal/config"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "quotaflow:"

// RedisBackend keeps every preference as a field of one hash,
// <prefix>preferences, so an operator can inspect them with HGETALL.
type RedisBackend struct {
	client *redis.Client
	hash   string
}

// NewRedisBackend accepts either host:port or a redis:// URL in RedisAddr.
// Password and DB from the config fill in what the URL leaves out.
func NewRedisBackend(cfg config.StorageConfig) (*RedisBackend, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}
	if opts.Password == "" {
		opts.Password = cfg.RedisPassword
	}
	if opts.DB == 0 {
		opts.DB = cfg.RedisDB
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second
	opts.PoolSize = 4

	prefix := cfg.RedisPrefix
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisBackend{client: redis.NewClient(opts), hash: prefix + "preferences"}, nil
}

func (r *RedisBackend) Name() string { return "redis" }

func (r *RedisBackend) Initialize(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *RedisBackend) Close() error { return r.client.Close() }

func (r *RedisBackend) Health(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *RedisBackend) GetPreference(ctx context.Context, key string) (string, error) {
	val, err := r.client.HGet(ctx, r.hash, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", &ErrNotFound{Key: key}
	}
	return val, err
}

func (r *RedisBackend) SetPreference(ctx context.Context, key, value string) error {
	return r.client.HSet(ctx, r.hash, key, value).Err()
}

func (r *RedisBackend) DeletePreference(ctx context.Context, key string) error {
	removed, err := r.client.HDel(ctx, r.hash, key).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return &ErrNotFound{Key: key}
	}
	return nil
}
