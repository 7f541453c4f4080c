package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis. It is the option for deployments
// that share one data source across processes; the in-memory store remains
// the default for the one-instance-per-symbol model.
type RedisStore struct {
	client *redis.Client
	prefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	PoolSize int
}

type RedisOption func(*RedisConfig)

func WithAddr(addr string) RedisOption {
	return func(c *RedisConfig) { c.Addr = addr }
}

func WithPassword(pw string) RedisOption {
	return func(c *RedisConfig) { c.Password = pw }
}

func WithDB(db int) RedisOption {
	return func(c *RedisConfig) { c.DB = db }
}

func WithPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

// NewRedisStore connects and pings Redis before returning a usable store.
func NewRedisStore(opts ...RedisOption) (*RedisStore, error) {
	cfg := &RedisConfig{
		Addr:     "localhost:6379",
		Prefix:   "scalper",
		PoolSize: 10,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{client: client, prefix: cfg.Prefix}, nil
}

func (rs *RedisStore) wrapKey(key string) string {
	return rs.prefix + ":" + key
}

func (rs *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rs.client.Set(ctx, rs.wrapKey(key), data, ttl).Err()
}

func (rs *RedisStore) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := rs.client.Get(ctx, rs.wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

func (rs *RedisStore) Delete(ctx context.Context, keys ...string) error {
	wrapped := make([]string, len(keys))
	for i, k := range keys {
		wrapped[i] = rs.wrapKey(k)
	}
	return rs.client.Del(ctx, wrapped...).Err()
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

var _ Store = (*RedisStore)(nil)
