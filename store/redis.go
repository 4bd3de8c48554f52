package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/graphweave/graphweave/types"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr       string        `yaml:"addr" json:"addr"`
	Password   string        `yaml:"password" json:"password"`
	DB         int           `yaml:"db" json:"db"`
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl"`
	KeyPrefix  string        `yaml:"key_prefix" json:"key_prefix"`
}

// DefaultRedisConfig returns a local-development configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:       "localhost:6379",
		DefaultTTL: DefaultTTL,
		KeyPrefix:  "graphweave:",
	}
}

// RedisStore is a Store backed by Redis. Values are JSON-encoded, so reads
// return what encoding/json produces (maps, slices, float64, string, bool).
type RedisStore struct {
	client *redis.Client
	config RedisConfig
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, config RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, types.NewError(types.ErrStoreFailure, "redis ping failed").WithCause(err)
	}

	return &RedisStore{
		client: client,
		config: config,
		logger: logger.With(zap.String("component", "redis_store")),
	}, nil
}

func (s *RedisStore) key(key string) string {
	return s.config.KeyPrefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (any, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, types.NewError(types.ErrStoreFailure, "redis get failed").WithCause(err)
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		s.logger.Warn("dropping undecodable store entry", zap.String("key", key), zap.Error(err))
		_ = s.client.Del(ctx, s.key(key)).Err()
		return nil, false, nil
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.config.DefaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return types.NewError(types.ErrStoreFailure, fmt.Sprintf("encode value for key %q", key)).WithCause(err)
	}
	if err := s.client.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return types.NewError(types.ErrStoreFailure, "redis set failed").WithCause(err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return types.NewError(types.ErrStoreFailure, "redis del failed").WithCause(err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
