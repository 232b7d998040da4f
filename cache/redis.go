package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-registry/types"
	"github.com/saiset-co/sai-registry/utils"
)

type RedisConfig struct {
	Host               string        `json:"host"`
	Port               int           `json:"port"`
	Password           string        `json:"password"`
	DB                 int           `json:"db"`
	PoolSize           int           `json:"pool_size"`
	MinIdleConnections int           `json:"min_idle_connections"`
	DialTimeout        time.Duration `json:"dial_timeout"`
	ReadTimeout        time.Duration `json:"read_timeout"`
	WriteTimeout       time.Duration `json:"write_timeout"`
	KeyPrefix          string        `json:"key_prefix"`
	ScanBatchSize      int64         `json:"scan_batch_size"`
}

type RedisCache struct {
	ctx     context.Context
	logger  types.Logger
	config  *RedisConfig
	client  *redis.Client
	started int32
}

func NewRedisCache(ctx context.Context, logger types.Logger, config *types.CacheConfig) (types.ResponseCache, error) {
	var redisConfig = &RedisConfig{
		Host:               "localhost",
		Port:               6379,
		Password:           "",
		DB:                 0,
		PoolSize:           10,
		MinIdleConnections: 2,
		DialTimeout:        5 * time.Second,
		ReadTimeout:        3 * time.Second,
		WriteTimeout:       3 * time.Second,
		KeyPrefix:          "sai-registry",
		ScanBatchSize:      500,
	}

	if config.Config != nil {
		err := utils.UnmarshalConfig(config.Config, redisConfig)
		if err != nil {
			return nil, types.WrapError(err, "failed to unmarshal redis cache config")
		}
	}

	cache := &RedisCache{
		ctx:    ctx,
		logger: logger,
		config: redisConfig,
	}

	cache.client = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port),
		Password:     redisConfig.Password,
		DB:           redisConfig.DB,
		PoolSize:     redisConfig.PoolSize,
		MinIdleConns: redisConfig.MinIdleConnections,
		DialTimeout:  redisConfig.DialTimeout,
		ReadTimeout:  redisConfig.ReadTimeout,
		WriteTimeout: redisConfig.WriteTimeout,
	})

	if err := cache.client.Ping(ctx).Err(); err != nil {
		return nil, types.WrapError(err, "failed to connect to redis")
	}

	return cache, nil
}

func (r *RedisCache) Get(key string) (interface{}, bool) {
	if key == "" {
		return nil, false
	}

	result, err := r.client.Get(r.ctx, r.fullKey(key)).Result()
	if err != nil {
		if !types.IsError(err, redis.Nil) {
			// Cache faults degrade to a miss, never to a failed request.
			r.logger.Error("Failed to get cache entry", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var entry types.CacheEntry
	if err := utils.Unmarshal([]byte(result), &entry); err != nil {
		r.logger.Error("Failed to unmarshal cache entry", zap.String("key", key), zap.Error(err))
		r.client.Del(r.ctx, r.fullKey(key))
		return nil, false
	}

	return entry.Value, true
}

func (r *RedisCache) Set(key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return types.ErrCacheKeyEmpty
	}

	if ttl <= 0 {
		return nil
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}

	now := time.Now()
	entry := &types.CacheEntry{
		Key:       key,
		Value:     value,
		TTL:       ttl,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	data, err := utils.Marshal(entry)
	if err != nil {
		return types.WrapError(err, "failed to marshal cache entry")
	}

	if err := r.client.Set(r.ctx, r.fullKey(key), data, ttl).Err(); err != nil {
		return types.WrapError(err, "failed to set cache entry")
	}

	return nil
}

func (r *RedisCache) Delete(key string) error {
	return r.client.Del(r.ctx, r.fullKey(key)).Err()
}

func (r *RedisCache) InvalidatePrefix(prefix string) error {
	if prefix == "" {
		return types.ErrCacheKeyEmpty
	}

	pattern := r.fullKey(prefix) + "*"

	var cursor uint64
	var removed int

	for {
		keys, next, err := r.client.Scan(r.ctx, cursor, pattern, r.config.ScanBatchSize).Result()
		if err != nil {
			return types.WrapError(err, "failed to scan cache keys")
		}

		if len(keys) > 0 {
			if err := r.client.Del(r.ctx, keys...).Err(); err != nil {
				return types.WrapError(err, "failed to delete cache keys")
			}
			removed += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if removed > 0 {
		r.logger.Debug("Cache invalidated",
			zap.String("prefix", prefix),
			zap.Int("removed_entries", removed))
	}

	return nil
}

// Sweep is a no-op for redis: the server expires entries itself.
func (r *RedisCache) Sweep() int {
	return 0
}

func (r *RedisCache) Start() error {
	if !atomic.CompareAndSwapInt32(&r.started, 0, 1) {
		return types.ErrServerAlreadyRunning
	}

	r.logger.Info("Redis cache started",
		zap.String("host", r.config.Host),
		zap.Int("port", r.config.Port))
	return nil
}

func (r *RedisCache) Stop() error {
	if !atomic.CompareAndSwapInt32(&r.started, 1, 0) {
		return types.ErrServerNotRunning
	}

	if err := r.client.Close(); err != nil {
		return types.WrapError(err, "failed to close redis client")
	}

	r.logger.Info("Redis cache stopped gracefully")
	return nil
}

func (r *RedisCache) IsRunning() bool {
	return atomic.LoadInt32(&r.started) == 1
}

func (r *RedisCache) fullKey(key string) string {
	return r.config.KeyPrefix + ":" + key
}
