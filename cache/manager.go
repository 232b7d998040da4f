package cache

import (
	"context"
	"time"

	"github.com/saiset-co/sai-registry/types"
)

var customCacheCreators = make(map[string]types.ResponseCacheCreator)

func RegisterResponseCache(cacheName string, creator types.ResponseCacheCreator) {
	customCacheCreators[cacheName] = creator
}

func NewResponseCache(ctx context.Context, config types.ConfigManager, logger types.Logger, metrics types.MetricsManager) (types.ResponseCache, error) {
	cacheConfig := config.GetConfig().Cache

	if cacheConfig == nil || !cacheConfig.Enabled {
		return nil, types.ErrCacheIsDisabled
	}

	var impl types.ResponseCache
	var err error

	switch cacheConfig.Type {
	case "memory":
		impl, err = NewMemoryCache(ctx, logger, cacheConfig)
	case "redis":
		impl, err = NewRedisCache(ctx, logger, cacheConfig)
	default:
		if creator, exists := customCacheCreators[cacheConfig.Type]; exists {
			impl, err = creator(cacheConfig)
		} else {
			return nil, types.Errorf(types.ErrCacheTypeUnknown, "type: %s", cacheConfig.Type)
		}
	}

	if err != nil {
		return nil, err
	}

	return newInstrumentedResponseCache(metrics, impl), nil
}

type instrumentedResponseCache struct {
	impl    types.ResponseCache
	metrics types.MetricsManager
}

func newInstrumentedResponseCache(metrics types.MetricsManager, impl types.ResponseCache) types.ResponseCache {
	if metrics == nil {
		return impl
	}

	return &instrumentedResponseCache{
		impl:    impl,
		metrics: metrics,
	}
}

func (ic *instrumentedResponseCache) Get(key string) (interface{}, bool) {
	start := time.Now()
	value, exists := ic.impl.Get(key)

	result := "miss"
	if exists {
		result = "hit"
	}

	ic.recordMetric("get", result, time.Since(start))
	return value, exists
}

func (ic *instrumentedResponseCache) Set(key string, value interface{}, ttl time.Duration) error {
	start := time.Now()
	err := ic.impl.Set(key, value, ttl)
	ic.recordMetric("set", resultOf(err), time.Since(start))
	return err
}

func (ic *instrumentedResponseCache) Delete(key string) error {
	start := time.Now()
	err := ic.impl.Delete(key)
	ic.recordMetric("delete", resultOf(err), time.Since(start))
	return err
}

func (ic *instrumentedResponseCache) InvalidatePrefix(prefix string) error {
	start := time.Now()
	err := ic.impl.InvalidatePrefix(prefix)
	ic.recordMetric("invalidate", resultOf(err), time.Since(start))
	return err
}

func (ic *instrumentedResponseCache) Sweep() int {
	start := time.Now()
	removed := ic.impl.Sweep()
	ic.recordMetric("sweep", "success", time.Since(start))
	return removed
}

func (ic *instrumentedResponseCache) Start() error {
	return ic.impl.Start()
}

func (ic *instrumentedResponseCache) Stop() error {
	return ic.impl.Stop()
}

func (ic *instrumentedResponseCache) IsRunning() bool {
	return ic.impl.IsRunning()
}

func (ic *instrumentedResponseCache) recordMetric(operation, result string, duration time.Duration) {
	opCounter := ic.metrics.Counter("cache_operations_total", map[string]string{
		"operation": operation,
		"result":    result,
	})
	opCounter.Inc()

	opDuration := ic.metrics.Histogram("cache_operation_duration_seconds",
		[]float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		map[string]string{"operation": operation},
	)
	opDuration.Observe(duration.Seconds())
}

func resultOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
