package middleware

import (
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-registry/cache"
	"github.com/saiset-co/sai-registry/types"
	"github.com/saiset-co/sai-registry/utils"
)

type CacheMiddleware struct {
	config     types.ConfigManager
	logger     types.Logger
	metrics    types.MetricsManager
	cache      types.ResponseCache
	weight     int
	defaultTTL time.Duration
}

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

func NewCacheMiddleware(config types.ConfigManager, logger types.Logger, metrics types.MetricsManager, responseCache types.ResponseCache) *CacheMiddleware {
	defaultTTL := 5 * time.Minute
	if cacheConfig := config.GetConfig().Cache; cacheConfig != nil && cacheConfig.DefaultTTL > 0 {
		defaultTTL = cacheConfig.DefaultTTL
	}

	return &CacheMiddleware{
		config:     config,
		logger:     logger,
		metrics:    metrics,
		cache:      responseCache,
		weight:     config.GetConfig().Middlewares.Cache.Weight,
		defaultTTL: defaultTTL,
	}
}

func (c *CacheMiddleware) Name() string { return "cache" }
func (c *CacheMiddleware) Weight() int  { return c.weight }

func (c *CacheMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), config *types.RouteConfig) {
	if c.cache == nil {
		next(ctx)
		return
	}

	method := string(ctx.Method())
	path := string(ctx.Path())

	if method != fasthttp.MethodGet {
		c.handleWrite(ctx, next, config, method, path)
		return
	}

	ttl := c.resolveTTL(config, method, path)
	if ttl <= 0 {
		next(ctx)
		return
	}

	key := cache.BuildKey(method, path, ctx.QueryArgs())

	if value, found := c.cache.Get(key); found {
		if c.restoreResponse(ctx, value) {
			c.logger.Debug("Cache hit", zap.String("cache_key", key))
			return
		}
		// Unreadable entry: drop it and fall through to the handler.
		_ = c.cache.Delete(key)
	}

	next(ctx)

	if !c.shouldCacheResponse(ctx) {
		return
	}

	envelope, err := utils.Marshal(&cachedResponse{
		Status:      ctx.Response.StatusCode(),
		ContentType: string(ctx.Response.Header.ContentType()),
		Body:        append([]byte(nil), ctx.Response.Body()...),
	})
	if err != nil {
		c.logger.Error("Failed to marshal cached response", zap.Error(err))
		return
	}

	if err := c.cache.Set(key, utils.BytesToString(envelope), ttl); err != nil {
		c.logger.Error("Failed to set cache", zap.String("cache_key", key), zap.Error(err))
		return
	}
	c.logger.Debug("Cache set", zap.String("cache_key", key), zap.Duration("ttl", ttl))
}

// handleWrite drops every affected read prefix on both sides of the
// handler. The pre-invalidation removes entries a stale value could hide
// behind while the write runs; the post-invalidation removes entries a
// concurrent read may have stored mid-write. A read after the write
// completes can therefore never observe the pre-write value.
func (c *CacheMiddleware) handleWrite(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), config *types.RouteConfig, method, path string) {
	prefixes := c.writePrefixes(config, path)

	c.invalidate(prefixes)
	next(ctx)
	c.invalidate(prefixes)

	c.logger.Debug("Write invalidation",
		zap.String("method", method),
		zap.String("path", path),
		zap.Strings("prefixes", prefixes))
}

func (c *CacheMiddleware) writePrefixes(config *types.RouteConfig, path string) []string {
	prefixes := []string{cache.ReadPrefix(path)}
	if config != nil {
		for _, declared := range config.InvalidatePrefixes {
			prefixes = append(prefixes, cache.ReadPrefix(declared))
		}
	}
	return prefixes
}

func (c *CacheMiddleware) invalidate(prefixes []string) {
	for _, prefix := range prefixes {
		if err := c.cache.InvalidatePrefix(prefix); err != nil {
			c.logger.Warn("Cache invalidation failed", zap.String("prefix", prefix), zap.Error(err))
		}
	}
}

// resolveTTL prefers the route's explicit cache setting, then the
// configured per-route override, then the global default. A zero override
// disables the route.
func (c *CacheMiddleware) resolveTTL(config *types.RouteConfig, method, path string) time.Duration {
	if config != nil && config.Cache != nil {
		if !config.Cache.Enabled {
			return 0
		}
		if config.Cache.TTL > 0 {
			return config.Cache.TTL
		}
	}

	if cacheConfig := c.config.GetConfig().Cache; cacheConfig != nil && cacheConfig.RouteTTL != nil {
		if seconds, ok := cacheConfig.RouteTTL[method+" "+path]; ok {
			return time.Duration(seconds) * time.Second
		}
	}

	return c.defaultTTL
}

func (c *CacheMiddleware) shouldCacheResponse(ctx *fasthttp.RequestCtx) bool {
	statusCode := ctx.Response.StatusCode()
	if statusCode < 200 || statusCode >= 300 {
		return false
	}
	if len(ctx.Response.Body()) == 0 {
		return false
	}

	cacheControl := strings.ToLower(string(ctx.Response.Header.Peek("Cache-Control")))
	if strings.Contains(cacheControl, "no-cache") || strings.Contains(cacheControl, "no-store") {
		return false
	}

	return true
}

func (c *CacheMiddleware) restoreResponse(ctx *fasthttp.RequestCtx, value interface{}) bool {
	raw, ok := value.(string)
	if !ok {
		return false
	}

	var cached cachedResponse
	if err := utils.Unmarshal([]byte(raw), &cached); err != nil {
		return false
	}

	ctx.SetStatusCode(cached.Status)
	ctx.SetContentType(cached.ContentType)
	ctx.SetBody(cached.Body)
	ctx.Response.Header.Set("X-Cache", "HIT")
	return true
}
