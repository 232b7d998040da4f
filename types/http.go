package types

import (
	"time"

	"github.com/valyala/fasthttp"
)

type FastHTTPHandler func(ctx *fasthttp.RequestCtx)

type HTTPServer interface {
	LifecycleManager
}

type HTTPRouter interface {
	Add(method, path string, handler FastHTTPHandler, config *RouteConfig)
	GET(path string, handler FastHTTPHandler) RouteBuilder
	POST(path string, handler FastHTTPHandler) RouteBuilder
	PUT(path string, handler FastHTTPHandler) RouteBuilder
	DELETE(path string, handler FastHTTPHandler) RouteBuilder
	Lookup(method, path string) (FastHTTPHandler, *RouteConfig, map[string]string)
	GetAllRoutes() []*RouteDefinition
}

type RouteBuilder interface {
	WithCache(ttl time.Duration) RouteBuilder
	WithoutCache() RouteBuilder
	WithInvalidate(prefixes ...string) RouteBuilder
}

type RouteConfig struct {
	// Cache holds the read-path TTL; nil means the route default applies,
	// TTL <= 0 disables caching for the route.
	Cache *CacheRouteConfig
	// InvalidatePrefixes lists cache key prefixes a write to this route
	// must drop, in addition to its own normalized path.
	InvalidatePrefixes []string
}

type CacheRouteConfig struct {
	Enabled bool
	TTL     time.Duration
}

type RouteDefinition struct {
	Method  string
	Path    string
	Handler FastHTTPHandler
	Config  *RouteConfig
}

type MiddlewareManager interface {
	RegisterMiddlewares() error
	Register(middleware Middleware) error
	Execute(ctx *fasthttp.RequestCtx, handler func(*fasthttp.RequestCtx), config *RouteConfig)
}

type Middleware interface {
	Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), config *RouteConfig)
	Name() string
	Weight() int
}
