package server

import (
	"strings"
	"sync"
	"time"

	"github.com/saiset-co/sai-registry/types"
)

// Router resolves static paths with one map lookup and falls back to
// segment matching for parameterized patterns. Static routes win over
// parameterized ones, so /api/codes/expired is never captured by
// /api/codes/{id}.
type Router struct {
	mu      sync.RWMutex
	static  map[string]*types.RouteDefinition
	dynamic []*dynamicRoute
	routes  []*types.RouteDefinition
}

type dynamicRoute struct {
	method     string
	segments   []string
	paramNames []string
	definition *types.RouteDefinition
}

type routeBuilder struct {
	config *types.RouteConfig
}

func NewRouter() *Router {
	return &Router{
		static: make(map[string]*types.RouteDefinition),
	}
}

func (r *Router) Add(method, path string, handler types.FastHTTPHandler, config *types.RouteConfig) {
	if config == nil {
		config = &types.RouteConfig{}
	}

	definition := &types.RouteDefinition{
		Method:  method,
		Path:    path,
		Handler: handler,
		Config:  config,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes = append(r.routes, definition)

	if !strings.ContainsAny(path, "{}") {
		r.static[method+":"+normalizePath(path)] = definition
		return
	}

	segments := pathSegments(path)
	paramNames := make([]string, 0, 2)
	for _, segment := range segments {
		if isParam(segment) {
			paramNames = append(paramNames, segment[1:len(segment)-1])
		}
	}

	r.dynamic = append(r.dynamic, &dynamicRoute{
		method:     method,
		segments:   segments,
		paramNames: paramNames,
		definition: definition,
	})
}

func (r *Router) GET(path string, handler types.FastHTTPHandler) types.RouteBuilder {
	return r.add("GET", path, handler)
}

func (r *Router) POST(path string, handler types.FastHTTPHandler) types.RouteBuilder {
	return r.add("POST", path, handler)
}

func (r *Router) PUT(path string, handler types.FastHTTPHandler) types.RouteBuilder {
	return r.add("PUT", path, handler)
}

func (r *Router) DELETE(path string, handler types.FastHTTPHandler) types.RouteBuilder {
	return r.add("DELETE", path, handler)
}

func (r *Router) add(method, path string, handler types.FastHTTPHandler) types.RouteBuilder {
	config := &types.RouteConfig{}
	r.Add(method, path, handler, config)
	return &routeBuilder{config: config}
}

func (r *Router) Lookup(method, path string) (types.FastHTTPHandler, *types.RouteConfig, map[string]string) {
	path = normalizePath(path)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if definition, ok := r.static[method+":"+path]; ok {
		return definition.Handler, definition.Config, nil
	}

	segments := pathSegments(path)
	for _, route := range r.dynamic {
		if route.method != method || len(route.segments) != len(segments) {
			continue
		}
		if params := matchSegments(route, segments); params != nil {
			return route.definition.Handler, route.definition.Config, params
		}
	}

	return nil, nil, nil
}

func (r *Router) GetAllRoutes() []*types.RouteDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make([]*types.RouteDefinition, len(r.routes))
	copy(routes, r.routes)
	return routes
}

func (b *routeBuilder) WithCache(ttl time.Duration) types.RouteBuilder {
	b.config.Cache = &types.CacheRouteConfig{Enabled: true, TTL: ttl}
	return b
}

func (b *routeBuilder) WithoutCache() types.RouteBuilder {
	b.config.Cache = &types.CacheRouteConfig{Enabled: false}
	return b
}

func (b *routeBuilder) WithInvalidate(prefixes ...string) types.RouteBuilder {
	b.config.InvalidatePrefixes = append(b.config.InvalidatePrefixes, prefixes...)
	return b
}

func matchSegments(route *dynamicRoute, segments []string) map[string]string {
	var params map[string]string
	paramIdx := 0

	for i, routeSegment := range route.segments {
		if isParam(routeSegment) {
			if params == nil {
				params = make(map[string]string, len(route.paramNames))
			}
			params[route.paramNames[paramIdx]] = segments[i]
			paramIdx++
			continue
		}
		if routeSegment != segments[i] {
			return nil
		}
	}

	if params == nil {
		params = map[string]string{}
	}
	return params
}

func isParam(segment string) bool {
	return len(segment) > 2 && segment[0] == '{' && segment[len(segment)-1] == '}'
}

func normalizePath(path string) string {
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return strings.TrimRight(path, "/")
	}
	return path
}

func pathSegments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return []string{}
	}
	return strings.Split(path, "/")
}
