package middleware

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/saiset-co/sai-registry/cache"
	"github.com/saiset-co/sai-registry/logger"
	"github.com/saiset-co/sai-registry/types"
)

type stubConfig struct {
	cfg *types.ServiceConfig
}

func (s *stubConfig) Load() error                          { return nil }
func (s *stubConfig) GetConfig() *types.ServiceConfig      { return s.cfg }
func (s *stubConfig) GetValue(string, interface{}) interface{} { return nil }

func newTestConfig() *stubConfig {
	return &stubConfig{cfg: &types.ServiceConfig{
		Name:    "sai-registry",
		Version: "test",
		Cache: &types.CacheConfig{
			Enabled:    true,
			Type:       "memory",
			DefaultTTL: 5 * time.Minute,
			RouteTTL:   map[string]int{"GET /api/uncached": 0},
		},
		Middlewares: &types.MiddlewaresConfig{
			Enabled:     true,
			Logging:     &types.MiddlewareItemConfig{Enabled: true, Weight: 20},
			Cache:       &types.MiddlewareItemConfig{Enabled: true, Weight: 40},
			Recovery:    &types.MiddlewareItemConfig{Enabled: true, Weight: 10},
			Compression: &types.MiddlewareItemConfig{Enabled: false, Weight: 30},
		},
	}}
}

func newCacheMiddleware(t *testing.T) (*CacheMiddleware, types.ResponseCache) {
	t.Helper()

	log := logger.NewNopLogger()
	responseCache, err := cache.NewMemoryCache(context.Background(), log, &types.CacheConfig{
		Enabled: true,
		Type:    "memory",
	})
	if err != nil {
		t.Fatalf("NewMemoryCache failed: %v", err)
	}

	return NewCacheMiddleware(newTestConfig(), log, nil, responseCache), responseCache
}

func newRequestCtx(method, uri string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	return ctx
}

func jsonHandler(body *string, calls *int) func(*fasthttp.RequestCtx) {
	return func(ctx *fasthttp.RequestCtx) {
		*calls++
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(*body)
	}
}

func TestCacheMiddleware_MemoizesReads(t *testing.T) {
	mw, _ := newCacheMiddleware(t)

	body := `{"value":1}`
	calls := 0
	handler := jsonHandler(&body, &calls)

	first := newRequestCtx(fasthttp.MethodGet, "/api/codes?page=1")
	mw.Handle(first, handler, nil)
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}

	second := newRequestCtx(fasthttp.MethodGet, "/api/codes?page=1")
	mw.Handle(second, handler, nil)
	if calls != 1 {
		t.Errorf("handler calls = %d after cached read, want 1", calls)
	}
	if string(second.Response.Body()) != body {
		t.Errorf("cached body = %q, want %q", second.Response.Body(), body)
	}
	if string(second.Response.Header.Peek("X-Cache")) != "HIT" {
		t.Error("cached response missing X-Cache header")
	}
	if string(second.Response.Header.ContentType()) != "application/json" {
		t.Errorf("cached content type = %q", second.Response.Header.ContentType())
	}

	// A different query string is a different key.
	third := newRequestCtx(fasthttp.MethodGet, "/api/codes?page=2")
	mw.Handle(third, handler, nil)
	if calls != 2 {
		t.Errorf("handler calls = %d for distinct query, want 2", calls)
	}
}

func TestCacheMiddleware_WriteInvalidatesBeforeTTL(t *testing.T) {
	mw, _ := newCacheMiddleware(t)

	body := `{"value":1}`
	calls := 0
	handler := jsonHandler(&body, &calls)

	mw.Handle(newRequestCtx(fasthttp.MethodGet, "/api/codes"), handler, nil)

	body = `{"value":2}`
	writeConfig := &types.RouteConfig{InvalidatePrefixes: []string{"/api/codes"}}
	mw.Handle(newRequestCtx(fasthttp.MethodPost, "/api/codes"), func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusCreated)
	}, writeConfig)

	read := newRequestCtx(fasthttp.MethodGet, "/api/codes")
	mw.Handle(read, handler, nil)
	if string(read.Response.Body()) != `{"value":2}` {
		t.Errorf("read after write returned %q, want the written value", read.Response.Body())
	}
}

func TestCacheMiddleware_WritePathPrefixCoversItself(t *testing.T) {
	mw, _ := newCacheMiddleware(t)

	body := `{"value":1}`
	calls := 0
	handler := jsonHandler(&body, &calls)

	mw.Handle(newRequestCtx(fasthttp.MethodGet, "/api/codes/42"), handler, nil)

	// No declared prefixes: the write's own normalized path still drops
	// the detail read.
	body = `{"value":2}`
	mw.Handle(newRequestCtx(fasthttp.MethodPut, "/api/codes/42"), func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
	}, nil)

	read := newRequestCtx(fasthttp.MethodGet, "/api/codes/42")
	mw.Handle(read, handler, nil)
	if string(read.Response.Body()) != `{"value":2}` {
		t.Errorf("read after write returned %q, want the written value", read.Response.Body())
	}
}

func TestCacheMiddleware_RouteTTLZeroDisables(t *testing.T) {
	mw, _ := newCacheMiddleware(t)

	body := `{"value":1}`
	calls := 0
	handler := jsonHandler(&body, &calls)

	mw.Handle(newRequestCtx(fasthttp.MethodGet, "/api/uncached"), handler, nil)
	mw.Handle(newRequestCtx(fasthttp.MethodGet, "/api/uncached"), handler, nil)
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2 for a disabled route", calls)
	}
}

func TestCacheMiddleware_ErrorResponsesNotCached(t *testing.T) {
	mw, _ := newCacheMiddleware(t)

	calls := 0
	failing := func(ctx *fasthttp.RequestCtx) {
		calls++
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"error":"Not Found"}`)
	}

	mw.Handle(newRequestCtx(fasthttp.MethodGet, "/api/codes/missing"), failing, nil)
	mw.Handle(newRequestCtx(fasthttp.MethodGet, "/api/codes/missing"), failing, nil)
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2 for error responses", calls)
	}
}

func TestManager_OrdersByWeight(t *testing.T) {
	log := logger.NewNopLogger()
	manager, err := NewManager(context.Background(), newTestConfig(), log, nil, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	var order []string
	for _, spec := range []struct {
		name   string
		weight int
	}{
		{"outer", 10},
		{"inner", 30},
		{"middle", 20},
	} {
		spec := spec
		if err := manager.Register(&recordingMiddleware{name: spec.name, weight: spec.weight, order: &order}); err != nil {
			t.Fatalf("Register(%s) failed: %v", spec.name, err)
		}
	}
	if err := manager.finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	manager.Execute(newRequestCtx(fasthttp.MethodGet, "/"), func(ctx *fasthttp.RequestCtx) {
		order = append(order, "handler")
	}, nil)

	want := []string{"outer", "middle", "inner", "handler"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("execution order = %v, want %v", order, want)
	}
}

func TestManager_RejectsDuplicateWeight(t *testing.T) {
	log := logger.NewNopLogger()
	manager, err := NewManager(context.Background(), newTestConfig(), log, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	var order []string
	if err := manager.Register(&recordingMiddleware{name: "a", weight: 10, order: &order}); err != nil {
		t.Fatal(err)
	}
	if err := manager.Register(&recordingMiddleware{name: "b", weight: 10, order: &order}); err != nil {
		t.Fatal(err)
	}
	if err := manager.finalize(); err == nil {
		t.Error("duplicate weights accepted")
	}
}

type recordingMiddleware struct {
	name   string
	weight int
	order  *[]string
}

func (r *recordingMiddleware) Name() string { return r.name }
func (r *recordingMiddleware) Weight() int  { return r.weight }

func (r *recordingMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	*r.order = append(*r.order, r.name)
	next(ctx)
}
