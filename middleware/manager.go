package middleware

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/valyala/fasthttp"

	"github.com/saiset-co/sai-registry/types"
)

const MaxMiddlewares = 64

type Manager struct {
	ctx         context.Context
	config      types.ConfigManager
	logger      types.Logger
	metrics     types.MetricsManager
	cache       types.ResponseCache
	ordered     []types.Middleware
	byName      map[string]types.Middleware
	mu          sync.Mutex
	initialized int32
}

func NewManager(ctx context.Context, config types.ConfigManager, logger types.Logger, metrics types.MetricsManager, cache types.ResponseCache) (*Manager, error) {
	return &Manager{
		ctx:     ctx,
		config:  config,
		logger:  logger,
		metrics: metrics,
		cache:   cache,
		byName:  make(map[string]types.Middleware),
	}, nil
}

func (m *Manager) RegisterMiddlewares() error {
	config := m.config.GetConfig()
	if config.Middlewares == nil || !config.Middlewares.Enabled {
		return m.finalize()
	}

	if item := config.Middlewares.Recovery; item != nil && item.Enabled {
		if err := m.Register(NewRecoveryMiddleware(m.config, m.logger)); err != nil {
			return err
		}
		m.logger.Info("Recovery middleware registered")
	}

	if item := config.Middlewares.Logging; item != nil && item.Enabled {
		if err := m.Register(NewLoggingMiddleware(m.config, m.logger)); err != nil {
			return err
		}
		m.logger.Info("Logging middleware registered")
	}

	if item := config.Middlewares.Compression; item != nil && item.Enabled {
		if err := m.Register(NewCompressionMiddleware(m.config, m.logger)); err != nil {
			return err
		}
		m.logger.Info("Compression middleware registered")
	}

	if item := config.Middlewares.Cache; item != nil && item.Enabled {
		if err := m.Register(NewCacheMiddleware(m.config, m.logger, m.metrics, m.cache)); err != nil {
			return err
		}
		m.logger.Info("Cache middleware registered")
	}

	return m.finalize()
}

func (m *Manager) Register(middleware types.Middleware) error {
	if middleware == nil {
		return types.ErrMiddlewareInvalidType
	}
	if atomic.LoadInt32(&m.initialized) == 1 {
		return types.NewErrorf("cannot register middleware after finalization")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.byName) >= MaxMiddlewares {
		return types.NewErrorf("maximum middleware count exceeded: %d", MaxMiddlewares)
	}
	if _, exists := m.byName[middleware.Name()]; exists {
		return types.NewErrorf("middleware already registered: %s", middleware.Name())
	}

	m.byName[middleware.Name()] = middleware
	return nil
}

func (m *Manager) finalize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	weights := make(map[int]string, len(m.byName))
	m.ordered = make([]types.Middleware, 0, len(m.byName))
	for name, mw := range m.byName {
		if other, exists := weights[mw.Weight()]; exists {
			return types.NewErrorf("duplicate weight %d for middlewares '%s' and '%s'", mw.Weight(), other, name)
		}
		weights[mw.Weight()] = name
		m.ordered = append(m.ordered, mw)
	}

	sort.Slice(m.ordered, func(i, j int) bool {
		return m.ordered[i].Weight() < m.ordered[j].Weight()
	})

	atomic.StoreInt32(&m.initialized, 1)
	return nil
}

func (m *Manager) Execute(ctx *fasthttp.RequestCtx, handler func(*fasthttp.RequestCtx), config *types.RouteConfig) {
	if atomic.LoadInt32(&m.initialized) == 0 || len(m.ordered) == 0 {
		handler(ctx)
		return
	}

	var index int
	var next func(*fasthttp.RequestCtx)
	next = func(ctx *fasthttp.RequestCtx) {
		if index >= len(m.ordered) {
			handler(ctx)
			return
		}
		mw := m.ordered[index]
		index++
		mw.Handle(ctx, next, config)
	}

	next(ctx)
}
