package sai

import (
	"sync/atomic"

	"github.com/saiset-co/sai-registry/cache"
	"github.com/saiset-co/sai-registry/logger"
	"github.com/saiset-co/sai-registry/metrics"
	"github.com/saiset-co/sai-registry/store"
	"github.com/saiset-co/sai-registry/types"
)

type Container struct {
	Config      atomic.Pointer[types.ConfigManager]
	Logger      atomic.Pointer[types.Logger]
	Router      atomic.Pointer[types.HTTPRouter]
	Store       atomic.Pointer[types.EntityStore]
	Cache       atomic.Pointer[types.ResponseCache]
	Metrics     atomic.Pointer[types.MetricsManager]
	Middlewares atomic.Pointer[types.MiddlewareManager]
	Cron        atomic.Pointer[types.CronManager]
	HTTPServer  atomic.Pointer[types.HTTPServer]
}

var globalContainer *Container

func InitContainer() *Container {
	return &Container{}
}

func SetContainer(container *Container) {
	globalContainer = container
}

func Config() types.ConfigManager {
	if ptr := globalContainer.Config.Load(); ptr != nil {
		return *ptr
	}
	panic("ConfigManager not initialized")
}

func Logger() types.Logger {
	if ptr := globalContainer.Logger.Load(); ptr != nil {
		return *ptr
	}
	panic("Logger not initialized")
}

func Router() types.HTTPRouter {
	if ptr := globalContainer.Router.Load(); ptr != nil {
		return *ptr
	}
	panic("Router not initialized")
}

func Store() types.EntityStore {
	if ptr := globalContainer.Store.Load(); ptr != nil {
		return *ptr
	}
	panic("EntityStore not initialized")
}

func Cache() types.ResponseCache {
	if ptr := globalContainer.Cache.Load(); ptr != nil {
		return *ptr
	}
	panic("ResponseCache not initialized")
}

func RegisterLogger(loggerName string, creator logger.LoggerCreator) {
	logger.RegisterLogger(loggerName, creator)
}

func RegisterResponseCache(cacheName string, creator types.ResponseCacheCreator) {
	cache.RegisterResponseCache(cacheName, creator)
}

func RegisterEntityStore(storeType string, creator types.EntityStoreCreator) {
	store.RegisterEntityStore(storeType, creator)
}

func RegisterMetricsManager(metricsManagerName string, creator types.MetricsManagerCreator) {
	metrics.RegisterMetricsManager(metricsManagerName, creator)
}

func (fc *Container) SetConfig(config types.ConfigManager) {
	fc.Config.Store(&config)
}

func (fc *Container) SetLogger(l types.Logger) {
	fc.Logger.Store(&l)
}

func (fc *Container) SetRouter(router types.HTTPRouter) {
	fc.Router.Store(&router)
}

func (fc *Container) SetStore(entityStore types.EntityStore) {
	fc.Store.Store(&entityStore)
}

func (fc *Container) SetCache(responseCache types.ResponseCache) {
	fc.Cache.Store(&responseCache)
}

func (fc *Container) SetMetrics(metricsManager types.MetricsManager) {
	fc.Metrics.Store(&metricsManager)
}

func (fc *Container) SetMiddlewares(middlewares types.MiddlewareManager) {
	fc.Middlewares.Store(&middlewares)
}

func (fc *Container) SetCron(cronManager types.CronManager) {
	fc.Cron.Store(&cronManager)
}

func (fc *Container) SetHTTPServer(server types.HTTPServer) {
	fc.HTTPServer.Store(&server)
}
