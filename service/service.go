package service

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/saiset-co/sai-registry/cache"
	"github.com/saiset-co/sai-registry/config"
	"github.com/saiset-co/sai-registry/cron"
	"github.com/saiset-co/sai-registry/expiry"
	"github.com/saiset-co/sai-registry/lifecycle"
	"github.com/saiset-co/sai-registry/logger"
	"github.com/saiset-co/sai-registry/metrics"
	"github.com/saiset-co/sai-registry/middleware"
	"github.com/saiset-co/sai-registry/registry"
	"github.com/saiset-co/sai-registry/sai"
	"github.com/saiset-co/sai-registry/server"
	"github.com/saiset-co/sai-registry/store"
	"github.com/saiset-co/sai-registry/types"
	"github.com/saiset-co/sai-registry/utils"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

type Service struct {
	ctx             context.Context
	cancel          context.CancelFunc
	configPath      string
	done            chan struct{}
	wg              sync.WaitGroup
	state           atomic.Value
	shutdownTimeout time.Duration
	container       *sai.Container
}

func NewService(ctx context.Context, configPath string) (*Service, error) {
	if configPath == "" {
		return nil, types.ErrConfigInvalidPath
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, types.WrapError(err, "config file does not exist")
	}

	serviceCtx, cancel := context.WithCancel(ctx)
	container := sai.InitContainer()

	service := &Service{
		ctx:             serviceCtx,
		cancel:          cancel,
		configPath:      configPath,
		container:       container,
		done:            make(chan struct{}),
		shutdownTimeout: 30 * time.Second,
	}

	service.state.Store(StateStopped)

	if err := service.registerComponents(); err != nil {
		cancel()
		return nil, types.WrapError(err, "failed to register components")
	}

	sai.SetContainer(container)
	return service, nil
}

// Run starts every component and blocks until the context is cancelled or a
// shutdown signal arrives, then stops the components in reverse order.
func (s *Service) Run() error {
	if !s.state.CompareAndSwap(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	sai.Logger().Info("Starting service")

	if err := s.startComponents(); err != nil {
		s.state.Store(StateStopped)
		return types.WrapError(err, "failed to start components")
	}

	s.state.Store(StateRunning)
	s.setupSignalHandling()

	s.wg.Add(1)
	go s.contextMonitor()

	sai.Logger().Info("Service started successfully")

	<-s.done

	if err := s.stopComponents(); err != nil {
		sai.Logger().Error("Error during service shutdown", zap.Error(err))
	}

	s.wg.Wait()
	s.state.Store(StateStopped)

	sai.Logger().Info("Service stopped gracefully")
	return nil
}

func (s *Service) Stop() error {
	if !s.state.CompareAndSwap(StateRunning, StateStopping) {
		return types.ErrServiceIsNotRunning
	}

	sai.Logger().Info("Stopping service...")
	s.cancel()

	return nil
}

func (s *Service) IsRunning() bool {
	return s.state.Load().(State) == StateRunning
}

func (s *Service) registerComponents() error {
	configManager, err := config.NewConfigurationManager(s.configPath)
	if err != nil {
		return types.WrapError(err, "failed to register config manager")
	}
	s.container.SetConfig(configManager)

	serviceConfig := configManager.GetConfig()

	log, err := logger.NewLogger(serviceConfig.Logger)
	if err != nil {
		return types.WrapError(err, "failed to register logger")
	}
	s.container.SetLogger(log)

	router := server.NewRouter()
	s.container.SetRouter(router)

	var metricsManager types.MetricsManager
	if serviceConfig.Metrics != nil && serviceConfig.Metrics.Enabled {
		metricsManager, err = metrics.NewManager(configManager, log)
		if err != nil {
			return types.WrapError(err, "failed to register metrics manager")
		}
		s.container.SetMetrics(metricsManager)

		router.GET(serviceConfig.Metrics.Path, metricsManager.Handler()).WithoutCache()
	}

	entityStore, err := store.NewEntityStore(s.ctx, configManager, log)
	if err != nil {
		return types.WrapError(err, "failed to register entity store")
	}
	s.container.SetStore(entityStore)

	var responseCache types.ResponseCache
	responseCache, err = cache.NewResponseCache(s.ctx, configManager, log, metricsManager)
	if err != nil {
		if !types.IsError(err, types.ErrCacheIsDisabled) {
			return types.WrapError(err, "failed to register response cache")
		}
		responseCache = nil
		log.Info("Response cache disabled, requests go straight to the store")
	} else {
		s.container.SetCache(responseCache)
	}

	middlewareManager, err := middleware.NewManager(s.ctx, configManager, log, metricsManager, responseCache)
	if err != nil {
		return types.WrapError(err, "failed to register middleware manager")
	}
	if err := middlewareManager.RegisterMiddlewares(); err != nil {
		return types.WrapError(err, "failed to register middlewares")
	}
	s.container.SetMiddlewares(middlewareManager)

	clock := expiry.SystemClock{}
	lifecycleManager := lifecycle.NewManager(entityStore, responseCache, log)
	registryService := registry.New(entityStore, lifecycleManager, clock, log)
	registryService.RegisterRoutes(router)

	router.GET("/health", healthHandler(serviceConfig)).WithoutCache()

	if serviceConfig.Cron != nil && serviceConfig.Cron.Enabled {
		cronManager, err := cron.NewManager(s.ctx, configManager, log, metricsManager)
		if err != nil {
			return types.WrapError(err, "failed to register cron manager")
		}

		calc := expiry.NewCalculator(clock)
		if err := cron.RegisterJobs(s.ctx, cronManager, serviceConfig.Cron, responseCache, entityStore, calc, log); err != nil {
			return types.WrapError(err, "failed to register cron jobs")
		}
		s.container.SetCron(cronManager)
	}

	httpServer, err := server.NewHTTPServer(s.ctx, configManager, log, middlewareManager, router)
	if err != nil {
		return types.WrapError(err, "failed to register HTTP server")
	}
	s.container.SetHTTPServer(httpServer)

	return nil
}

func (s *Service) startComponents() error {
	if ptr := s.container.Metrics.Load(); ptr != nil {
		if err := (*ptr).Start(); err != nil {
			return types.WrapError(err, "failed to start metrics manager")
		}
	}

	if ptr := s.container.Store.Load(); ptr != nil {
		if err := (*ptr).Start(); err != nil {
			return types.WrapError(err, "failed to start entity store")
		}
	}

	if ptr := s.container.Cache.Load(); ptr != nil {
		if err := (*ptr).Start(); err != nil {
			return types.WrapError(err, "failed to start response cache")
		}
	}

	if ptr := s.container.HTTPServer.Load(); ptr != nil {
		if err := (*ptr).Start(); err != nil {
			return types.WrapError(err, "failed to start HTTP server")
		}
	}

	if ptr := s.container.Cron.Load(); ptr != nil {
		if err := (*ptr).Start(); err != nil {
			return types.WrapError(err, "failed to start cron manager")
		}
	}

	return nil
}

func (s *Service) stopComponents() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	var errs []error

	if ptr := s.container.Cron.Load(); ptr != nil {
		if err := (*ptr).Stop(); err != nil {
			sai.Logger().Error("Failed to stop cron manager", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if ptr := s.container.HTTPServer.Load(); ptr != nil {
		if err := (*ptr).Stop(); err != nil {
			sai.Logger().Error("Failed to stop HTTP server", zap.Error(err))
			errs = append(errs, err)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	if ptr := s.container.Cache.Load(); ptr != nil {
		manager := *ptr
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				return manager.Stop()
			}
		})
	}

	if ptr := s.container.Store.Load(); ptr != nil {
		manager := *ptr
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				return manager.Stop()
			}
		})
	}

	if ptr := s.container.Metrics.Load(); ptr != nil {
		manager := *ptr
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				return manager.Stop()
			}
		})
	}

	if err := g.Wait(); err != nil {
		select {
		case <-ctx.Done():
			sai.Logger().Warn("Component shutdown timeout, some components may not have stopped gracefully")
		default:
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return types.NewErrorf("errors during shutdown: %v", errs)
	}

	return nil
}

func (s *Service) setupSignalHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case sig := <-sigChan:
			sai.Logger().Info("Received shutdown signal", zap.String("signal", sig.String()))
			if s.state.CompareAndSwap(StateRunning, StateStopping) {
				s.cancel()
			}
		case <-s.ctx.Done():
		}

		signal.Stop(sigChan)
		close(sigChan)
	}()
}

func (s *Service) contextMonitor() {
	defer s.wg.Done()
	defer close(s.done)

	<-s.ctx.Done()
}

func healthHandler(serviceConfig *types.ServiceConfig) types.FastHTTPHandler {
	return func(ctx *fasthttp.RequestCtx) {
		utils.WriteJSON(ctx, fasthttp.StatusOK, map[string]string{
			"status":  "ok",
			"name":    serviceConfig.Name,
			"version": serviceConfig.Version,
		})
	}
}
