package server

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

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

type FastHTTPServer struct {
	ctx             context.Context
	cancel          context.CancelFunc
	config          types.ConfigManager
	logger          types.Logger
	middlewares     types.MiddlewareManager
	router          types.HTTPRouter
	server          *fasthttp.Server
	listener        net.Listener
	httpConfig      *types.HTTPConfig
	state           atomic.Value
	shutdownTimeout time.Duration
}

func NewHTTPServer(
	ctx context.Context,
	config types.ConfigManager,
	logger types.Logger,
	middlewares types.MiddlewareManager,
	router types.HTTPRouter) (*FastHTTPServer, error) {
	serverCtx, cancel := context.WithCancel(ctx)

	shutdownTimeout := 5 * time.Second
	httpConfig := config.GetConfig().Server.HTTP
	if httpConfig.ShutdownTimeout > 0 {
		shutdownTimeout = time.Duration(httpConfig.ShutdownTimeout) * time.Second
	}

	server := &FastHTTPServer{
		ctx:             serverCtx,
		cancel:          cancel,
		config:          config,
		logger:          logger,
		middlewares:     middlewares,
		router:          router,
		httpConfig:      httpConfig,
		shutdownTimeout: shutdownTimeout,
	}

	server.state.Store(StateStopped)

	return server, nil
}

func (h *FastHTTPServer) Start() error {
	if !h.state.CompareAndSwap(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	h.server = &fasthttp.Server{
		Handler:                      h.mainHandler(),
		ReadTimeout:                  time.Duration(h.httpConfig.ReadTimeout) * time.Second,
		WriteTimeout:                 time.Duration(h.httpConfig.WriteTimeout) * time.Second,
		IdleTimeout:                  time.Duration(h.httpConfig.IdleTimeout) * time.Second,
		TCPKeepalive:                 true,
		DisablePreParseMultipartForm: true,
		CloseOnShutdown:              true,
	}

	addr := fmt.Sprintf("%s:%d", h.httpConfig.Host, h.httpConfig.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		h.state.Store(StateStopped)
		return types.WrapError(err, "failed to listen on "+addr)
	}
	h.listener = listener

	go func() {
		if err := h.server.Serve(h.listener); err != nil {
			if h.getState() == StateRunning {
				h.logger.Error("HTTP server failed", zap.Error(err))
				h.state.Store(StateStopped)
			}
		}
	}()

	h.state.CompareAndSwap(StateStarting, StateRunning)
	h.logger.Info("HTTP server started", zap.String("address", addr))

	return nil
}

func (h *FastHTTPServer) Stop() error {
	if !h.state.CompareAndSwap(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}

	defer func() {
		h.state.Store(StateStopped)
		h.cancel()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if h.server != nil {
			return h.server.ShutdownWithContext(ctx)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		select {
		case <-gCtx.Done():
			h.logger.Warn("HTTP server stop timeout")
		default:
			h.logger.Error("Error during server shutdown", zap.Error(err))
		}
		return nil
	}

	h.logger.Info("HTTP server stopped gracefully")
	return nil
}

func (h *FastHTTPServer) IsRunning() bool {
	return h.getState() == StateRunning
}

func (h *FastHTTPServer) getState() State {
	return h.state.Load().(State)
}

func (h *FastHTTPServer) mainHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		method := string(ctx.Method())
		path := string(ctx.Path())

		handler, config, params := h.router.Lookup(method, path)
		if handler == nil {
			utils.CreateNotFoundResponse(ctx)
			return
		}

		for name, value := range params {
			ctx.SetUserValue(name, value)
		}

		if h.middlewares != nil {
			h.middlewares.Execute(ctx, handler, config)
			return
		}
		handler(ctx)
	}
}
