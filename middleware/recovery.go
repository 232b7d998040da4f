package middleware

import (
	"runtime"
	"sync"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-registry/types"
	"github.com/saiset-co/sai-registry/utils"
)

type RecoveryMiddleware struct {
	config         types.ConfigManager
	logger         types.Logger
	weight         int
	recoveryConfig *RecoveryConfig
	stackBufPool   sync.Pool
}

type RecoveryConfig struct {
	StackTrace bool `json:"stack_trace"`
}

func NewRecoveryMiddleware(config types.ConfigManager, logger types.Logger) *RecoveryMiddleware {
	var recoveryConfig = &RecoveryConfig{
		StackTrace: true,
	}

	if params := config.GetConfig().Middlewares.Recovery.Params; params != nil {
		if err := utils.UnmarshalConfig(params, recoveryConfig); err != nil {
			logger.Error("Failed to unmarshal recovery middleware config", zap.Error(err))
		}
	}

	return &RecoveryMiddleware{
		config:         config,
		logger:         logger,
		weight:         config.GetConfig().Middlewares.Recovery.Weight,
		recoveryConfig: recoveryConfig,
		stackBufPool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, 4096)
				return &buf
			},
		},
	}
}

func (r *RecoveryMiddleware) Name() string { return "recovery" }
func (r *RecoveryMiddleware) Weight() int  { return r.weight }

func (r *RecoveryMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	defer func() {
		if rec := recover(); rec != nil {
			var stack string
			if r.recoveryConfig.StackTrace {
				stack = r.getStackTrace()
			}

			fields := []zap.Field{
				zap.Any("panic", rec),
				zap.ByteString("method", ctx.Method()),
				zap.ByteString("path", ctx.Path()),
			}
			if stack != "" {
				fields = append(fields, zap.String("stack", stack))
			}
			if requestID := ctx.Request.Header.Peek("X-Request-ID"); len(requestID) > 0 {
				fields = append(fields, zap.ByteString("request_id", requestID))
			}

			r.logger.Error("Recovered from panic", fields...)
			utils.CreateErrorResponse(ctx)
		}
	}()

	next(ctx)
}

func (r *RecoveryMiddleware) getStackTrace() string {
	buf := r.stackBufPool.Get().(*[]byte)
	defer r.stackBufPool.Put(buf)

	n := runtime.Stack(*buf, false)
	if n == len(*buf) {
		bigBuf := make([]byte, 65536)
		n = runtime.Stack(bigBuf, false)
		return string(bigBuf[:n])
	}

	return string((*buf)[:n])
}
