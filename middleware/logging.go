package middleware

import (
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-registry/types"
	"github.com/saiset-co/sai-registry/utils"
)

type LoggingMiddleware struct {
	config        types.ConfigManager
	logger        types.Logger
	weight        int
	loggingConfig *LoggingConfig
}

type LoggingConfig struct {
	LogLevel string `json:"log_level"`
	LogBody  bool   `json:"log_body"`
}

func NewLoggingMiddleware(config types.ConfigManager, logger types.Logger) *LoggingMiddleware {
	var loggingConfig = &LoggingConfig{
		LogLevel: "info",
		LogBody:  false,
	}

	if params := config.GetConfig().Middlewares.Logging.Params; params != nil {
		if err := utils.UnmarshalConfig(params, loggingConfig); err != nil {
			logger.Error("Failed to unmarshal logging middleware config", zap.Error(err))
		}
	}

	return &LoggingMiddleware{
		config:        config,
		logger:        logger,
		weight:        config.GetConfig().Middlewares.Logging.Weight,
		loggingConfig: loggingConfig,
	}
}

func (l *LoggingMiddleware) Name() string { return "logging" }
func (l *LoggingMiddleware) Weight() int  { return l.weight }

func (l *LoggingMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	start := time.Now()

	next(ctx)

	duration := time.Since(start)

	fields := []zap.Field{
		zap.String("method", string(ctx.Method())),
		zap.String("path", string(ctx.Path())),
		zap.Int("status", ctx.Response.StatusCode()),
		zap.Duration("duration", duration),
		zap.String("remote_addr", l.getRemoteAddr(ctx)),
	}

	if len(ctx.QueryArgs().QueryString()) > 0 {
		fields = append(fields, zap.String("query", string(ctx.QueryArgs().QueryString())))
	}
	if requestID := string(ctx.Request.Header.Peek("X-Request-ID")); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if l.loggingConfig.LogBody && len(ctx.Response.Body()) > 0 {
		body := ctx.Response.Body()
		if len(body) > 1000 {
			fields = append(fields, zap.String("response", string(body[:1000])+"..."))
		} else {
			fields = append(fields, zap.String("response", string(body)))
		}
	}

	switch {
	case ctx.Response.StatusCode() >= 500:
		l.logger.Error("Request completed", fields...)
	case ctx.Response.StatusCode() >= 400:
		l.logger.Warn("Request completed", fields...)
	default:
		l.logWithLevel("Request completed", fields...)
	}
}

func (l *LoggingMiddleware) getRemoteAddr(ctx *fasthttp.RequestCtx) string {
	if forwarded := string(ctx.Request.Header.Peek("X-Forwarded-For")); forwarded != "" {
		if comma := strings.Index(forwarded, ","); comma > 0 {
			return strings.TrimSpace(forwarded[:comma])
		}
		return forwarded
	}

	if realIP := string(ctx.Request.Header.Peek("X-Real-IP")); realIP != "" {
		return realIP
	}

	return ctx.RemoteIP().String()
}

func (l *LoggingMiddleware) logWithLevel(msg string, fields ...zap.Field) {
	switch l.loggingConfig.LogLevel {
	case "debug":
		l.logger.Debug(msg, fields...)
	case "warn":
		l.logger.Warn(msg, fields...)
	case "error":
		l.logger.Error(msg, fields...)
	default:
		l.logger.Info(msg, fields...)
	}
}
