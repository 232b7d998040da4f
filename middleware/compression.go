package middleware

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-registry/types"
	"github.com/saiset-co/sai-registry/utils"
)

const (
	AlgorithmGzip    = "gzip"
	AlgorithmDeflate = "deflate"
	AlgorithmBrotli  = "br"

	DefaultCompressionLevel = 6
	DefaultThreshold        = 1024
	MinCompressionRatio     = 0.05
)

type CompressionMiddleware struct {
	config            types.ConfigManager
	logger            types.Logger
	weight            int
	compressionConfig *CompressionConfig
	algorithm         []byte
	writerPool        sync.Pool
	bufferPool        sync.Pool
}

type CompressionConfig struct {
	Algorithm    string   `json:"algorithm"`
	Level        int      `json:"level"`
	Threshold    int      `json:"threshold"`
	AllowedTypes []string `json:"allowed_types"`
}

type pooledWriter interface {
	Write(p []byte) (int, error)
	Close() error
	Reset(w *bytes.Buffer)
}

type gzipResetWriter struct{ *gzip.Writer }

func (w gzipResetWriter) Reset(buf *bytes.Buffer) { w.Writer.Reset(buf) }

type flateResetWriter struct{ *flate.Writer }

func (w flateResetWriter) Reset(buf *bytes.Buffer) { w.Writer.Reset(buf) }

type brotliResetWriter struct{ *brotli.Writer }

func (w brotliResetWriter) Reset(buf *bytes.Buffer) { w.Writer.Reset(buf) }

func NewCompressionMiddleware(config types.ConfigManager, logger types.Logger) *CompressionMiddleware {
	compressionConfig := &CompressionConfig{
		Algorithm: AlgorithmBrotli,
		Level:     DefaultCompressionLevel,
		Threshold: DefaultThreshold,
		AllowedTypes: []string{
			"application/json",
			"text/*",
		},
	}

	if params := config.GetConfig().Middlewares.Compression.Params; params != nil {
		if err := utils.UnmarshalConfig(params, compressionConfig); err != nil {
			logger.Error("Failed to unmarshal compression middleware config", zap.Error(err))
		}
	}

	switch compressionConfig.Algorithm {
	case AlgorithmGzip, AlgorithmDeflate, AlgorithmBrotli:
	default:
		logger.Warn("Unsupported compression algorithm, falling back to brotli",
			zap.String("algorithm", compressionConfig.Algorithm))
		compressionConfig.Algorithm = AlgorithmBrotli
	}

	cm := &CompressionMiddleware{
		config:            config,
		logger:            logger,
		weight:            config.GetConfig().Middlewares.Compression.Weight,
		compressionConfig: compressionConfig,
		algorithm:         []byte(compressionConfig.Algorithm),
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 4096))
			},
		},
	}

	cm.writerPool = sync.Pool{
		New: func() interface{} {
			switch compressionConfig.Algorithm {
			case AlgorithmGzip:
				writer, _ := gzip.NewWriterLevel(nil, compressionConfig.Level)
				return gzipResetWriter{writer}
			case AlgorithmDeflate:
				writer, _ := flate.NewWriter(nil, compressionConfig.Level)
				return flateResetWriter{writer}
			default:
				return brotliResetWriter{brotli.NewWriterLevel(nil, compressionConfig.Level)}
			}
		},
	}

	return cm
}

func (c *CompressionMiddleware) Name() string { return "compression" }
func (c *CompressionMiddleware) Weight() int  { return c.weight }

func (c *CompressionMiddleware) Handle(ctx *fasthttp.RequestCtx, next func(*fasthttp.RequestCtx), _ *types.RouteConfig) {
	acceptEncoding := ctx.Request.Header.Peek("Accept-Encoding")
	if !bytes.Contains(acceptEncoding, c.algorithm) {
		next(ctx)
		return
	}

	next(ctx)

	if len(ctx.Response.Header.Peek("Content-Encoding")) > 0 {
		return
	}
	if !c.shouldCompress(ctx.Response.Header.ContentType()) {
		return
	}

	c.compressResponse(ctx)
}

func (c *CompressionMiddleware) shouldCompress(contentType []byte) bool {
	if len(contentType) == 0 {
		return false
	}

	ctStr := string(contentType)
	if semicolon := strings.Index(ctStr, ";"); semicolon != -1 {
		ctStr = ctStr[:semicolon]
	}
	ctStr = strings.TrimSpace(strings.ToLower(ctStr))

	for _, allowed := range c.compressionConfig.AllowedTypes {
		if allowed == ctStr {
			return true
		}
		if strings.HasSuffix(allowed, "*") && strings.HasPrefix(ctStr, strings.TrimSuffix(allowed, "*")) {
			return true
		}
	}
	return false
}

func (c *CompressionMiddleware) compressResponse(ctx *fasthttp.RequestCtx) {
	body := ctx.Response.Body()
	if len(body) < c.compressionConfig.Threshold {
		return
	}

	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	writer := c.writerPool.Get().(pooledWriter)
	writer.Reset(buf)

	if _, err := writer.Write(body); err != nil {
		c.writerPool.Put(writer)
		return
	}
	if err := writer.Close(); err != nil {
		c.writerPool.Put(writer)
		return
	}
	c.writerPool.Put(writer)

	ratio := float64(buf.Len()) / float64(len(body))
	if 1.0-ratio < MinCompressionRatio {
		return
	}

	ctx.Response.Header.SetContentEncoding(c.compressionConfig.Algorithm)
	ctx.Response.Header.Add("Vary", "Accept-Encoding")
	ctx.Response.SetBody(append([]byte(nil), buf.Bytes()...))
}
