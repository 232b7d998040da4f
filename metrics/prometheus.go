package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-registry/types"
)

const namespace = "sai_registry"

// PrometheusMetrics lazily registers metric vectors on first use.
// A metric name maps to exactly one vector, so every caller of the
// same name must pass the same label set.
type PrometheusMetrics struct {
	logger     types.Logger
	config     *types.MetricsConfig
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	mu         sync.Mutex
	running    int32
}

func NewPrometheusMetrics(logger types.Logger, config *types.MetricsConfig) (types.MetricsManager, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics := &PrometheusMetrics{
		logger:     logger,
		config:     config,
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}

	logger.Info("prometheus metrics initialized",
		zap.String("namespace", namespace),
		zap.String("path", config.Path))

	return metrics, nil
}

func (p *PrometheusMetrics) Start() error {
	if !atomic.CompareAndSwapInt32(&p.running, 0, 1) {
		p.logger.Warn("prometheus metrics is already running")
		return types.ErrServerAlreadyRunning
	}

	p.logger.Info("prometheus metrics started")
	return nil
}

func (p *PrometheusMetrics) Stop() error {
	if !atomic.CompareAndSwapInt32(&p.running, 1, 0) {
		p.logger.Warn("prometheus metrics is not running")
		return types.ErrServerNotRunning
	}

	p.logger.Info("prometheus metrics stopped")
	return nil
}

func (p *PrometheusMetrics) IsRunning() bool {
	return atomic.LoadInt32(&p.running) == 1
}

func (p *PrometheusMetrics) Counter(name string, labels map[string]string) types.Counter {
	p.mu.Lock()
	defer p.mu.Unlock()

	counter, exists := p.counters[name]
	if !exists {
		counter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      name,
				Help:      fmt.Sprintf("Counter metric %s", name),
			},
			labelNames(labels),
		)
		p.registry.MustRegister(counter)
		p.counters[name] = counter
	}

	return &prometheusCounter{counter: counter, labels: labels}
}

func (p *PrometheusMetrics) Gauge(name string, labels map[string]string) types.Gauge {
	p.mu.Lock()
	defer p.mu.Unlock()

	gauge, exists := p.gauges[name]
	if !exists {
		gauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      name,
				Help:      fmt.Sprintf("Gauge metric %s", name),
			},
			labelNames(labels),
		)
		p.registry.MustRegister(gauge)
		p.gauges[name] = gauge
	}

	return &prometheusGauge{gauge: gauge, labels: labels}
}

func (p *PrometheusMetrics) Histogram(name string, buckets []float64, labels map[string]string) types.Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()

	histogram, exists := p.histograms[name]
	if !exists {
		histogram = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      name,
				Help:      fmt.Sprintf("Histogram metric %s", name),
				Buckets:   buckets,
			},
			labelNames(labels),
		)
		p.registry.MustRegister(histogram)
		p.histograms[name] = histogram
	}

	return &prometheusHistogram{histogram: histogram, labels: labels}
}

func (p *PrometheusMetrics) Handler() types.FastHTTPHandler {
	handler := promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
	return types.FastHTTPHandler(fasthttpadaptor.NewFastHTTPHandler(handler))
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	return names
}

type prometheusCounter struct {
	counter *prometheus.CounterVec
	labels  map[string]string
}

func (c *prometheusCounter) Inc() {
	c.counter.With(c.labels).Inc()
}

func (c *prometheusCounter) Add(value float64) {
	c.counter.With(c.labels).Add(value)
}

type prometheusGauge struct {
	gauge  *prometheus.GaugeVec
	labels map[string]string
}

func (g *prometheusGauge) Set(value float64) {
	g.gauge.With(g.labels).Set(value)
}

func (g *prometheusGauge) Inc() {
	g.gauge.With(g.labels).Inc()
}

func (g *prometheusGauge) Dec() {
	g.gauge.With(g.labels).Dec()
}

type prometheusHistogram struct {
	histogram *prometheus.HistogramVec
	labels    map[string]string
}

func (h *prometheusHistogram) Observe(value float64) {
	h.histogram.With(h.labels).Observe(value)
}

func (h *prometheusHistogram) ObserveDuration(start time.Time) {
	h.histogram.With(h.labels).Observe(time.Since(start).Seconds())
}
