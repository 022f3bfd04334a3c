package promobs

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spyword/undercover/providers/observability"
)

// Provider is an observability.Provider that also exports metrics to
// Prometheus.
type Provider struct {
	observability.Provider

	registry *prometheus.Registry
	buckets  []float64

	mu         sync.Mutex
	counters   map[string]*counter
	histograms map[string]*histogram
}

var _ observability.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithRegistry registers collectors in registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(p *Provider) {
		p.registry = registry
	}
}

// WithBuckets sets the histogram buckets. The default is
// prometheus.DefBuckets, which suits latencies in seconds.
func WithBuckets(buckets []float64) Option {
	return func(p *Provider) {
		p.buckets = buckets
	}
}

// New wraps base. base must not be nil.
func New(base observability.Provider, opts ...Option) *Provider {
	p := &Provider{
		Provider:   base,
		buckets:    prometheus.DefBuckets,
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = prometheus.NewRegistry()
	}
	return p
}

// Registry returns the registry holding the exported collectors.
func (p *Provider) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// WriteToTextfile writes the current metric values to path, for the node
// exporter textfile collector or for inspection after a CLI run.
func (p *Provider) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// Counter returns a counter recorded by both the wrapped provider and
// Prometheus.
func (p *Provider) Counter(name string) observability.Counter {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, exists := p.counters[name]
	if !exists {
		c = &counter{owner: p, name: name, base: p.Provider.Counter(name)}
		p.counters[name] = c
	}
	return c
}

// Histogram returns a histogram recorded by both the wrapped provider and
// Prometheus.
func (p *Provider) Histogram(name string) observability.Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, exists := p.histograms[name]
	if !exists {
		h = &histogram{owner: p, name: name, base: p.Provider.Histogram(name)}
		p.histograms[name] = h
	}
	return h
}

// register adds collector to the registry. A failure is logged and the
// metric stays local to the wrapped provider.
func (p *Provider) register(ctx context.Context, name string, collector prometheus.Collector) bool {
	if err := p.registry.Register(collector); err != nil {
		p.Provider.Warn(ctx, "failed to register prometheus metric",
			observability.String("metric", name),
			observability.Error(err),
		)
		return false
	}
	return true
}

type counter struct {
	owner *Provider
	name  string
	base  observability.Counter

	once   sync.Once
	labels []string
	keys   []string
	vec    *prometheus.CounterVec
}

func (c *counter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	c.base.Add(ctx, value, attrs...)

	c.once.Do(func() {
		c.keys, c.labels = labelNames(attrs)
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricName(c.name),
			Help: c.name,
		}, c.labels)
		if c.owner.register(ctx, c.name, vec) {
			c.vec = vec
		}
	})

	if c.vec == nil || value < 0 {
		return
	}
	c.vec.WithLabelValues(labelValues(c.keys, attrs)...).Add(float64(value))
}

type histogram struct {
	owner *Provider
	name  string
	base  observability.Histogram

	once   sync.Once
	labels []string
	keys   []string
	vec    *prometheus.HistogramVec
}

func (h *histogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	h.base.Record(ctx, value, attrs...)

	h.once.Do(func() {
		h.keys, h.labels = labelNames(attrs)
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricName(h.name),
			Help:    h.name,
			Buckets: h.owner.buckets,
		}, h.labels)
		if h.owner.register(ctx, h.name, vec) {
			h.vec = vec
		}
	})

	if h.vec == nil {
		return
	}
	h.vec.WithLabelValues(labelValues(h.keys, attrs)...).Observe(value)
}

// labelNames returns the distinct attribute keys, sorted, and their
// Prometheus-safe label names.
func labelNames(attrs []observability.Attribute) (keys, labels []string) {
	for _, attr := range attrs {
		if !slices.Contains(keys, attr.Key) {
			keys = append(keys, attr.Key)
		}
	}
	slices.Sort(keys)

	labels = make([]string, len(keys))
	for i, key := range keys {
		labels[i] = metricName(key)
	}
	return keys, labels
}

func labelValues(keys []string, attrs []observability.Attribute) []string {
	values := make([]string, len(keys))
	for i, key := range keys {
		for _, attr := range attrs {
			if attr.Key == key {
				values[i] = fmt.Sprint(attr.Value)
				break
			}
		}
	}
	return values
}

// metricName maps an observability name onto the Prometheus charset
// [a-zA-Z0-9_].
func metricName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
