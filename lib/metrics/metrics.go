// Package metrics provides lightweight metrics collection for the resource
// pool library. Metrics register themselves with a process-wide registry
// and are exposed in Prometheus text format for scraping.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultLatencyBuckets covers waits from sub-millisecond to tens of
// seconds, suitable for pool acquisition and remote call latencies.
var DefaultLatencyBuckets = []float64{
	0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// Counter is a monotonically increasing counter.
type Counter struct {
	value atomic.Uint64
	name  string
	help  string
}

// NewCounter creates and registers a counter metric.
func NewCounter(name, help string) *Counter {
	c := &Counter{name: name, help: help}
	defaultRegistry.register(name, c)
	return c
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Add adds v to the counter.
func (c *Counter) Add(v uint64) {
	c.value.Add(v)
}

// Value returns the current counter value.
func (c *Counter) Value() uint64 {
	return c.value.Load()
}

func (c *Counter) expose(sb *strings.Builder) {
	fmt.Fprintf(sb, "# HELP %s %s\n", c.name, c.help)
	fmt.Fprintf(sb, "# TYPE %s counter\n", c.name)
	fmt.Fprintf(sb, "%s %d\n", c.name, c.Value())
}

// Gauge is a metric that can go up and down.
type Gauge struct {
	value atomic.Int64
	name  string
	help  string
}

// NewGauge creates and registers a gauge metric.
func NewGauge(name, help string) *Gauge {
	g := &Gauge{name: name, help: help}
	defaultRegistry.register(name, g)
	return g
}

// Set sets the gauge to v.
func (g *Gauge) Set(v int64) {
	g.value.Store(v)
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() {
	g.value.Add(1)
}

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() {
	g.value.Add(-1)
}

// Add adds v to the gauge. v may be negative.
func (g *Gauge) Add(v int64) {
	g.value.Add(v)
}

// Value returns the current gauge value.
func (g *Gauge) Value() int64 {
	return g.value.Load()
}

func (g *Gauge) expose(sb *strings.Builder) {
	fmt.Fprintf(sb, "# HELP %s %s\n", g.name, g.help)
	fmt.Fprintf(sb, "# TYPE %s gauge\n", g.name)
	fmt.Fprintf(sb, "%s %d\n", g.name, g.Value())
}

// Histogram tracks the distribution of observed values across fixed
// buckets.
type Histogram struct {
	mu      sync.Mutex
	name    string
	help    string
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

// NewHistogram creates and registers a histogram metric. Buckets must be
// sorted ascending.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	h := &Histogram{
		name:    name,
		help:    help,
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
	defaultRegistry.register(name, h)
	return h
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += v
	h.count++
	for i, b := range h.buckets {
		if v <= b {
			h.counts[i]++
		}
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *Histogram) expose(sb *strings.Builder) {
	h.mu.Lock()
	defer h.mu.Unlock()

	fmt.Fprintf(sb, "# HELP %s %s\n", h.name, h.help)
	fmt.Fprintf(sb, "# TYPE %s histogram\n", h.name)
	for i, b := range h.buckets {
		fmt.Fprintf(sb, "%s_bucket{le=%q} %d\n", h.name, formatBucket(b), h.counts[i])
	}
	fmt.Fprintf(sb, "%s_bucket{le=\"+Inf\"} %d\n", h.name, h.count)
	fmt.Fprintf(sb, "%s_sum %g\n", h.name, h.sum)
	fmt.Fprintf(sb, "%s_count %d\n", h.name, h.count)
}

func formatBucket(b float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", b), "0"), ".")
}

// metric is implemented by all metric types.
type metric interface {
	expose(sb *strings.Builder)
}

// Registry holds registered metrics.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]metric
}

var defaultRegistry = &Registry{metrics: make(map[string]metric)}

func (r *Registry) register(name string, m metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics[name] = m
}

// Expose returns all metrics in Prometheus exposition format, sorted by
// metric name for stable output.
func (r *Registry) Expose() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		r.metrics[name].expose(&sb)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Expose returns the default registry's metrics in Prometheus text format.
func Expose() string {
	return defaultRegistry.Expose()
}

// Handler returns an http.Handler serving the default registry, suitable
// for mounting at /metrics.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.Write([]byte(Expose()))
	})
}
