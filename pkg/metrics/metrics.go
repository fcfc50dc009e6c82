// Package metrics provides metrics implementations for the accounts service
package metrics

import (
	"sort"
	"strings"
	"sync"

	"github.com/memtensor/accounts/pkg/interfaces"
)

// NoOpMetrics is a no-operation metrics implementation
type NoOpMetrics struct{}

// Counter increments a counter metric
func (m *NoOpMetrics) Counter(name string, value float64, labels map[string]string) {}

// Gauge sets a gauge metric
func (m *NoOpMetrics) Gauge(name string, value float64, labels map[string]string) {}

// Histogram records a histogram metric
func (m *NoOpMetrics) Histogram(name string, value float64, labels map[string]string) {}

// Timer records timing metrics
func (m *NoOpMetrics) Timer(name string, duration float64, labels map[string]string) {}

// Summary aggregates observed values for histograms and timers
type Summary struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

func (s *Summary) observe(v float64) {
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.Count++
	s.Sum += v
}

// Snapshot is a point-in-time copy of everything a Collector has recorded
type Snapshot struct {
	Counters   map[string]float64 `json:"counters"`
	Gauges     map[string]float64 `json:"gauges"`
	Histograms map[string]Summary `json:"histograms"`
}

// Collector keeps metrics in process memory, keyed by name and sorted labels
type Collector struct {
	mu         sync.Mutex
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string]*Summary
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string]*Summary),
	}
}

// Counter increments a counter metric
func (c *Collector) Counter(name string, value float64, labels map[string]string) {
	key := seriesKey(name, labels)
	c.mu.Lock()
	c.counters[key] += value
	c.mu.Unlock()
}

// Gauge sets a gauge metric
func (c *Collector) Gauge(name string, value float64, labels map[string]string) {
	key := seriesKey(name, labels)
	c.mu.Lock()
	c.gauges[key] = value
	c.mu.Unlock()
}

// Histogram records a histogram metric
func (c *Collector) Histogram(name string, value float64, labels map[string]string) {
	key := seriesKey(name, labels)
	c.mu.Lock()
	s, ok := c.histograms[key]
	if !ok {
		s = &Summary{}
		c.histograms[key] = s
	}
	s.observe(value)
	c.mu.Unlock()
}

// Timer records timing metrics in milliseconds
func (c *Collector) Timer(name string, duration float64, labels map[string]string) {
	c.Histogram(name, duration, labels)
}

// Snapshot copies the current state
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Counters:   make(map[string]float64, len(c.counters)),
		Gauges:     make(map[string]float64, len(c.gauges)),
		Histograms: make(map[string]Summary, len(c.histograms)),
	}
	for k, v := range c.counters {
		snap.Counters[k] = v
	}
	for k, v := range c.gauges {
		snap.Gauges[k] = v
	}
	for k, v := range c.histograms {
		snap.Histograms[k] = *v
	}
	return snap
}

// CounterValue returns the current value of a counter series
func (c *Collector) CounterValue(name string, labels map[string]string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[seriesKey(name, labels)]
}

// seriesKey renders name{k1=v1,k2=v2} with labels in key order
func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	b.WriteByte('}')
	return b.String()
}

var _ interfaces.Metrics = (*NoOpMetrics)(nil)
var _ interfaces.Metrics = (*Collector)(nil)

// NewNoOpMetrics creates a new no-op metrics implementation
func NewNoOpMetrics() interfaces.Metrics {
	return &NoOpMetrics{}
}

// NewTestMetrics creates a metrics implementation for testing
func NewTestMetrics() *Collector {
	return NewCollector()
}
