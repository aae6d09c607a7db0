package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/objectfs/readpath/pkg/errors"
	"github.com/objectfs/readpath/pkg/types"
)

// Collector receives read statistics from every stream of a session. It implements
// types.Statistics and types.OperationObserver and is safe for concurrent use.
type Collector struct {
	mu       sync.RWMutex
	config   *Config
	registry *prometheus.Registry

	bytesRead atomic.Int64
	readOps   atomic.Int64

	// Prometheus metrics, nil when disabled
	bytesReadCounter  prometheus.Counter
	readOpsCounter    prometheus.Counter
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorCounter      *prometheus.CounterVec

	operations map[string]*OperationMetrics
	lastReset  time.Time
}

var (
	_ types.Statistics        = (*Collector)(nil)
	_ types.OperationObserver = (*Collector)(nil)
)

// Config represents metrics configuration
type Config struct {
	Enabled   bool              `yaml:"enabled"`
	Path      string            `yaml:"path"`
	Namespace string            `yaml:"namespace"`
	Subsystem string            `yaml:"subsystem"`
	Labels    map[string]string `yaml:"labels"`
}

// OperationMetrics tracks metrics for a specific operation type
type OperationMetrics struct {
	Count         int64         `json:"count"`
	Errors        int64         `json:"errors"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
	LastOperation time.Time     `json:"last_operation"`
}

// Stats is a point-in-time copy of the collector's totals.
type Stats struct {
	BytesRead  int64                       `json:"bytes_read"`
	ReadOps    int64                       `json:"read_ops"`
	Operations map[string]OperationMetrics `json:"operations"`
	Uptime     time.Duration               `json:"uptime"`
}

// NewDefaultConfig returns the configuration used when none is given.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Path:      "/metrics",
		Namespace: "objectfs",
		Subsystem: "readpath",
		Labels:    make(map[string]string),
	}
}

// NewCollector creates a new metrics collector
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = NewDefaultConfig()
	}

	collector := &Collector{
		config:     config,
		operations: make(map[string]*OperationMetrics),
		lastReset:  time.Now(),
	}

	if !config.Enabled {
		return collector, nil
	}

	collector.registry = prometheus.NewRegistry()
	collector.initMetrics()

	if err := collector.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return collector, nil
}

// IncrementBytesRead implements types.Statistics.
func (c *Collector) IncrementBytesRead(n int64) {
	c.bytesRead.Add(n)
	if c.bytesReadCounter != nil {
		c.bytesReadCounter.Add(float64(n))
	}
}

// IncrementReadOps implements types.Statistics.
func (c *Collector) IncrementReadOps(n int) {
	c.readOps.Add(int64(n))
	if c.readOpsCounter != nil {
		c.readOpsCounter.Add(float64(n))
	}
}

// ObserveOperation implements types.OperationObserver.
func (c *Collector) ObserveOperation(operation string, durationNs int64, success bool) {
	duration := time.Duration(durationNs)

	c.mu.Lock()
	m, ok := c.operations[operation]
	if !ok {
		m = &OperationMetrics{}
		c.operations[operation] = m
	}
	m.Count++
	m.TotalDuration += duration
	m.AvgDuration = time.Duration(int64(m.TotalDuration) / m.Count)
	m.LastOperation = time.Now()
	if !success {
		m.Errors++
	}
	c.mu.Unlock()

	if c.operationCounter == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	c.operationCounter.With(prometheus.Labels{
		"operation": operation,
		"status":    status,
	}).Inc()
	c.operationDuration.With(prometheus.Labels{
		"operation": operation,
	}).Observe(duration.Seconds())
}

// RecordError records a failed operation by error category.
func (c *Collector) RecordError(operation string, err error) {
	if c.errorCounter == nil || err == nil {
		return
	}
	c.errorCounter.With(prometheus.Labels{
		"operation": operation,
		"type":      classifyError(err),
	}).Inc()
}

// Snapshot returns the current totals.
func (c *Collector) Snapshot() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ops := make(map[string]OperationMetrics, len(c.operations))
	for k, v := range c.operations {
		ops[k] = *v
	}

	return Stats{
		BytesRead:  c.bytesRead.Load(),
		ReadOps:    c.readOps.Load(),
		Operations: ops,
		Uptime:     time.Since(c.lastReset),
	}
}

// ResetMetrics resets the per-operation tracking. Prometheus counters are monotonic and
// are left alone.
func (c *Collector) ResetMetrics() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.operations = make(map[string]*OperationMetrics)
	c.bytesRead.Store(0)
	c.readOps.Store(0)
	c.lastReset = time.Now()
}

// Registry returns the private Prometheus registry, or nil when disabled.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the Prometheus endpoint at the configured path plus /health and
// /debug/operations.
func (c *Collector) Handler() http.Handler {
	mux := http.NewServeMux()
	if c.registry != nil {
		path := c.config.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle(path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		}))
	}
	mux.HandleFunc("/health", c.healthHandler)
	mux.HandleFunc("/debug/operations", c.debugOperationsHandler)
	return mux
}

// Helper methods

func (c *Collector) initMetrics() {
	labels := prometheus.Labels(c.config.Labels)

	c.bytesReadCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   c.config.Namespace,
		Subsystem:   c.config.Subsystem,
		Name:        "bytes_read_total",
		Help:        "Total number of bytes returned to stream readers",
		ConstLabels: labels,
	})

	c.readOpsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   c.config.Namespace,
		Subsystem:   c.config.Subsystem,
		Name:        "read_operations_total",
		Help:        "Total number of read operations that returned data",
		ConstLabels: labels,
	})

	c.operationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "stream_operations_total",
			Help:        "Total number of stream operations",
			ConstLabels: labels,
		},
		[]string{"operation", "status"},
	)

	c.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "stream_operation_duration_seconds",
			Help:        "Duration of stream operations in seconds",
			Buckets:     prometheus.ExponentialBuckets(0.0001, 2, 18), // 100µs to ~13s
			ConstLabels: labels,
		},
		[]string{"operation"},
	)

	c.errorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "errors_total",
			Help:        "Total number of errors",
			ConstLabels: labels,
		},
		[]string{"operation", "type"},
	)
}

func (c *Collector) registerMetrics() error {
	metrics := []prometheus.Collector{
		c.bytesReadCounter,
		c.readOpsCounter,
		c.operationCounter,
		c.operationDuration,
		c.errorCounter,
	}

	for _, metric := range metrics {
		if err := c.registry.Register(metric); err != nil {
			return err
		}
	}

	return nil
}

func classifyError(err error) string {
	if category := errors.CategoryOf(err); category != "" {
		return string(category)
	}
	return "other"
}

// HTTP handlers

func (c *Collector) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy","service":"objectfs-readpath"}`))
}

func (c *Collector) debugOperationsHandler(w http.ResponseWriter, r *http.Request) {
	stats := c.Snapshot()

	w.Header().Set("Content-Type", "text/plain")

	writef := func(format string, args ...interface{}) { _, _ = fmt.Fprintf(w, format, args...) }

	writef("Read Path Operations Summary\n")
	writef("============================\n\n")
	writef("Uptime: %v\n", stats.Uptime)
	writef("Bytes Read: %d\n", stats.BytesRead)
	writef("Read Ops: %d\n\n", stats.ReadOps)

	if len(stats.Operations) == 0 {
		writef("No operations recorded.\n")
		return
	}

	names := make([]string, 0, len(stats.Operations))
	for name := range stats.Operations {
		names = append(names, name)
	}
	sort.Strings(names)

	writef("%-22s %10s %10s %14s\n", "Operation", "Count", "Errors", "Avg Duration")
	for _, name := range names {
		op := stats.Operations[name]
		writef("%-22s %10d %10d %14v\n", name, op.Count, op.Errors, op.AvgDuration)
	}
}
