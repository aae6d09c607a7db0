package storage

import (
	"io"
	"sync"
	"time"
)

// RequestMetrics tracks backend request counts and latency for one opener.
type RequestMetrics struct {
	Requests        int64         `json:"requests"`
	Errors          int64         `json:"errors"`
	BytesDownloaded int64         `json:"bytes_downloaded"`
	AverageLatency  time.Duration `json:"average_latency"`
	LastError       string        `json:"last_error"`
	LastErrorTime   time.Time     `json:"last_error_time"`
}

// MetricsCollector aggregates RequestMetrics.
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics RequestMetrics
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordRequest records a backend request with its duration and outcome.
func (mc *MetricsCollector) RecordRequest(duration time.Duration, err error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.metrics.Requests++
	if err != nil {
		mc.metrics.Errors++
		mc.metrics.LastError = err.Error()
		mc.metrics.LastErrorTime = time.Now()
	}

	// Rolling average latency
	if mc.metrics.Requests == 1 {
		mc.metrics.AverageLatency = duration
	} else {
		mc.metrics.AverageLatency = time.Duration(
			(int64(mc.metrics.AverageLatency)*9 + int64(duration)) / 10,
		)
	}
}

// RecordBytesDownloaded records downloaded bytes
func (mc *MetricsCollector) RecordBytesDownloaded(bytes int64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.metrics.BytesDownloaded += bytes
}

// GetMetrics returns a snapshot.
func (mc *MetricsCollector) GetMetrics() RequestMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.metrics
}

// CountingBody wraps a response body and records the bytes read through it.
type CountingBody struct {
	Body    io.ReadCloser
	Metrics *MetricsCollector
}

// Read implements io.Reader.
func (b *CountingBody) Read(p []byte) (int, error) {
	n, err := b.Body.Read(p)
	if n > 0 && b.Metrics != nil {
		b.Metrics.RecordBytesDownloaded(int64(n))
	}
	return n, err
}

// Close implements io.Closer.
func (b *CountingBody) Close() error {
	return b.Body.Close()
}
