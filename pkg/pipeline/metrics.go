// pkg/pipeline/metrics.go
package pipeline

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-pipeline/pkg/model"
)

const throughputSampleInterval = 30 * time.Second

// ThroughputSample represents a point-in-time throughput measurement
type ThroughputSample struct {
	Timestamp     time.Time
	RowsPerSecond float64
	MemoryUsageMB float64
}

// RunMetrics tracks counters and throughput for one pipeline run
type RunMetrics struct {
	mu                sync.Mutex
	logger            *zap.Logger
	StartTime         time.Time
	EndTime           time.Time
	RowsWritten       int64
	Batches           int64
	ThroughputSamples []ThroughputSample
	lastSampleTime    time.Time
}

// NewRunMetrics creates a metrics tracker with the clock already running
func NewRunMetrics(logger *zap.Logger) *RunMetrics {
	now := time.Now()
	return &RunMetrics{
		logger:         logger,
		StartTime:      now,
		lastSampleTime: now,
	}
}

// RecordBatch counts one delivered batch of cleaned rows and samples
// throughput when the sampling interval has elapsed
func (m *RunMetrics) RecordBatch(rows int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Batches++
	m.RowsWritten += int64(rows)

	now := time.Now()
	if now.Sub(m.lastSampleTime) >= throughputSampleInterval {
		m.takeThroughputSample()
		m.lastSampleTime = now
	}
}

// Complete stops the clock, takes a final sample, and logs the totals
func (m *RunMetrics) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EndTime = time.Now()
	m.takeThroughputSample()

	if m.logger != nil {
		m.logger.Info("Run throughput",
			zap.Duration("duration", m.duration()),
			zap.Int64("rows_written", m.RowsWritten),
			zap.Int64("batches", m.Batches),
			zap.Float64("rows_per_second", m.throughput()))
	}
}

// Duration returns the wall-clock time of the run so far
func (m *RunMetrics) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration()
}

// Throughput returns the average written rows per second
func (m *RunMetrics) Throughput() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.throughput()
}

// Samples returns the collected throughput samples
func (m *RunMetrics) Samples() []ThroughputSample {
	m.mu.Lock()
	defer m.mu.Unlock()

	samples := make([]ThroughputSample, len(m.ThroughputSamples))
	copy(samples, m.ThroughputSamples)
	return samples
}

func (m *RunMetrics) duration() time.Duration {
	if m.EndTime.IsZero() {
		return time.Since(m.StartTime)
	}
	return m.EndTime.Sub(m.StartTime)
}

func (m *RunMetrics) throughput() float64 {
	seconds := m.duration().Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(m.RowsWritten) / seconds
}

// takeThroughputSample records a measurement. Callers hold the lock.
func (m *RunMetrics) takeThroughputSample() {
	elapsed := time.Since(m.StartTime).Seconds()
	if elapsed <= 0 {
		return
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.ThroughputSamples = append(m.ThroughputSamples, ThroughputSample{
		Timestamp:     time.Now(),
		RowsPerSecond: float64(m.RowsWritten) / elapsed,
		MemoryUsageMB: float64(memStats.Alloc) / (1024 * 1024),
	})
}

// countingSink rides along the cleaning pass to feed the metrics. It never
// fails a run.
type countingSink struct {
	metrics *RunMetrics
}

func newCountingSink(metrics *RunMetrics) *countingSink {
	return &countingSink{metrics: metrics}
}

func (s *countingSink) Open(model.Schema) error { return nil }

func (s *countingSink) Write(ctx context.Context, rows []model.Row) error {
	s.metrics.RecordBatch(len(rows))
	return nil
}

func (s *countingSink) Close() error { return nil }
