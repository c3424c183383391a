// pkg/pipeline/metrics_test.go
package pipeline

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-pipeline/pkg/model"
)

func TestRunMetrics_CountsBatches(t *testing.T) {
	metrics := NewRunMetrics(zap.NewNop())

	metrics.RecordBatch(10)
	metrics.RecordBatch(5)
	metrics.Complete()

	if metrics.RowsWritten != 15 {
		t.Errorf("RowsWritten = %d, want 15", metrics.RowsWritten)
	}
	if metrics.Batches != 2 {
		t.Errorf("Batches = %d, want 2", metrics.Batches)
	}
	if metrics.EndTime.IsZero() {
		t.Error("Complete() left EndTime unset")
	}
	if metrics.Duration() <= 0 {
		t.Errorf("Duration() = %v, want positive", metrics.Duration())
	}
	if metrics.Throughput() <= 0 {
		t.Errorf("Throughput() = %v, want positive", metrics.Throughput())
	}
	if len(metrics.Samples()) == 0 {
		t.Error("Complete() recorded no throughput sample")
	}
}

func TestCountingSink_FeedsMetrics(t *testing.T) {
	metrics := NewRunMetrics(zap.NewNop())
	sink := newCountingSink(metrics)

	if err := sink.Open(model.Schema{}); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	rows := []model.Row{{"a": 1}, {"a": 2}, {"a": 3}}
	if err := sink.Write(context.Background(), rows); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if metrics.RowsWritten != 3 {
		t.Errorf("RowsWritten = %d, want 3", metrics.RowsWritten)
	}
	if metrics.Batches != 1 {
		t.Errorf("Batches = %d, want 1", metrics.Batches)
	}
}
