// pkg/source/estimator.go
package source

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-pipeline/pkg/model"
)

const estimateBatchSize = 10000

// EstimateSize samples up to sampleRows rows from the input and extrapolates
// the full dataset's row count and in-memory footprint. Sources whose
// metadata carries an exact row count (parquet) skip the extrapolation; CSV
// totals come from the sampled rows-per-byte ratio against the file size and
// are approximate.
func EstimateSize(ctx context.Context, factory *Factory, sampleRows int64, logger *zap.Logger) (model.SizeEstimate, error) {
	if sampleRows <= 0 {
		sampleRows = 1
	}

	fileBytes, err := factory.FileBytes()
	if err != nil {
		return model.SizeEstimate{}, err
	}

	src, err := factory.Open()
	if err != nil {
		return model.SizeEstimate{}, fmt.Errorf("failed to open source for size estimation: %w", err)
	}
	defer src.Close()

	var (
		sampled  int64
		memBytes int64
		sawAll   bool
	)
	for sampled < sampleRows {
		batch := estimateBatchSize
		if remaining := sampleRows - sampled; remaining < int64(batch) {
			batch = int(remaining)
		}
		rows, err := src.Read(ctx, batch)
		for _, row := range rows {
			memBytes += approxRowBytes(row)
		}
		sampled += int64(len(rows))
		if err == io.EOF {
			sawAll = true
			break
		}
		if err != nil {
			return model.SizeEstimate{}, fmt.Errorf("failed to sample input for size estimation: %w", err)
		}
	}

	estimate := model.SizeEstimate{
		SampleRows:  sampled,
		SampleBytes: memBytes,
		FileBytes:   fileBytes,
	}

	switch {
	case sawAll:
		// The whole file fit inside the sample window.
		estimate.TotalRows = sampled
		estimate.ExactRows = true
		estimate.EstimatedBytes = memBytes
	default:
		if total, ok := src.TotalRows(); ok {
			estimate.TotalRows = total
			estimate.ExactRows = true
		} else if tracker, ok := src.(ByteTracker); ok && tracker.BytesRead() > 0 {
			// Linear extrapolation from the sampled rows-per-byte ratio,
			// with header overhead excluded on both sides.
			dataBytes := fileBytes - tracker.HeaderBytes()
			ratio := float64(sampled) / float64(tracker.BytesRead())
			estimate.TotalRows = int64(math.Round(ratio * float64(dataBytes)))
		} else {
			estimate.TotalRows = sampled
		}
		if sampled > 0 {
			estimate.EstimatedBytes = int64(estimate.BytesPerRow() * float64(estimate.TotalRows))
		}
	}

	logger.Info("Estimated dataset size",
		zap.Int64("sampled_rows", estimate.SampleRows),
		zap.Int64("total_rows", estimate.TotalRows),
		zap.Bool("exact_rows", estimate.ExactRows),
		zap.Float64("bytes_per_row", estimate.BytesPerRow()),
		zap.Int64("estimated_memory_bytes", estimate.EstimatedBytes),
		zap.Int64("file_bytes", estimate.FileBytes))

	return estimate, nil
}

// approxRowBytes estimates the in-memory footprint of one generic row. The
// accounting is coarse: map and string headers plus payload bytes, fixed
// word sizes for scalars.
func approxRowBytes(row model.Row) int64 {
	size := int64(48)
	for _, value := range row {
		size += 16
		size += approxValueBytes(value)
	}
	return size
}

func approxValueBytes(value interface{}) int64 {
	switch v := value.(type) {
	case nil:
		return 8
	case string:
		return 16 + int64(len(v))
	case bool:
		return 8
	case int64:
		return 8
	case float64:
		return 8
	case time.Time:
		return 24
	default:
		return 16
	}
}
