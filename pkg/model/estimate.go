// pkg/model/estimate.go
package model

import "fmt"

// SizeEstimate describes dataset shape derived from a bounded sample.
type SizeEstimate struct {
	SampleRows     int64 // Rows actually sampled
	SampleBytes    int64 // Approximate in-memory size of the sample
	TotalRows      int64 // Exact or extrapolated row count
	ExactRows      bool  // True when TotalRows came from source metadata
	FileBytes      int64 // On-disk size of the input file
	EstimatedBytes int64 // Extrapolated in-memory size of the full dataset
}

// BytesPerRow returns the average in-memory row size observed in the sample.
func (e SizeEstimate) BytesPerRow() float64 {
	if e.SampleRows == 0 {
		return 0
	}
	return float64(e.SampleBytes) / float64(e.SampleRows)
}

func (e SizeEstimate) String() string {
	rows := "~"
	if e.ExactRows {
		rows = ""
	}
	return fmt.Sprintf("%s%d rows, %s estimated in memory (%s on disk)",
		rows, e.TotalRows, humanBytes(e.EstimatedBytes), humanBytes(e.FileBytes))
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
