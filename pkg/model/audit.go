// pkg/model/audit.go
package model

import (
	"time"
)

// StageOperation represents a single decision taken by a cleaning stage
type StageOperation struct {
	ID        string    // Operation identifier (UUID)
	Stage     string    // Stage that produced the operation (e.g., "column_pruning")
	Column    string    // Column the operation applies to, if any
	Action    string    // What was done (e.g., "dropped", "skipped", "coerced")
	Detail    string    // Human-readable context
	Timestamp time.Time // When the decision was made
}

// MissingStat is the missing-value audit result for one column.
type MissingStat struct {
	Column   string // Column name
	Missing  int64  // Null or empty values observed in the sample
	Sampled  int64  // Rows sampled
	Fraction float64
}

// AboveThreshold reports whether the column's missing fraction exceeds the
// configured drop threshold.
func (m MissingStat) AboveThreshold(threshold float64) bool {
	return m.Fraction > threshold
}
