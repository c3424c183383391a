// pkg/model/summary.go
package model

import "time"

// RunSummary captures the outcome of one pipeline run.
type RunSummary struct {
	RunID          string
	InputPath      string
	Estimate       SizeEstimate
	RowsRead       int64
	RowsWritten    int64
	DroppedColumns []string // Columns removed by audit or deny list
	SkippedStages  []string // Stages skipped due to missing columns
	Reports        []string // Report table names produced
	FailedReports  []string // Report tables whose delivery failed
	Findings       []string // Post-run consistency findings, empty on a clean run
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Duration returns the wall-clock time of the run.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
