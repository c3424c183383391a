// pkg/pipeline/verifier.go
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-pipeline/pkg/cleaner"
	"github.com/David-Botos/sales-pipeline/pkg/model"
	"github.com/David-Botos/sales-pipeline/pkg/report"
)

// Finding describes one post-run consistency problem
type Finding struct {
	Check  string
	Column string
	Detail string
}

// String returns a formatted finding
func (f Finding) String() string {
	var sb strings.Builder
	sb.WriteString(f.Check)
	if f.Column != "" {
		sb.WriteString(fmt.Sprintf(" [%s]", f.Column))
	}
	sb.WriteString(": ")
	sb.WriteString(f.Detail)
	return sb.String()
}

// RunArtifacts bundles what a finished run produced for verification
type RunArtifacts struct {
	OutputSchema  model.Schema
	Dropped       []cleaner.DroppedColumn
	SkippedStages []string
	RowsRead      int64
	RowsWritten   int64
	Tables        []report.Table
	Labels        []string // Consolidated category labels the mapper can emit
}

// VerificationReport contains the results of the post-run checks
type VerificationReport struct {
	Checks   int
	Findings []Finding
	Duration time.Duration
}

// Clean reports whether every check passed
func (r *VerificationReport) Clean() bool {
	return len(r.Findings) == 0
}

// Verifier runs consistency checks over a finished run: pruning really
// removed what it said, derived columns landed, row accounting balances,
// and report labels stay inside the consolidated set.
type Verifier struct {
	logger *zap.Logger
}

// NewVerifier creates a verifier
func NewVerifier(logger *zap.Logger) *Verifier {
	return &Verifier{logger: logger}
}

// Verify runs every check and returns the combined report
func (v *Verifier) Verify(artifacts RunArtifacts) *VerificationReport {
	start := time.Now()
	result := &VerificationReport{}

	checks := []func(RunArtifacts) []Finding{
		v.checkPrunedColumns,
		v.checkDerivedColumns,
		v.checkRowAccounting,
		v.checkCategoryLabels,
	}
	for _, check := range checks {
		result.Checks++
		result.Findings = append(result.Findings, check(artifacts)...)
	}

	result.Duration = time.Since(start)

	for _, finding := range result.Findings {
		v.logger.Warn("Verification finding",
			zap.String("check", finding.Check),
			zap.String("column", finding.Column),
			zap.String("detail", finding.Detail))
	}
	v.logger.Info("Post-run verification complete",
		zap.Int("checks", result.Checks),
		zap.Int("findings", len(result.Findings)),
		zap.Duration("duration", result.Duration))

	return result
}

// checkPrunedColumns verifies no pruned column leaked into the output schema
func (v *Verifier) checkPrunedColumns(artifacts RunArtifacts) []Finding {
	var findings []Finding
	for _, dropped := range artifacts.Dropped {
		if artifacts.OutputSchema.HasColumn(dropped.Name) {
			findings = append(findings, Finding{
				Check:  "pruned_columns",
				Column: dropped.Name,
				Detail: "pruned column still present in the output schema",
			})
		}
	}
	return findings
}

// checkDerivedColumns verifies every derived column its stage promised exists
func (v *Verifier) checkDerivedColumns(artifacts RunArtifacts) []Finding {
	var findings []Finding

	if !containsString(artifacts.SkippedStages, cleaner.StageDates) {
		for _, name := range []string{
			cleaner.ColYear,
			cleaner.ColMonth,
			cleaner.ColQuarter,
			cleaner.ColWeekday,
			cleaner.ColIsWeekend,
		} {
			if !artifacts.OutputSchema.HasColumn(name) {
				findings = append(findings, Finding{
					Check:  "derived_columns",
					Column: name,
					Detail: "derived date column missing from the output schema",
				})
			}
		}
	}

	if !containsString(artifacts.SkippedStages, cleaner.StageCategory) {
		if !artifacts.OutputSchema.HasColumn(cleaner.ColMajorCategory) {
			findings = append(findings, Finding{
				Check:  "derived_columns",
				Column: cleaner.ColMajorCategory,
				Detail: "consolidated category column missing from the output schema",
			})
		}
	}

	return findings
}

// checkRowAccounting verifies every row read was written
func (v *Verifier) checkRowAccounting(artifacts RunArtifacts) []Finding {
	if artifacts.RowsRead == artifacts.RowsWritten {
		return nil
	}
	return []Finding{{
		Check:  "row_accounting",
		Detail: fmt.Sprintf("read %d rows but wrote %d", artifacts.RowsRead, artifacts.RowsWritten),
	}}
}

// checkCategoryLabels verifies report tables only contain labels the
// category mapper can emit
func (v *Verifier) checkCategoryLabels(artifacts RunArtifacts) []Finding {
	if len(artifacts.Labels) == 0 {
		return nil
	}

	valid := make(map[string]bool, len(artifacts.Labels)+1)
	for _, label := range artifacts.Labels {
		valid[label] = true
	}
	valid[report.UnknownGroup] = true

	var findings []Finding
	for _, table := range artifacts.Tables {
		idx := -1
		for i, column := range table.Columns {
			if column == "Major Category" {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}

		for _, row := range table.Rows {
			label, ok := row[idx].(string)
			if !ok {
				continue
			}
			if !valid[label] {
				findings = append(findings, Finding{
					Check:  "category_labels",
					Column: "Major Category",
					Detail: fmt.Sprintf("report %s contains label %q outside the consolidated set", table.Name, label),
				})
			}
		}
	}
	return findings
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
