// pkg/pipeline/verifier_test.go
package pipeline

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-pipeline/pkg/cleaner"
	"github.com/David-Botos/sales-pipeline/pkg/model"
	"github.com/David-Botos/sales-pipeline/pkg/report"
)

// ---- Test Helpers ----

func verifierSchema(names ...string) model.Schema {
	columns := make([]model.Column, 0, len(names))
	for _, name := range names {
		columns = append(columns, model.Column{Name: name, Type: model.TypeString})
	}
	return model.Schema{Columns: columns}
}

func cleanArtifacts() RunArtifacts {
	return RunArtifacts{
		OutputSchema: verifierSchema(
			"Date", "City", "County", "Sale (Dollars)",
			cleaner.ColYear, cleaner.ColMonth, cleaner.ColQuarter,
			cleaner.ColWeekday, cleaner.ColIsWeekend, cleaner.ColMajorCategory,
		),
		Dropped: []cleaner.DroppedColumn{
			{Name: "Address", Reason: "deny_list"},
			{Name: "Store Location", Reason: "missing_values", Fraction: 0.42},
		},
		RowsRead:    100,
		RowsWritten: 100,
		Tables: []report.Table{{
			Name:    "top_categories_by_revenue",
			Columns: []string{"Rank", "Major Category", "Revenue"},
			Rows: [][]interface{}{
				{int64(1), "Whiskey", 1200.50},
				{int64(2), report.UnknownGroup, 88.0},
			},
		}},
		Labels: []string{"Whiskey", "Vodka", "Other Spirits"},
	}
}

func findingChecks(findings []Finding) []string {
	checks := make([]string, 0, len(findings))
	for _, f := range findings {
		checks = append(checks, f.Check)
	}
	return checks
}

// ---- Verifier Tests ----

func TestVerify_CleanRun(t *testing.T) {
	verifier := NewVerifier(zap.NewNop())

	result := verifier.Verify(cleanArtifacts())

	if !result.Clean() {
		t.Fatalf("Verify() findings = %v, want none", result.Findings)
	}
	if result.Checks != 4 {
		t.Errorf("Checks = %d, want 4", result.Checks)
	}
}

func TestVerify_PrunedColumnStillPresent(t *testing.T) {
	artifacts := cleanArtifacts()
	artifacts.OutputSchema = artifacts.OutputSchema.Append(model.Column{Name: "Address", Type: model.TypeString})

	result := NewVerifier(zap.NewNop()).Verify(artifacts)

	if len(result.Findings) != 1 {
		t.Fatalf("Verify() findings = %v, want exactly one", result.Findings)
	}
	finding := result.Findings[0]
	if finding.Check != "pruned_columns" {
		t.Errorf("Check = %q, want %q", finding.Check, "pruned_columns")
	}
	if finding.Column != "Address" {
		t.Errorf("Column = %q, want %q", finding.Column, "Address")
	}
}

func TestVerify_MissingDerivedColumns(t *testing.T) {
	artifacts := cleanArtifacts()
	artifacts.OutputSchema = verifierSchema("Date", "City", "County", "Sale (Dollars)")

	result := NewVerifier(zap.NewNop()).Verify(artifacts)

	// Five date columns plus the consolidated category column.
	if len(result.Findings) != 6 {
		t.Fatalf("Verify() findings = %d (%v), want 6", len(result.Findings), findingChecks(result.Findings))
	}
	for _, finding := range result.Findings {
		if finding.Check != "derived_columns" {
			t.Errorf("Check = %q, want %q", finding.Check, "derived_columns")
		}
	}
}

func TestVerify_SkippedStagesSuppressDerivedChecks(t *testing.T) {
	artifacts := cleanArtifacts()
	artifacts.OutputSchema = verifierSchema("Date", "City", "County", "Sale (Dollars)")
	artifacts.SkippedStages = []string{cleaner.StageDates, cleaner.StageCategory}

	result := NewVerifier(zap.NewNop()).Verify(artifacts)

	if !result.Clean() {
		t.Errorf("Verify() findings = %v, want none when the stages were skipped", result.Findings)
	}
}

func TestVerify_RowAccountingMismatch(t *testing.T) {
	artifacts := cleanArtifacts()
	artifacts.RowsWritten = 97

	result := NewVerifier(zap.NewNop()).Verify(artifacts)

	if len(result.Findings) != 1 {
		t.Fatalf("Verify() findings = %v, want exactly one", result.Findings)
	}
	finding := result.Findings[0]
	if finding.Check != "row_accounting" {
		t.Errorf("Check = %q, want %q", finding.Check, "row_accounting")
	}
	if !strings.Contains(finding.Detail, "read 100") || !strings.Contains(finding.Detail, "wrote 97") {
		t.Errorf("Detail = %q, want the row counts in it", finding.Detail)
	}
}

func TestVerify_LabelOutsideConsolidatedSet(t *testing.T) {
	artifacts := cleanArtifacts()
	artifacts.Tables[0].Rows = append(artifacts.Tables[0].Rows, []interface{}{int64(3), "IMPORTED VODKAS", 12.0})

	result := NewVerifier(zap.NewNop()).Verify(artifacts)

	if len(result.Findings) != 1 {
		t.Fatalf("Verify() findings = %v, want exactly one", result.Findings)
	}
	finding := result.Findings[0]
	if finding.Check != "category_labels" {
		t.Errorf("Check = %q, want %q", finding.Check, "category_labels")
	}
	if !strings.Contains(finding.Detail, "IMPORTED VODKAS") {
		t.Errorf("Detail = %q, want the stray label in it", finding.Detail)
	}
}

func TestVerify_NoLabelsSkipsLabelCheck(t *testing.T) {
	artifacts := cleanArtifacts()
	artifacts.Labels = nil
	artifacts.Tables[0].Rows = append(artifacts.Tables[0].Rows, []interface{}{int64(3), "IMPORTED VODKAS", 12.0})

	result := NewVerifier(zap.NewNop()).Verify(artifacts)

	if !result.Clean() {
		t.Errorf("Verify() findings = %v, want none without a label set", result.Findings)
	}
}

func TestFindingString(t *testing.T) {
	tests := []struct {
		name    string
		finding Finding
		want    string
	}{
		{
			name:    "with column",
			finding: Finding{Check: "pruned_columns", Column: "Address", Detail: "still present"},
			want:    "pruned_columns [Address]: still present",
		},
		{
			name:    "without column",
			finding: Finding{Check: "row_accounting", Detail: "read 10 rows but wrote 9"},
			want:    "row_accounting: read 10 rows but wrote 9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.finding.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
