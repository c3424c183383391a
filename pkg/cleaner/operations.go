// pkg/cleaner/operations.go
package cleaner

import (
	"fmt"
	"strings"
	"time"

	"github.com/David-Botos/sales-pipeline/pkg/model"
)

// Names of the columns the date and category stages append. Downstream
// consumers address the enriched table through these.
const (
	ColYear          = "year"
	ColMonth         = "month"
	ColQuarter       = "quarter"
	ColWeekday       = "weekday"
	ColIsWeekend     = "is_weekend"
	ColMajorCategory = "Major_Category"
)

// Stage names used in recorded operations and skip lists
const (
	StageAudit    = "audit"
	StagePrune    = "prune"
	StageCoerce   = "coerce"
	StageDates    = "dates"
	StageCategory = "category"
)

// derivedDateColumns returns the schema columns the date stage appends, in
// their fixed output order.
func derivedDateColumns() []model.Column {
	return []model.Column{
		{Name: ColYear, Type: model.TypeInteger, SourceType: "derived"},
		{Name: ColMonth, Type: model.TypeInteger, SourceType: "derived"},
		{Name: ColQuarter, Type: model.TypeInteger, SourceType: "derived"},
		{Name: ColWeekday, Type: model.TypeInteger, SourceType: "derived"},
		{Name: ColIsWeekend, Type: model.TypeBoolean, SourceType: "derived"},
	}
}

// isoWeekday maps a date onto ISO numbering, Monday=1 through Sunday=7
func isoWeekday(t time.Time) int64 {
	w := int64(t.Weekday())
	if w == 0 {
		w = 7
	}
	return w
}

// dateParts decomposes a date into the derived column values. Weekend means
// Saturday or Sunday.
func dateParts(t time.Time) (year, month, quarter, weekday int64, weekend bool) {
	year = int64(t.Year())
	month = int64(t.Month())
	quarter = (month-1)/3 + 1
	weekday = isoWeekday(t)
	weekend = weekday >= 6
	return
}

// CoercionError reports values in one column that could not be coerced to
// its target type. The run aborts rather than writing a partially typed
// table.
type CoercionError struct {
	Column  string
	Target  model.FieldType
	Samples []string
	Err     error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot coerce column %q to %s: %v (sample values: %s)",
		e.Column, e.Target, e.Err, strings.Join(e.Samples, ", "))
}

func (e *CoercionError) Unwrap() error {
	return e.Err
}

// formatSample renders an offending value for error messages, quoting
// strings so stray whitespace stays visible.
func formatSample(value interface{}) string {
	if s, ok := value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", value)
}
