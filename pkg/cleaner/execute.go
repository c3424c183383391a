// pkg/cleaner/execute.go
package cleaner

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-pipeline/pkg/converter"
	"github.com/David-Botos/sales-pipeline/pkg/model"
	"github.com/David-Botos/sales-pipeline/pkg/source"
)

const maxCoercionSamples = 5

// RowSink receives cleaned rows in batches. Open is called once with the
// output schema before the first Write; Close is called once after the last.
type RowSink interface {
	Open(schema model.Schema) error
	Write(ctx context.Context, rows []model.Row) error
	Close() error
}

// Aborter is an optional RowSink extension. When a run fails partway, sinks
// implementing it get Abort instead of Close so they can discard partial
// output rather than finalize it.
type Aborter interface {
	Abort() error
}

// ExecuteResult summarizes a completed cleaning pass
type ExecuteResult struct {
	RowsRead    int64
	RowsWritten int64
}

// Execute streams the full input through the planned stages and fans each
// cleaned batch out to the sinks. A value that cannot be coerced aborts the
// run with the offending column and sample values.
func (pl *Plan) Execute(ctx context.Context, factory *source.Factory, sinks ...RowSink) (ExecuteResult, error) {
	var result ExecuteResult
	logger := pl.pipeline.logger

	opened := make([]RowSink, 0, len(sinks))
	for _, s := range sinks {
		if err := s.Open(pl.outputSchema); err != nil {
			closeSinks(opened, logger)
			return result, fmt.Errorf("failed to open sink: %w", err)
		}
		opened = append(opened, s)
	}

	src, err := factory.Open()
	if err != nil {
		closeSinks(opened, logger)
		return result, err
	}
	defer src.Close()

	start := time.Now()
	batchSize := pl.pipeline.batchSize()
	categories := make(map[string]string)

	for {
		rows, readErr := src.Read(ctx, batchSize)
		if len(rows) > 0 {
			cleaned := make([]model.Row, 0, len(rows))
			for _, row := range rows {
				out, cerr := pl.transformRow(row, categories)
				if cerr != nil {
					pl.extendCoercionSamples(rows, cerr)
					closeSinks(opened, logger)
					return result, cerr
				}
				cleaned = append(cleaned, out)
			}
			for _, s := range opened {
				if err := s.Write(ctx, cleaned); err != nil {
					closeSinks(opened, logger)
					return result, fmt.Errorf("failed to write cleaned rows: %w", err)
				}
			}
			result.RowsRead += int64(len(rows))
			result.RowsWritten += int64(len(cleaned))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			closeSinks(opened, logger)
			return result, fmt.Errorf("failed to read input rows: %w", readErr)
		}
	}

	var closeErr error
	for _, s := range opened {
		closeErr = multierr.Append(closeErr, s.Close())
	}
	if closeErr != nil {
		return result, fmt.Errorf("failed to finalize sinks: %w", closeErr)
	}

	logger.Info("Cleaning pass complete",
		zap.Int64("rows_read", result.RowsRead),
		zap.Int64("rows_written", result.RowsWritten),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// transformRow applies prune, coerce, date, and category stages to one row
func (pl *Plan) transformRow(row model.Row, categories map[string]string) (model.Row, *CoercionError) {
	out := make(model.Row, len(pl.outputSchema.Columns))

	for _, col := range pl.bound {
		coerced, err := pl.pipeline.conv.Coerce(row[col.name], col.target)
		if err != nil {
			return nil, &CoercionError{
				Column:  col.name,
				Target:  col.target,
				Samples: []string{formatSample(row[col.name])},
				Err:     err,
			}
		}
		out[col.name] = coerced
	}

	if pl.dateColumn != "" {
		if t, ok := out[pl.dateColumn].(time.Time); ok {
			year, month, quarter, weekday, weekend := dateParts(t)
			out[ColYear] = year
			out[ColMonth] = month
			out[ColQuarter] = quarter
			out[ColWeekday] = weekday
			out[ColIsWeekend] = weekend
		} else {
			out[ColYear] = nil
			out[ColMonth] = nil
			out[ColQuarter] = nil
			out[ColWeekday] = nil
			out[ColIsWeekend] = nil
		}
	}

	if pl.categoryColumn != "" {
		label := ""
		if v := out[pl.categoryColumn]; v != nil {
			if s, ok := v.(string); ok {
				label = s
			} else {
				label = fmt.Sprintf("%v", v)
			}
		}
		major, ok := categories[label]
		if !ok {
			major = pl.pipeline.mapper.Map(label)
			categories[label] = major
		}
		out[ColMajorCategory] = major
	}

	return out, nil
}

// extendCoercionSamples scans the rest of the failing batch for more
// offending values in the same column, up to maxCoercionSamples.
func (pl *Plan) extendCoercionSamples(rows []model.Row, cerr *CoercionError) {
	seen := map[string]bool{cerr.Samples[0]: true}
	for _, row := range rows {
		if len(cerr.Samples) >= maxCoercionSamples {
			return
		}
		value := row[cerr.Column]
		if converter.IsNull(value) {
			continue
		}
		if _, err := pl.pipeline.conv.Coerce(value, cerr.Target); err != nil {
			sample := formatSample(value)
			if !seen[sample] {
				seen[sample] = true
				cerr.Samples = append(cerr.Samples, sample)
			}
		}
	}
}

func closeSinks(sinks []RowSink, logger *zap.Logger) {
	for _, s := range sinks {
		var err error
		if a, ok := s.(Aborter); ok {
			err = a.Abort()
		} else {
			err = s.Close()
		}
		if err != nil {
			logger.Warn("Failed to close sink after error", zap.Error(err))
		}
	}
}
