// pkg/report/runner.go
package report

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/David-Botos/sales-pipeline/pkg/model"
)

const aggregatorQueueDepth = 4

// TableWriter renders one finished report table
type TableWriter interface {
	WriteTable(table Table) error
}

// Runner feeds cleaned row batches to every aggregator on its own goroutine
// so a slow aggregation never stalls the cleaning pass. It implements the
// cleaning pipeline's row sink contract: Open, batched Writes, Close.
type Runner struct {
	aggregators []Aggregator
	writer      TableWriter
	logger      *zap.Logger

	active   []Aggregator
	skipped  []string
	failed   []string
	channels []chan []model.Row
	wg       sync.WaitGroup
	tables   []Table
	opened   bool
	closed   bool
}

// NewRunner creates a report runner over the given aggregators
func NewRunner(aggregators []Aggregator, writer TableWriter, logger *zap.Logger) (*Runner, error) {
	if len(aggregators) == 0 {
		return nil, errors.New("at least one aggregator is required")
	}
	if writer == nil {
		return nil, errors.New("table writer cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Runner{
		aggregators: aggregators,
		writer:      writer,
		logger:      logger,
	}, nil
}

// Open checks each aggregator's required columns against the cleaned schema
// and starts a worker per runnable aggregator. Aggregators whose columns are
// absent are skipped with a warning.
func (r *Runner) Open(schema model.Schema) error {
	if r.opened {
		return errors.New("report runner already opened")
	}
	r.opened = true

	for _, agg := range r.aggregators {
		missing := missingColumns(schema, agg.Requires())
		if len(missing) > 0 {
			r.skipped = append(r.skipped, agg.Name())
			r.logger.Warn("Skipping report, required columns absent",
				zap.String("report", agg.Name()),
				zap.Strings("missing_columns", missing))
			continue
		}
		r.active = append(r.active, agg)
	}

	r.channels = make([]chan []model.Row, len(r.active))
	for i, agg := range r.active {
		ch := make(chan []model.Row, aggregatorQueueDepth)
		r.channels[i] = ch
		r.wg.Add(1)
		go r.consume(agg, ch)
	}

	r.logger.Info("Report runner started",
		zap.Int("reports", len(r.active)),
		zap.Strings("skipped_reports", r.skipped))
	return nil
}

func (r *Runner) consume(agg Aggregator, ch <-chan []model.Row) {
	defer r.wg.Done()
	for rows := range ch {
		for _, row := range rows {
			agg.Add(row)
		}
	}
}

// Write fans one batch out to every active aggregator. Batches are shared
// read-only between workers.
func (r *Runner) Write(ctx context.Context, rows []model.Row) error {
	if !r.opened {
		return errors.New("report runner not opened")
	}
	if r.closed {
		return errors.New("report runner already closed")
	}
	for _, ch := range r.channels {
		select {
		case ch <- rows:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close drains the workers, collects every table, and renders them through
// the writer. A failed render is logged and recorded, not returned: report
// delivery never fails the cleaning pass that fed it.
func (r *Runner) Close() error {
	if !r.opened || r.closed {
		return nil
	}
	r.closed = true

	for _, ch := range r.channels {
		close(ch)
	}
	r.wg.Wait()

	for _, agg := range r.active {
		table := agg.Result()
		r.tables = append(r.tables, table)
		if err := r.writer.WriteTable(table); err != nil {
			r.failed = append(r.failed, table.Name)
			r.logger.Warn("Failed to write report",
				zap.String("report", table.Name),
				zap.Error(err))
			continue
		}
		r.logger.Info("Wrote report",
			zap.String("report", table.Name),
			zap.Int("rows", table.RowCount()))
	}
	return nil
}

// Abort drains the workers and discards their results without rendering
// anything. Used when the cleaning pass fails partway: reports built from a
// partial read would be misleading.
func (r *Runner) Abort() error {
	if !r.opened || r.closed {
		return nil
	}
	r.closed = true

	for _, ch := range r.channels {
		close(ch)
	}
	r.wg.Wait()

	r.logger.Warn("Discarded partial reports", zap.Int("reports", len(r.active)))
	return nil
}

// Tables returns the finished report tables. Only valid after Close.
func (r *Runner) Tables() []Table {
	tables := make([]Table, len(r.tables))
	copy(tables, r.tables)
	return tables
}

// SkippedReports returns the names of aggregators Open could not run
func (r *Runner) SkippedReports() []string {
	skipped := make([]string, len(r.skipped))
	copy(skipped, r.skipped)
	return skipped
}

// FailedReports returns the names of reports whose render failed on Close
func (r *Runner) FailedReports() []string {
	failed := make([]string, len(r.failed))
	copy(failed, r.failed)
	return failed
}

// ReportNames returns the names of the reports that ran, in order
func (r *Runner) ReportNames() []string {
	names := make([]string, 0, len(r.active))
	for _, agg := range r.active {
		names = append(names, agg.Name())
	}
	return names
}

func missingColumns(schema model.Schema, required []string) []string {
	var missing []string
	for _, name := range required {
		if !schema.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
