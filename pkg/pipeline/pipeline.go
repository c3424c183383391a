// pkg/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-pipeline/pkg/category"
	"github.com/David-Botos/sales-pipeline/pkg/cleaner"
	"github.com/David-Botos/sales-pipeline/pkg/config"
	"github.com/David-Botos/sales-pipeline/pkg/converter"
	"github.com/David-Botos/sales-pipeline/pkg/model"
	"github.com/David-Botos/sales-pipeline/pkg/report"
	"github.com/David-Botos/sales-pipeline/pkg/sink"
	"github.com/David-Botos/sales-pipeline/pkg/source"
)

// Pipeline owns one configured run over an input file
type Pipeline struct {
	cfg    *config.Config
	logger *zap.Logger
}

// New creates a pipeline from a validated configuration
func New(cfg *config.Config, logger *zap.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Pipeline{cfg: cfg, logger: logger}, nil
}

// Run executes the full pipeline and returns its summary. The summary is
// populated as far as the run got, so it is meaningful even when an error
// comes back with it.
func (p *Pipeline) Run(ctx context.Context) (*model.RunSummary, error) {
	runID := uuid.New().String()
	logger := p.logger.With(zap.String("run_id", runID))

	summary := &model.RunSummary{
		RunID:     runID,
		InputPath: p.cfg.Input.Path,
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		summary.FinishedAt = time.Now().UTC()
	}()

	logger.Info("Starting pipeline run",
		zap.String("input_path", p.cfg.Input.Path),
		zap.String("format", p.cfg.Input.Format))

	factory, err := source.NewFactory(p.cfg.Input.Path, p.cfg.Input.Format, logger)
	if err != nil {
		return summary, Classify(err, ErrorCategoryInput)
	}

	estimate, err := source.EstimateSize(ctx, factory, p.cfg.Input.SampleRows, logger)
	if err != nil {
		return summary, Classify(err, ErrorCategoryInput)
	}
	summary.Estimate = estimate

	mapper := category.NewDefaultMapper()
	pipe, err := cleaner.NewPipeline(
		p.cfg.Clean,
		p.cfg.Input,
		converter.DefaultTypeMapping(),
		converter.NewValueConverter(),
		mapper,
		logger,
	)
	if err != nil {
		return summary, Classify(err, ErrorCategoryInput)
	}

	plan, err := pipe.Plan(ctx, factory)
	if err != nil {
		return summary, Classify(err, ErrorCategoryInput)
	}
	for _, dropped := range plan.DroppedColumns() {
		summary.DroppedColumns = append(summary.DroppedColumns, dropped.Name)
	}
	summary.SkippedStages = plan.SkippedStages()

	// Report delivery degrades rather than aborts: a run that cannot write
	// reports still cleans.
	aggregators := report.DefaultAggregators(p.cfg.Report)
	runner := p.startReports(logger, summary, aggregators)

	metrics := NewRunMetrics(logger)
	sinks := make([]cleaner.RowSink, 0, 3)
	if runner != nil {
		sinks = append(sinks, runner)
	}
	if p.cfg.Report.CleanedPath != "" {
		cleaned, err := sink.NewCleanedCSV(p.cfg.Report.CleanedPath, logger)
		if err != nil {
			return summary, Classify(err, ErrorCategorySink)
		}
		sinks = append(sinks, cleaned)
	}
	sinks = append(sinks, newCountingSink(metrics))

	result, err := plan.Execute(ctx, factory, sinks...)
	summary.RowsRead = result.RowsRead
	summary.RowsWritten = result.RowsWritten
	if err != nil {
		return summary, Classify(err, ErrorCategorySink)
	}
	metrics.Complete()

	var tables []report.Table
	if runner != nil {
		tables = runner.Tables()
		failed := make(map[string]bool)
		for _, name := range runner.FailedReports() {
			failed[name] = true
			summary.FailedReports = append(summary.FailedReports, name)
		}
		for _, name := range runner.ReportNames() {
			if !failed[name] {
				summary.Reports = append(summary.Reports, name)
			}
		}
	}

	verification := NewVerifier(logger).Verify(RunArtifacts{
		OutputSchema:  plan.OutputSchema(),
		Dropped:       plan.DroppedColumns(),
		SkippedStages: plan.SkippedStages(),
		RowsRead:      result.RowsRead,
		RowsWritten:   result.RowsWritten,
		Tables:        tables,
		Labels:        mapper.Labels(),
	})
	for _, finding := range verification.Findings {
		summary.Findings = append(summary.Findings, finding.String())
	}

	if p.cfg.Postgres != nil && len(tables) > 0 {
		p.deliverToPostgres(ctx, logger, tables)
	}

	logger.Info("Pipeline run complete",
		zap.Int64("rows_read", summary.RowsRead),
		zap.Int64("rows_written", summary.RowsWritten),
		zap.Strings("reports", summary.Reports),
		zap.Int("findings", len(summary.Findings)),
		zap.Duration("duration", time.Since(summary.StartedAt)))

	return summary, nil
}

// startReports builds the report runner. On failure every configured report
// is recorded as failed and the run continues without one.
func (p *Pipeline) startReports(logger *zap.Logger, summary *model.RunSummary, aggregators []report.Aggregator) *report.Runner {
	writer, err := report.NewCSVWriter(p.cfg.Report.OutputDir)
	if err != nil {
		p.disableReports(logger, summary, aggregators, err)
		return nil
	}
	runner, err := report.NewRunner(aggregators, writer, logger)
	if err != nil {
		p.disableReports(logger, summary, aggregators, err)
		return nil
	}
	return runner
}

func (p *Pipeline) disableReports(logger *zap.Logger, summary *model.RunSummary, aggregators []report.Aggregator, err error) {
	for _, agg := range aggregators {
		summary.FailedReports = append(summary.FailedReports, agg.Name())
	}
	logger.Warn("Reports disabled for this run",
		zap.String("output_dir", p.cfg.Report.OutputDir),
		zap.Error(err))
}

// deliverToPostgres replaces the report tables in Postgres. The CSVs are
// already on disk, so every failure here is a warning, never a run failure.
func (p *Pipeline) deliverToPostgres(ctx context.Context, logger *zap.Logger, tables []report.Table) {
	writer, err := sink.NewPostgresWriter(ctx, p.cfg.Postgres, logger)
	if err != nil {
		logger.Warn("Skipping Postgres delivery, connection failed", zap.Error(err))
		return
	}
	defer writer.Close()

	if err := writer.Validate(ctx); err != nil {
		logger.Warn("Skipping Postgres delivery, validation failed", zap.Error(err))
		return
	}
	if err := writer.WriteTables(ctx, tables); err != nil {
		logger.Warn("Postgres delivery incomplete", zap.Error(err))
	}
}
