// pkg/cleaner/pipeline.go
package cleaner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/sales-pipeline/pkg/config"
	"github.com/David-Botos/sales-pipeline/pkg/converter"
	"github.com/David-Botos/sales-pipeline/pkg/model"
	"github.com/David-Botos/sales-pipeline/pkg/source"
)

const defaultBatchSize = 10000

// Pipeline holds the cleaning configuration and collaborators shared by
// every run.
type Pipeline struct {
	clean   config.CleanConfig
	input   config.InputConfig
	mapping converter.TypeMapping
	conv    *converter.ValueConverter
	mapper  Categorizer
	logger  *zap.Logger
}

// Categorizer consolidates raw category labels into canonical ones. It must
// return a label for every input.
type Categorizer interface {
	Map(label string) string
}

// NewPipeline creates a cleaning pipeline from its collaborators
func NewPipeline(
	clean config.CleanConfig,
	input config.InputConfig,
	mapping converter.TypeMapping,
	conv *converter.ValueConverter,
	mapper Categorizer,
	logger *zap.Logger,
) (*Pipeline, error) {
	if len(mapping) == 0 {
		return nil, errors.New("type mapping cannot be empty")
	}
	if conv == nil {
		return nil, errors.New("value converter cannot be nil")
	}
	if mapper == nil {
		return nil, errors.New("category mapper cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Pipeline{
		clean:   clean,
		input:   input,
		mapping: mapping,
		conv:    conv,
		mapper:  mapper,
		logger:  logger,
	}, nil
}

// DroppedColumn records one pruned column and why it was pruned
type DroppedColumn struct {
	Name     string
	Reason   string  // "missing_values" or "deny_list"
	Fraction float64 // observed missing fraction, audit drops only
}

// boundColumn is a surviving input column with its coercion target
type boundColumn struct {
	name   string
	target model.FieldType
}

// Plan is the resolved shape of one cleaning run: which columns survive,
// what type each coerces to, and which derivation stages apply. Execute
// replays it over the full input.
type Plan struct {
	pipeline       *Pipeline
	inputSchema    model.Schema
	bound          []boundColumn
	dropped        []DroppedColumn
	stats          []model.MissingStat
	dateColumn     string
	categoryColumn string
	skipped        []string
	outputSchema   model.Schema
	operations     []model.StageOperation
}

// Plan audits a bounded sample of the input and resolves every stage's
// behavior. Input problems fail immediately; schema problems downgrade the
// affected stage with a warning.
func (p *Pipeline) Plan(ctx context.Context, factory *source.Factory) (*Plan, error) {
	src, err := factory.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	schema, err := src.Schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read input schema: %w", err)
	}
	if len(schema.Columns) == 0 {
		return nil, errors.New("input declares no columns")
	}

	plan := &Plan{pipeline: p, inputSchema: schema}

	stats, sampled, err := p.auditMissing(ctx, src, schema)
	if err != nil {
		return nil, err
	}
	plan.stats = stats
	for _, st := range stats {
		plan.record(StageAudit, st.Column, "measured",
			fmt.Sprintf("%d of %d sampled values missing (%.4f)", st.Missing, st.Sampled, st.Fraction))
	}

	p.resolvePrunedColumns(plan, schema)
	if len(plan.dropped) == len(schema.Columns) {
		return nil, errors.New("cleaning would prune every input column")
	}

	p.bindCoercions(plan, schema)
	p.planDateStage(plan, schema)
	p.planCategoryStage(plan, schema)
	p.resolveOutputSchema(plan)

	droppedNames := make([]string, 0, len(plan.dropped))
	for _, d := range plan.dropped {
		droppedNames = append(droppedNames, d.Name)
	}
	p.logger.Info("Planned cleaning stages",
		zap.Int64("audited_rows", sampled),
		zap.Int("input_columns", len(schema.Columns)),
		zap.Int("output_columns", len(plan.outputSchema.Columns)),
		zap.Strings("dropped_columns", droppedNames),
		zap.Strings("skipped_stages", plan.skipped))

	return plan, nil
}

// auditMissing counts missing values per column over at most AuditRows rows
func (p *Pipeline) auditMissing(ctx context.Context, src source.RowSource, schema model.Schema) ([]model.MissingStat, int64, error) {
	limit := p.input.AuditRows
	batchSize := p.batchSize()

	missing := make(map[string]int64, len(schema.Columns))
	var sampled int64
	for limit <= 0 || sampled < limit {
		batch := batchSize
		if limit > 0 {
			if remaining := limit - sampled; remaining < int64(batch) {
				batch = int(remaining)
			}
		}
		rows, err := src.Read(ctx, batch)
		for _, row := range rows {
			for _, col := range schema.Columns {
				if converter.IsNull(row[col.Name]) {
					missing[col.Name]++
				}
			}
		}
		sampled += int64(len(rows))
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, sampled, fmt.Errorf("missing-value audit failed: %w", err)
		}
	}

	stats := make([]model.MissingStat, 0, len(schema.Columns))
	for _, col := range schema.Columns {
		stat := model.MissingStat{
			Column:  col.Name,
			Missing: missing[col.Name],
			Sampled: sampled,
		}
		if sampled > 0 {
			stat.Fraction = float64(stat.Missing) / float64(sampled)
		}
		stats = append(stats, stat)
	}
	return stats, sampled, nil
}

// resolvePrunedColumns merges audit drops with the configured deny list.
// Audit drops keep schema order; deny list entries follow in configured
// order. A deny list entry naming an absent column downgrades to a warning.
func (p *Pipeline) resolvePrunedColumns(plan *Plan, schema model.Schema) {
	prunedSet := make(map[string]bool)

	for _, st := range plan.stats {
		if st.AboveThreshold(p.clean.MissingThreshold) {
			plan.dropped = append(plan.dropped, DroppedColumn{
				Name:     st.Column,
				Reason:   "missing_values",
				Fraction: st.Fraction,
			})
			prunedSet[strings.ToLower(st.Column)] = true
			plan.record(StagePrune, st.Column, "drop_column",
				fmt.Sprintf("missing fraction %.4f above threshold %.4f", st.Fraction, p.clean.MissingThreshold))
		}
	}

	for _, name := range p.clean.DropColumns {
		col := schema.ColumnByName(name)
		if col == nil {
			plan.record(StagePrune, name, "skip_missing_column", "configured drop column not present in input")
			p.logger.Warn("Configured drop column not present in input", zap.String("column", name))
			continue
		}
		if prunedSet[strings.ToLower(col.Name)] {
			continue
		}
		plan.dropped = append(plan.dropped, DroppedColumn{Name: col.Name, Reason: "deny_list"})
		prunedSet[strings.ToLower(col.Name)] = true
		plan.record(StagePrune, col.Name, "drop_column", "configured deny list")
	}
}

// bindCoercions assigns a target type to every surviving column. Mapping
// entries that name a column missing from the input downgrade to warnings.
func (p *Pipeline) bindCoercions(plan *Plan, schema model.Schema) {
	pruned := plan.prunedSet()
	for _, col := range schema.Columns {
		if pruned[strings.ToLower(col.Name)] {
			continue
		}
		target := p.mapping.TypeFor(col.Name)
		plan.bound = append(plan.bound, boundColumn{name: col.Name, target: target})
		plan.record(StageCoerce, col.Name, "bound", string(target))
	}

	mapped := make([]string, 0, len(p.mapping))
	for name := range p.mapping {
		mapped = append(mapped, name)
	}
	sort.Strings(mapped)
	for _, name := range mapped {
		if !schema.HasColumn(name) {
			plan.record(StageCoerce, name, "skip_missing_column", "type mapping names a column missing from the input")
			p.logger.Warn("Type mapping names a column missing from the input", zap.String("column", name))
		}
	}
}

// planDateStage resolves the date column or skips the stage with a warning
// when the column is absent or was pruned.
func (p *Pipeline) planDateStage(plan *Plan, schema model.Schema) {
	name := p.clean.DateColumn
	col := schema.ColumnByName(name)
	switch {
	case col == nil:
		plan.skipStage(StageDates, name, "date column not present in input")
		p.logger.Warn("Skipping date decomposition, column not present", zap.String("column", name))
	case plan.prunedSet()[strings.ToLower(col.Name)]:
		plan.skipStage(StageDates, col.Name, "date column was pruned")
		p.logger.Warn("Skipping date decomposition, column was pruned", zap.String("column", col.Name))
	default:
		plan.dateColumn = col.Name
		// The stage needs real dates regardless of what the type mapping
		// says about this column.
		for i := range plan.bound {
			if plan.bound[i].name == col.Name && plan.bound[i].target != model.TypeDate {
				plan.bound[i].target = model.TypeDate
				plan.record(StageCoerce, col.Name, "rebound", "retyped to date for decomposition")
			}
		}
	}
}

// planCategoryStage resolves the category column or skips the stage with a
// warning when the column is absent or was pruned.
func (p *Pipeline) planCategoryStage(plan *Plan, schema model.Schema) {
	name := p.clean.CategoryColumn
	col := schema.ColumnByName(name)
	switch {
	case col == nil:
		plan.skipStage(StageCategory, name, "category column not present in input")
		p.logger.Warn("Skipping category consolidation, column not present", zap.String("column", name))
	case plan.prunedSet()[strings.ToLower(col.Name)]:
		plan.skipStage(StageCategory, col.Name, "category column was pruned")
		p.logger.Warn("Skipping category consolidation, column was pruned", zap.String("column", col.Name))
	default:
		plan.categoryColumn = col.Name
	}
}

// resolveOutputSchema builds the cleaned table's schema: surviving columns
// with their target types, then the derived columns in fixed order. A source
// column sharing a derived column's name is replaced by the derived value.
func (p *Pipeline) resolveOutputSchema(plan *Plan) {
	byName := make(map[string]model.Column, len(plan.inputSchema.Columns))
	for _, col := range plan.inputSchema.Columns {
		byName[strings.ToLower(col.Name)] = col
	}

	columns := make([]model.Column, 0, len(plan.bound)+6)
	for _, b := range plan.bound {
		src := byName[strings.ToLower(b.name)]
		columns = append(columns, model.Column{Name: b.name, Type: b.target, SourceType: src.SourceType})
	}
	out := model.Schema{Columns: columns}

	var derived []model.Column
	if plan.dateColumn != "" {
		derived = append(derived, derivedDateColumns()...)
	}
	if plan.categoryColumn != "" {
		derived = append(derived, model.Column{Name: ColMajorCategory, Type: model.TypeString, SourceType: "derived"})
	}

	var collisions []string
	for _, d := range derived {
		if out.HasColumn(d.Name) {
			collisions = append(collisions, d.Name)
			plan.record(StageCoerce, d.Name, "replaced", "source column replaced by derived column")
			p.logger.Warn("Source column replaced by derived column", zap.String("column", d.Name))
		}
	}
	if len(collisions) > 0 {
		out = out.Without(collisions)
	}
	plan.outputSchema = out.Append(derived...)
}

// batchSize returns the configured read batch size with a sane floor
func (p *Pipeline) batchSize() int {
	if p.input.BatchSize > 0 {
		return p.input.BatchSize
	}
	return defaultBatchSize
}

func (pl *Plan) prunedSet() map[string]bool {
	set := make(map[string]bool, len(pl.dropped))
	for _, d := range pl.dropped {
		set[strings.ToLower(d.Name)] = true
	}
	return set
}

func (pl *Plan) skipStage(stage, column, detail string) {
	pl.skipped = append(pl.skipped, stage)
	pl.record(stage, column, "skip_stage", detail)
}

func (pl *Plan) record(stage, column, action, detail string) {
	pl.operations = append(pl.operations, model.StageOperation{
		ID:        uuid.New().String(),
		Stage:     stage,
		Column:    column,
		Action:    action,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}

// OutputSchema returns the schema of the cleaned table
func (pl *Plan) OutputSchema() model.Schema {
	return pl.outputSchema
}

// MissingStats returns the audit's per-column missing counts
func (pl *Plan) MissingStats() []model.MissingStat {
	stats := make([]model.MissingStat, len(pl.stats))
	copy(stats, pl.stats)
	return stats
}

// DroppedColumns returns the pruned columns in drop order
func (pl *Plan) DroppedColumns() []DroppedColumn {
	dropped := make([]DroppedColumn, len(pl.dropped))
	copy(dropped, pl.dropped)
	return dropped
}

// SkippedStages returns the names of stages the plan downgraded
func (pl *Plan) SkippedStages() []string {
	skipped := make([]string, len(pl.skipped))
	copy(skipped, pl.skipped)
	return skipped
}

// Operations returns every decision the plan recorded
func (pl *Plan) Operations() []model.StageOperation {
	operations := make([]model.StageOperation, len(pl.operations))
	copy(operations, pl.operations)
	return operations
}
