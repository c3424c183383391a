// pkg/pipeline/errors.go
package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/David-Botos/sales-pipeline/pkg/cleaner"
)

// Action defines the recommended response to a pipeline error
type Action int

const (
	// ActionContinue indicates processing should continue despite the error
	ActionContinue Action = iota
	// ActionWarn indicates the error should be surfaced but the run kept alive
	ActionWarn
	// ActionAbort indicates the run should stop
	ActionAbort
)

// String returns a string representation of the action
func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "Continue"
	case ActionWarn:
		return "Warn"
	case ActionAbort:
		return "Abort"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// ErrorCategory defines categories of errors during a pipeline run
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	// ErrorCategoryInput covers unreadable, missing, or malformed input
	ErrorCategoryInput
	// ErrorCategorySchema covers declared columns absent from the input
	ErrorCategorySchema
	// ErrorCategoryCoercion covers values that failed typed conversion
	ErrorCategoryCoercion
	// ErrorCategoryReport covers report aggregation or delivery failures
	ErrorCategoryReport
	// ErrorCategorySink covers cleaned-output delivery failures
	ErrorCategorySink
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryInput:
		return "Input"
	case ErrorCategorySchema:
		return "Schema"
	case ErrorCategoryCoercion:
		return "Coercion"
	case ErrorCategoryReport:
		return "Report"
	case ErrorCategorySink:
		return "Sink"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// defaultAction maps a category to how a run responds to it. Input, coercion
// and sink failures stop the run; schema and report problems degrade it.
func defaultAction(category ErrorCategory) Action {
	switch category {
	case ErrorCategoryInput, ErrorCategoryCoercion, ErrorCategorySink:
		return ActionAbort
	case ErrorCategorySchema, ErrorCategoryReport:
		return ActionWarn
	default:
		return ActionContinue
	}
}

// PipelineError wraps a run failure with its category and recommended action
type PipelineError struct {
	Category ErrorCategory
	Action   Action
	Stage    string
	Column   string
	Samples  []string
	Err      error
}

// NewPipelineError creates a pipeline error with the category's default action
func NewPipelineError(category ErrorCategory, err error) *PipelineError {
	return &PipelineError{
		Category: category,
		Action:   defaultAction(category),
		Err:      err,
	}
}

// WithStage adds the pipeline stage the error occurred in
func (e *PipelineError) WithStage(stage string) *PipelineError {
	e.Stage = stage
	return e
}

// WithColumn adds the offending column
func (e *PipelineError) WithColumn(column string) *PipelineError {
	e.Column = column
	return e
}

// WithSamples adds sample values that triggered the error
func (e *PipelineError) WithSamples(samples []string) *PipelineError {
	e.Samples = samples
	return e
}

// WithAction overrides the category's default action
func (e *PipelineError) WithAction(action Action) *PipelineError {
	e.Action = action
	return e
}

// Error formats the category and context ahead of the cause
func (e *PipelineError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", e.Category))

	if e.Stage != "" {
		sb.WriteString(fmt.Sprintf("stage %s: ", e.Stage))
	}
	if e.Column != "" {
		sb.WriteString(fmt.Sprintf("column %q: ", e.Column))
	}
	if e.Err != nil {
		sb.WriteString(e.Err.Error())
	}
	if len(e.Samples) > 0 {
		sb.WriteString(fmt.Sprintf(" (samples: %s)", strings.Join(e.Samples, ", ")))
	}

	return sb.String()
}

// Unwrap returns the underlying cause
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Classify assigns a category to an error. Typed causes win; otherwise the
// error message is inspected, and the fallback category applies when nothing
// more specific matches.
func Classify(err error, fallback ErrorCategory) *PipelineError {
	if err == nil {
		return nil
	}

	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr
	}

	var cerr *cleaner.CoercionError
	if errors.As(err, &cerr) {
		return NewPipelineError(ErrorCategoryCoercion, err).
			WithStage(cleaner.StageCoerce).
			WithColumn(cerr.Column).
			WithSamples(cerr.Samples)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "prune every input column"):
		// The one schema problem that cannot degrade: nothing would survive.
		return NewPipelineError(ErrorCategorySchema, err).
			WithStage(cleaner.StagePrune).
			WithAction(ActionAbort)
	case strings.Contains(msg, "read input") || strings.Contains(msg, "input schema"):
		return NewPipelineError(ErrorCategoryInput, err)
	case strings.Contains(msg, "report"):
		return NewPipelineError(ErrorCategoryReport, err)
	case strings.Contains(msg, "sink") || strings.Contains(msg, "cleaned CSV"):
		return NewPipelineError(ErrorCategorySink, err)
	}

	return NewPipelineError(fallback, err)
}
