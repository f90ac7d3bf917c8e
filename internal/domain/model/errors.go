package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds shared by the pipeline stages. Match them with errors.Is.
var (
	ErrRowParse           = errors.New("row parse error")
	ErrIdentityConflict   = errors.New("identity conflict")
	ErrIncompleteRecord   = errors.New("incomplete record")
	ErrSchemaMismatch     = errors.New("feature schema mismatch")
	ErrTraining           = errors.New("training error")
	ErrUndefinedStatistic = errors.New("undefined statistic")
	ErrNoUsableRecords    = errors.New("no usable records")
	ErrCannotPredict      = errors.New("cannot predict")
	ErrNotFound           = errors.New("not found")
	ErrUnavailable        = errors.New("unavailable")
)

// Pipeline stages used in PipelineError.Stage.
const (
	StageLoad      = "load"
	StageReconcile = "reconcile"
	StageMetrics   = "metrics"
	StageRisk      = "risk"
	StageService   = "service"
)

// PipelineError carries the stage, operation and kind of a failure.
type PipelineError struct {
	Stage   string // load, reconcile, metrics, risk, service
	Op      string // operation that failed
	Kind    error  // one of the Err* kinds above
	ID      string // student identifier or source name, when known
	Message string
	Err     error // underlying cause (optional)
}

func (e *PipelineError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s.%s: %s", e.Stage, e.Op, e.Message)
	if e.ID != "" {
		fmt.Fprintf(&b, " (id=%s)", e.ID)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the cause, falling back to the kind.
func (e *PipelineError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches either the kind or the cause.
func (e *PipelineError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

// NewError builds a PipelineError without a cause.
func NewError(stage, op string, kind error, id, message string) *PipelineError {
	return &PipelineError{Stage: stage, Op: op, Kind: kind, ID: id, Message: message}
}

// WrapError builds a PipelineError around err.
func WrapError(stage, op string, kind error, id, message string, err error) *PipelineError {
	return &PipelineError{Stage: stage, Op: op, Kind: kind, ID: id, Message: message, Err: err}
}

// SchemaMismatchError reports a feature vector whose schema differs from
// the one a model was trained on.
type SchemaMismatchError struct {
	ID       string
	Expected []string
	Actual   []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("feature schema mismatch for %q: expected [%s], got [%s]",
		e.ID, strings.Join(e.Expected, ","), strings.Join(e.Actual, ","))
}

// Is matches ErrSchemaMismatch.
func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}
