package solver

import (
	"fmt"
	"math"
)

// Stage identifies which leg of an evaluation failed.
type Stage int

const (
	// StageInput means the problem could not lift the coordinate into a
	// domain input.
	StageInput Stage = iota + 1
	// StageModel means the model call itself failed.
	StageModel
	// StageDerive means the problem could not derive a residual or objective
	// from the snapshot, or derived a non-finite one.
	StageDerive
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageInput:
		return "input"
	case StageModel:
		return "model"
	case StageDerive:
		return "derive"
	default:
		return "unknown"
	}
}

// EvalError reports a failure while evaluating a candidate coordinate. No
// partial Evaluation is ever observable alongside it.
type EvalError struct {
	Stage Stage
	X     float64
	Err   error
}

// Error returns the string representation of the error.
func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluate x=%g: %s stage: %v", e.X, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *EvalError) Unwrap() error {
	return e.Err
}

// NonFiniteError reports a derived residual or objective that is NaN or
// infinite. The evaluation layer rejects such values before wrapping them
// into an Evaluation so they cannot silently propagate.
type NonFiniteError struct {
	Value float64
}

// Error returns the string representation of the error.
func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("non-finite value %v", e.Value)
}

// EvalResidual composes problem.Input, model.Call and problem.Residual into
// one fallible call. The first failing stage aborts the evaluation and is
// reported through an *EvalError.
func EvalResidual[I, O any](model Model[I, O], problem EquationProblem[I, O], x float64) (Evaluation[I, O], error) {
	var zero Evaluation[I, O]

	input, err := problem.Input(x)
	if err != nil {
		return zero, &EvalError{Stage: StageInput, X: x, Err: err}
	}

	output, err := model.Call(input)
	if err != nil {
		return zero, &EvalError{Stage: StageModel, X: x, Err: err}
	}

	residual, err := problem.Residual(input, output)
	if err != nil {
		return zero, &EvalError{Stage: StageDerive, X: x, Err: err}
	}
	if !isFinite(residual) {
		return zero, &EvalError{Stage: StageDerive, X: x, Err: &NonFiniteError{Value: residual}}
	}

	return Evaluation[I, O]{
		X:        x,
		Snapshot: Snapshot[I, O]{Input: input, Output: output},
		Value:    residual,
	}, nil
}

// EvalObjective is the optimization counterpart of EvalResidual.
func EvalObjective[I, O any](model Model[I, O], problem OptimizationProblem[I, O], x float64) (Evaluation[I, O], error) {
	var zero Evaluation[I, O]

	input, err := problem.Input(x)
	if err != nil {
		return zero, &EvalError{Stage: StageInput, X: x, Err: err}
	}

	output, err := model.Call(input)
	if err != nil {
		return zero, &EvalError{Stage: StageModel, X: x, Err: err}
	}

	objective, err := problem.Objective(input, output)
	if err != nil {
		return zero, &EvalError{Stage: StageDerive, X: x, Err: err}
	}
	if !isFinite(objective) {
		return zero, &EvalError{Stage: StageDerive, X: x, Err: &NonFiniteError{Value: objective}}
	}

	return Evaluation[I, O]{
		X:        x,
		Snapshot: Snapshot[I, O]{Input: input, Output: output},
		Value:    objective,
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
