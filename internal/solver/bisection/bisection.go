// Package bisection implements bracketed root finding by interval halving.
//
// The solver repeatedly evaluates the bracket midpoint through the shared
// evaluation layer, replaces whichever endpoint shares the midpoint's
// residual sign, and stops once the bracket width or the residual magnitude
// falls within tolerance. An optional observer sees every iteration and may
// stop the solve early.
package bisection

import (
	"errors"
	"math"

	"github.com/copyleftdev/KELVIN/internal/solver"
)

// Config bounds the iteration work and sets the convergence tolerances.
// All tolerances must be finite and non-negative.
type Config struct {
	// MaxIters caps the number of midpoint evaluations.
	MaxIters int
	// XAbsTol is the absolute bracket-width tolerance.
	XAbsTol float64
	// XRelTol is the relative bracket-width tolerance, scaled by |midpoint|.
	XRelTol float64
	// ResidualTol declares a point a root once |residual| falls below it.
	ResidualTol float64
}

func (c Config) validate() error {
	if c.MaxIters < 1 {
		return solver.Errorf(solver.KindInvalidConfig, "max iters must be at least 1, got %d", c.MaxIters)
	}
	if err := solver.ValidateTolerance("x abs tol", c.XAbsTol); err != nil {
		return err
	}
	if err := solver.ValidateTolerance("x rel tol", c.XRelTol); err != nil {
		return err
	}
	return solver.ValidateTolerance("residual tol", c.ResidualTol)
}

// Event is the read-only view of one iteration handed to an observer. The
// bracket is the interval before the shrink this iteration will apply.
type Event[I, O any] struct {
	Iter    int
	Bracket [2]float64
	Eval    *solver.Evaluation[I, O]
}

// Observer inspects every iteration; returning solver.StopEarly terminates
// the solve with the best point known so far. A nil Observer runs the solver
// unobserved, and solver.AssumeWorse has no meaning here and is ignored.
// The event is only valid for the duration of the call.
type Observer[I, O any] func(Event[I, O]) solver.Action

// Solve finds a root of the problem's residual inside bracket. The endpoints
// are evaluated first: if either already satisfies ResidualTol the solve
// converges at zero iterations, and residuals of equal sign at both
// endpoints fail with a no-bracket error.
func Solve[I, O any](
	model solver.Model[I, O],
	problem solver.EquationProblem[I, O],
	bracket [2]float64,
	cfg Config,
	observe Observer[I, O],
) (solver.Solution[I, O], error) {
	var zero solver.Solution[I, O]

	if err := cfg.validate(); err != nil {
		return zero, err
	}

	left, right, err := solver.NormalizeBracket(bracket)
	if err != nil {
		return zero, err
	}

	leftEval, err := evalAt(model, problem, left)
	if err != nil {
		return zero, err
	}
	rightEval, err := evalAt(model, problem, right)
	if err != nil {
		return zero, err
	}

	if math.Abs(leftEval.Value) <= cfg.ResidualTol {
		return newSolution(solver.Converged, leftEval, 0), nil
	}
	if math.Abs(rightEval.Value) <= cfg.ResidualTol {
		return newSolution(solver.Converged, rightEval, 0), nil
	}

	if (leftEval.Value > 0) == (rightEval.Value > 0) {
		return zero, solver.Errorf(solver.KindNoBracket,
			"residual has the same sign at both endpoints: f(%g)=%g, f(%g)=%g",
			left, leftEval.Value, right, rightEval.Value)
	}

	// Seed best with the endpoint closer to a root. Strictly-smaller
	// comparisons keep the earlier candidate on ties, which makes the whole
	// solve deterministic.
	best := leftEval
	if math.Abs(rightEval.Value) < math.Abs(best.Value) {
		best = rightEval
	}
	leftPositive := leftEval.Value > 0

	for iter := 1; iter <= cfg.MaxIters; iter++ {
		mid := (left + right) / 2
		midEval, err := evalAt(model, problem, mid)
		if err != nil {
			return zero, err
		}

		xConverged := math.Abs(right-left) <= cfg.XAbsTol+cfg.XRelTol*math.Abs(mid)
		residualConverged := math.Abs(midEval.Value) <= cfg.ResidualTol

		if observe != nil {
			ev := Event[I, O]{Iter: iter, Bracket: [2]float64{left, right}, Eval: &midEval}
			if observe(ev) == solver.StopEarly {
				winner := best
				if math.Abs(midEval.Value) < math.Abs(best.Value) {
					winner = midEval
				}
				return newSolution(solver.StoppedByObserver, winner, iter), nil
			}
		}

		if xConverged || residualConverged {
			return newSolution(solver.Converged, midEval, iter), nil
		}

		if math.Abs(midEval.Value) < math.Abs(best.Value) {
			best = midEval
		}

		if (midEval.Value > 0) == leftPositive {
			left = mid
		} else {
			right = mid
		}
	}

	return newSolution(solver.MaxIters, best, cfg.MaxIters), nil
}

// evalAt runs the shared evaluation layer and maps its failures onto the
// solver error taxonomy. Bisection has no recovery site for evaluation
// failures, so every mapped error is fatal.
func evalAt[I, O any](
	model solver.Model[I, O],
	problem solver.EquationProblem[I, O],
	x float64,
) (solver.Evaluation[I, O], error) {
	eval, err := solver.EvalResidual(model, problem, x)
	if err == nil {
		return eval, nil
	}

	var nf *solver.NonFiniteError
	if errors.As(err, &nf) {
		return eval, solver.Errorf(solver.KindNonFiniteResidual, "residual at x=%g is %v", x, nf.Value)
	}

	var ee *solver.EvalError
	if errors.As(err, &ee) && ee.Stage == solver.StageModel {
		return eval, solver.WrapError(solver.KindModel, err, "model evaluation failed")
	}
	return eval, solver.WrapError(solver.KindProblem, err, "problem evaluation failed")
}

func newSolution[I, O any](status solver.Status, eval solver.Evaluation[I, O], iters int) solver.Solution[I, O] {
	return solver.Solution[I, O]{
		Status:   status,
		X:        eval.X,
		Value:    eval.Value,
		Snapshot: eval.Snapshot,
		Iters:    iters,
	}
}
